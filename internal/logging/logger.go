// Package logging builds the run's zap logger.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a console logger writing to stdout, which the Keboola runner
// captures as the job log. debug lowers the level to Debug.
func New(debug bool) *zap.Logger {
	return zap.New(NewCore(debug, zapcore.Lock(os.Stdout)))
}

// NewCore builds the console core on top of ws.
func NewCore(debug bool, ws zapcore.WriteSyncer) zapcore.Core {
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.TimeKey = "ts"
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeLevel = zapcore.CapitalLevelEncoder

	level := zap.NewAtomicLevelAt(zap.InfoLevel)
	if debug {
		level.SetLevel(zap.DebugLevel)
	}
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), ws, level)
}
