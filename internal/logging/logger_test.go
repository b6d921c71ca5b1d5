package logging

import (
	"bytes"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewCoreLevels(t *testing.T) {
	for _, debug := range []bool{false, true} {
		var buf bytes.Buffer
		log := zap.New(NewCore(debug, zapcore.AddSync(&buf)))
		log.Debug("debug line")
		log.Info("info line")
		_ = log.Sync()

		out := buf.String()
		if !strings.Contains(out, "info line") {
			t.Fatalf("debug=%t: info line missing: %q", debug, out)
		}
		if strings.Contains(out, "debug line") != debug {
			t.Fatalf("debug=%t: unexpected debug output: %q", debug, out)
		}
	}
}
