package client

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/ttd-writer/internal/auditlog"
	"github.com/ginjaninja78/ttd-writer/internal/metrics"
	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// Recorder receives one audit entry per exchange.
type Recorder interface {
	Record(e auditlog.Entry) error
}

const redacted = "***"

// LoggingTransport records every exchange passing through it, whatever its
// outcome. Credentials in authentication bodies are masked.
type LoggingTransport struct {
	Next    Doer
	Audit   Recorder
	Metrics *metrics.Metrics
	Log     *zap.Logger

	now func() time.Time
}

func (t *LoggingTransport) Do(ctx context.Context, req *Request) (*Response, error) {
	now := time.Now
	if t.now != nil {
		now = t.now
	}
	started := now()

	resp, err := t.Next.Do(ctx, req)

	entry := auditlog.Entry{
		Type:    auditlog.TypeAPI,
		Time:    started,
		URL:     req.URL,
		Request: string(req.Body),
	}
	if req.Auth {
		entry.Type = auditlog.TypeAuth
		entry.Request = redact(req.Body, "Password")
	}
	switch {
	case err != nil:
		entry.Response = err.Error()
	case req.Auth:
		entry.Status = resp.StatusCode
		entry.Response = redact(resp.Body, "Token")
	default:
		entry.Status = resp.StatusCode
		entry.Response = string(resp.Body)
	}

	t.Metrics.ObserveCall(req.Method, entry.Status)
	if t.Audit != nil {
		if recErr := t.Audit.Record(entry); recErr != nil {
			if t.Log != nil {
				t.Log.Error("failed to write audit log", zap.Error(recErr))
			}
			if err == nil {
				err = &types.InternalError{Msg: "audit log write failed", Err: recErr}
				resp = nil
			}
		}
	}
	return resp, err
}

// redact masks the named top-level fields of a JSON object body. Bodies that
// are not JSON objects are returned unchanged.
func redact(body []byte, fields ...string) string {
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(body, &obj); err != nil {
		return string(body)
	}
	masked := false
	for _, f := range fields {
		if _, ok := obj[f]; ok {
			obj[f] = json.RawMessage(`"` + redacted + `"`)
			masked = true
		}
	}
	if !masked {
		return string(body)
	}
	out, err := json.Marshal(obj)
	if err != nil {
		return string(body)
	}
	return string(out)
}
