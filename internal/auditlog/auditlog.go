// =============================================================================
// TTD Writer - Audit Log
// =============================================================================
//
// Every API exchange is appended to a CSV table so a partially completed run
// can be reconciled by hand. The table has one header row:
//
//   type,timestamp,pk,http_status,url,request,response
//
// type is "auth" for authentication exchanges and "api" for the rest. pk is
// an md5 over the request body and the exchange time, so retried requests
// get distinct keys. Request and response bodies are CSV-escaped as written,
// except that line endings are normalised: "\r\n" and a lone "\r" are both
// stored as "\n". CSV readers fold CRLF inside quoted fields, so this keeps
// what is read back identical to what was written.
//
// Each row is flushed immediately and also emitted on the console logger.
//
// =============================================================================

package auditlog

import (
	"context"
	"crypto/md5"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ginjaninja78/ttd-writer/pkg/utils"
)

// Entry types.
const (
	TypeAPI  = "api"
	TypeAuth = "auth"
)

// TimestampFormat is the layout of the timestamp column.
const TimestampFormat = "2006-01-02T15:04:05"

// Header is the first row of every audit log.
var Header = []string{"type", "timestamp", "pk", "http_status", "url", "request", "response"}

// =============================================================================
// ENTRY
// =============================================================================

// Entry is one API exchange.
type Entry struct {
	Type     string
	Time     time.Time
	Status   int
	URL      string
	Request  string
	Response string
}

// PK derives the primary key of an exchange from its request body and time.
func PK(request string, t time.Time) string {
	sum := md5.Sum([]byte(request + strconv.FormatInt(t.UnixNano(), 10)))
	return hex.EncodeToString(sum[:])
}

func (e Entry) row() []string {
	return []string{
		e.Type,
		e.Time.Format(TimestampFormat),
		PK(e.Request, e.Time),
		strconv.Itoa(e.Status),
		e.URL,
		normalizeNewlines(e.Request),
		normalizeNewlines(e.Response),
	}
}

var newlines = strings.NewReplacer("\r\n", "\n", "\r", "\n")

func normalizeNewlines(s string) string {
	return newlines.Replace(s)
}

// =============================================================================
// LOGGER
// =============================================================================

// Logger writes audit rows. It is safe for concurrent use.
type Logger struct {
	mu  sync.Mutex
	out io.WriteCloser
	csv *csv.Writer
	log *zap.Logger
}

// Open creates the audit log at uri (local path or s3://) and writes the
// header row.
func Open(ctx context.Context, uri string, log *zap.Logger) (*Logger, error) {
	w, err := utils.CreateWriter(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	l, err := New(w, log)
	if err != nil {
		w.Close()
		return nil, err
	}
	return l, nil
}

// New writes the header row to w and returns a Logger appending to it.
func New(w io.WriteCloser, log *zap.Logger) (*Logger, error) {
	if log == nil {
		log = zap.NewNop()
	}
	l := &Logger{out: w, csv: csv.NewWriter(w), log: log.Named("cdc")}
	if err := l.write(Header); err != nil {
		return nil, fmt.Errorf("write audit log header: %w", err)
	}
	return l, nil
}

// Record appends one exchange.
func (l *Logger) Record(e Entry) error {
	row := e.row()
	l.log.Info("api exchange",
		zap.String("type", row[0]),
		zap.String("pk", row[2]),
		zap.Int("http_status", e.Status),
		zap.String("url", e.URL),
		zap.String("request", row[5]),
		zap.String("response", row[6]),
	)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err := l.write(row); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.csv.Flush()
	if err := l.csv.Error(); err != nil {
		l.out.Close()
		return err
	}
	return l.out.Close()
}

func (l *Logger) write(row []string) error {
	if err := l.csv.Write(row); err != nil {
		return err
	}
	l.csv.Flush()
	return l.csv.Error()
}
