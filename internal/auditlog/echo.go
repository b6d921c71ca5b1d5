package auditlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"slices"

	"github.com/ginjaninja78/ttd-writer/internal/types"
	"github.com/ginjaninja78/ttd-writer/pkg/utils"
)

// ResponseColumn holds the serialized API response in a result table.
const ResponseColumn = "response"

// EchoWriter writes a result table: every input column of a row followed by
// the API response for that row. The response has its line endings
// normalised like the audit log's bodies.
type EchoWriter struct {
	out     io.WriteCloser
	csv     *csv.Writer
	headers []string
}

// OpenEcho creates a result table at uri with the given input headers.
func OpenEcho(ctx context.Context, uri string, headers []string) (*EchoWriter, error) {
	w, err := utils.CreateWriter(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("open result table: %w", err)
	}
	e, err := NewEcho(w, headers)
	if err != nil {
		w.Close()
		return nil, err
	}
	return e, nil
}

// NewEcho writes the header row to w. An input column already named
// "response" is overwritten rather than repeated.
func NewEcho(w io.WriteCloser, headers []string) (*EchoWriter, error) {
	cols := slices.Clone(headers)
	if !slices.Contains(cols, ResponseColumn) {
		cols = append(cols, ResponseColumn)
	}
	e := &EchoWriter{out: w, csv: csv.NewWriter(w), headers: cols}
	if err := e.csv.Write(cols); err != nil {
		return nil, fmt.Errorf("write result header: %w", err)
	}
	return e, nil
}

// Write appends row with response in the response column.
func (e *EchoWriter) Write(row types.FlatRow, response string) error {
	rec := make([]string, len(e.headers))
	for i, h := range e.headers {
		if h == ResponseColumn {
			rec[i] = normalizeNewlines(response)
			continue
		}
		rec[i] = row[h]
	}
	if err := e.csv.Write(rec); err != nil {
		return fmt.Errorf("write result row: %w", err)
	}
	e.csv.Flush()
	return e.csv.Error()
}

// Close flushes and closes the table.
func (e *EchoWriter) Close() error {
	e.csv.Flush()
	if err := e.csv.Error(); err != nil {
		e.out.Close()
		return err
	}
	return e.out.Close()
}
