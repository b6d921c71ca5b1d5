// =============================================================================
// TTD Writer - Ingestion Pipeline
// =============================================================================
//
// This module turns one input table into a sequence of validated records.
//
// PROCESSING PIPELINE:
//   1. Read the table (.csv or .xlsx)
//   2. Check the columns the format requires
//   3. Build one nested document per record:
//      - long : sort and group path/value rows by identifier, tangle paths
//      - wide : decode the JSON "payload" column
//      - flat : tangle the row's column names as paths
//   4. Validate and coerce the document against the entity schema
//
// The sequence is lazy and can be ranged over any number of times; every
// pass re-reads the file and yields the same records in the same order. It
// stops at the first error.
//
// =============================================================================

package converter

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"path/filepath"
	"slices"
	"strings"

	"go.uber.org/zap"

	"github.com/ginjaninja78/ttd-writer/internal/config"
	"github.com/ginjaninja78/ttd-writer/internal/csvparser"
	"github.com/ginjaninja78/ttd-writer/internal/types"
	"github.com/ginjaninja78/ttd-writer/internal/xlsxparser"
)

// PayloadColumn holds the pre-serialized JSON document in the wide format.
const PayloadColumn = "payload"

// =============================================================================
// TYPES
// =============================================================================

// Validator validates and coerces one document.
type Validator interface {
	Validate(doc types.Document) (types.Document, error)
}

// Source describes one input table and how its records are laid out.
type Source struct {
	// Path is the table's location on disk.
	Path string

	// Format is one of config.FormatLong, FormatWide or FormatFlat.
	Format string

	// IDColumns name the identifier columns, in tuple order.
	IDColumns []string

	// IncludeID copies the identifier values into the document.
	IncludeID bool

	// IDFields are the document fields the identifier values are copied
	// to. Defaults to IDColumns.
	IDFields []string

	// CSV holds the parsing options for .csv tables.
	CSV config.CSVSettings
}

// Pipeline reads a Source and validates each record with Schema.
type Pipeline struct {
	Source

	// Schema validates each document. Nil skips validation.
	Schema Validator

	// Log receives progress messages. Nil discards them.
	Log *zap.Logger
}

// =============================================================================
// PIPELINE
// =============================================================================

// Records yields the validated records of the table.
func (p Pipeline) Records() iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		p.logger().Info("parsing input table",
			zap.String("file", p.Path), zap.String("format", p.Format))

		for rec, err := range p.Source.Records() {
			if err != nil {
				yield(types.Record{}, err)
				return
			}
			if p.Schema != nil {
				doc, err := p.Schema.Validate(rec.Doc)
				if err != nil {
					yield(types.Record{}, annotate(err, p.Path, rec.Keys))
					return
				}
				rec.Doc = doc
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Collect drains Records. Either every record is valid and all are
// returned, or the first error is.
func (p Pipeline) Collect() ([]types.Record, error) {
	var out []types.Record
	for rec, err := range p.Records() {
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (p Pipeline) logger() *zap.Logger {
	if p.Log == nil {
		return zap.NewNop()
	}
	return p.Log
}

// =============================================================================
// SOURCE
// =============================================================================

// Records yields the unvalidated records of the table.
func (s Source) Records() iter.Seq2[types.Record, error] {
	return func(yield func(types.Record, error) bool) {
		table, err := LoadTable(s.Path, s.CSV)
		if err != nil {
			yield(types.Record{}, err)
			return
		}

		var build func(*types.Table, func(types.Record, error) bool)
		switch s.Format {
		case config.FormatLong, "":
			build = s.long
		case config.FormatWide:
			build = s.wide
		case config.FormatFlat:
			build = s.flat
		default:
			yield(types.Record{}, &types.InternalError{Msg: fmt.Sprintf("unknown input format %q", s.Format)})
			return
		}
		build(table, yield)
	}
}

// long handles the path/value format.
func (s Source) long(table *types.Table, yield func(types.Record, error) bool) {
	required := append([]string{PathColumn, ValueColumn}, s.IDColumns...)
	if err := csvparser.RequireColumns(table, required...); err != nil {
		yield(types.Record{}, err)
		return
	}

	for _, g := range GroupRows(table.Rows, s.IDColumns) {
		doc, err := g.Document(s.idFields(), s.IncludeID)
		if err != nil {
			yield(types.Record{}, annotate(err, s.Path, g.Keys))
			return
		}
		if !yield(types.Record{Keys: g.Keys, Doc: doc, Source: s.Path}, nil) {
			return
		}
	}
}

// wide handles one JSON payload per row, in file order.
func (s Source) wide(table *types.Table, yield func(types.Record, error) bool) {
	required := append(append([]string{}, s.IDColumns...), PayloadColumn)
	if err := csvparser.RequireColumns(table, required...); err != nil {
		yield(types.Record{}, err)
		return
	}

	for _, row := range table.Rows {
		keys := keyOf(row, s.IDColumns)
		var doc types.Document
		if err := json.Unmarshal([]byte(row[PayloadColumn]), &doc); err != nil || doc == nil {
			msg := "payload is not a JSON object"
			if err != nil {
				msg = "payload is not valid JSON: " + err.Error()
			}
			yield(types.Record{}, annotate(&types.ValidationError{Path: PayloadColumn, Message: msg}, s.Path, keys))
			return
		}
		if s.IncludeID {
			for i, field := range s.idFields() {
				doc[field] = keys[i]
			}
		}
		if !yield(types.Record{Keys: keys, Doc: doc, Source: s.Path, Row: row}, nil) {
			return
		}
	}
}

// flat handles one record per row with "__"-delimited column names. Column
// names are tangled like long-format paths, so they may nest to any depth
// and carry array indices.
func (s Source) flat(table *types.Table, yield func(types.Record, error) bool) {
	if err := csvparser.RequireColumns(table, s.IDColumns...); err != nil {
		yield(types.Record{}, err)
		return
	}

	columns := make([]string, 0, len(table.Headers))
	for _, h := range table.Headers {
		if !slices.Contains(s.IDColumns, h) {
			columns = append(columns, h)
		}
	}

	for _, row := range table.Rows {
		keys := keyOf(row, s.IDColumns)
		pairs := make([]types.PathValue, 0, len(columns)+len(keys))
		for _, col := range columns {
			pairs = append(pairs, types.PathValue{Path: col, Value: row[col]})
		}
		if s.IncludeID {
			for i, field := range s.idFields() {
				pairs = append(pairs, types.PathValue{Path: field, Value: keys[i]})
			}
		}
		doc, err := Tangle(pairs)
		if err != nil {
			yield(types.Record{}, annotate(err, s.Path, keys))
			return
		}
		if !yield(types.Record{Keys: keys, Doc: doc, Source: s.Path, Row: row}, nil) {
			return
		}
	}
}

func (s Source) idFields() []string {
	if len(s.IDFields) == len(s.IDColumns) {
		return s.IDFields
	}
	return s.IDColumns
}

// LoadTable reads a .csv or .xlsx table.
func LoadTable(path string, settings config.CSVSettings) (*types.Table, error) {
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		return xlsxparser.Parse(path)
	}
	return csvparser.Parse(path, settings)
}

// annotate records the file and identifier of a failing record on every
// validation error err carries.
func annotate(err error, path string, keys []string) error {
	src := path
	if len(keys) > 0 {
		src = fmt.Sprintf("%s %v", path, keys)
	}

	var visit func(error)
	visit = func(e error) {
		if multi, ok := e.(interface{ Unwrap() []error }); ok {
			for _, inner := range multi.Unwrap() {
				visit(inner)
			}
			return
		}
		var ve *types.ValidationError
		if errors.As(e, &ve) && ve.Source == "" {
			ve.Source = src
		}
	}
	visit(err)
	return err
}
