// =============================================================================
// TTD Writer - Shared Types
// =============================================================================
//
// This package contains shared types used across multiple modules to avoid
// import cycles. Types defined here are used by:
//   - csvparser / xlsxparser (Table)
//   - converter / validation (Document, Record)
//   - staging / workflow (StagedRecord)
//
// =============================================================================

package types

// =============================================================================
// TABULAR INPUT
// =============================================================================

// FlatRow is one input record keyed by column header.
type FlatRow map[string]string

// Table is a fully read input table.
type Table struct {
	// Headers are the column names in file order.
	Headers []string

	// Rows holds the data rows. Cells missing from short rows are "".
	Rows []FlatRow

	// SourceFile is the path the table was read from.
	SourceFile string
}

// HasColumn reports whether the table header contains name.
func (t *Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

// =============================================================================
// DOCUMENTS
// =============================================================================

// Document is a nested JSON-compatible object. Values are strings, numbers,
// bools, nested Documents or []any.
type Document = map[string]any

// PathValue is one leaf of a document addressed by a delimited path.
type PathValue struct {
	Path  string
	Value string
}

// Record is one logical entity read from an input table.
type Record struct {
	// Keys holds the identifier values in identifier-column order.
	Keys []string

	// Doc is the nested (and, once validated, coerced) payload.
	Doc Document

	// Source is the file the record came from.
	Source string

	// Row is the input row for formats with one row per record. It is nil
	// for the path/value format, where a record spans several rows.
	Row FlatRow
}

// Key returns the first identifier value, or "" when there is none.
func (r Record) Key() string {
	if len(r.Keys) == 0 {
		return ""
	}
	return r.Keys[0]
}

// =============================================================================
// STAGING
// =============================================================================

// StagedRecord is a validated payload persisted between ingestion and
// orchestration.
type StagedRecord struct {
	// CampaignID is the campaign identifier (placeholder or real).
	CampaignID string

	// AdGroupID is the ad-group identifier. Empty for campaigns.
	AdGroupID string

	// Payload is the request body with identifier fields stripped.
	Payload Document

	// Row is the input row, kept for flows that echo it into a result
	// table. Nil otherwise.
	Row FlatRow
}
