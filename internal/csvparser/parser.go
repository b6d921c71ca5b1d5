// =============================================================================
// TTD Writer - CSV Parser Module
// =============================================================================
//
// This module reads the input tables Keboola places in data/in/tables. It
// handles:
//   - Different delimiters (comma, pipe, tab, semicolon)
//   - A UTF-8 byte order mark on the header row
//   - Short rows (missing trailing cells read as "")
//   - Quoted fields holding JSON text with embedded commas and newlines
//
// The whole table is read into memory: the path/value format has to be
// sorted by identifier before it can be grouped, so nothing is gained by
// streaming.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ginjaninja78/ttd-writer/internal/config"
	"github.com/ginjaninja78/ttd-writer/internal/types"
)

const bom = "\ufeff"

// =============================================================================
// PARSER FUNCTIONS
// =============================================================================

// Parse reads a CSV file into a Table.
//
// PARAMETERS:
//   - filePath: The path to the CSV file.
//   - settings: The CSV parsing settings from the writer configuration.
//
// RETURNS:
//   - The parsed table.
//   - A *types.ConfigError when the file has no header row, or a wrapped
//     I/O or CSV syntax error.
func Parse(filePath string, settings config.CSVSettings) (*types.Table, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	table, err := Read(file, settings)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filePath, err)
	}
	table.SourceFile = filePath
	return table, nil
}

// Read parses CSV content from r.
func Read(r io.Reader, settings config.CSVSettings) (*types.Table, error) {
	csvReader := csv.NewReader(bufio.NewReader(r))
	configureReader(csvReader, settings)

	allRows, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	if len(allRows) == 0 {
		return nil, types.NewConfigError("CSV file is empty, a header row is required")
	}

	headers := cleanHeaders(allRows[0])
	return &types.Table{
		Headers: headers,
		Rows:    extractDataRows(allRows[1:], headers),
	}, nil
}

// configureReader configures the CSV reader based on the settings.
func configureReader(reader *csv.Reader, settings config.CSVSettings) {
	switch settings.Delimiter {
	case "\\t", "\t", "tab", "TAB":
		reader.Comma = '\t'
	case "|", "pipe", "PIPE":
		reader.Comma = '|'
	case ";", "semicolon":
		reader.Comma = ';'
	default:
		if len(settings.Delimiter) > 0 {
			reader.Comma = rune(settings.Delimiter[0])
		} else {
			reader.Comma = ','
		}
	}

	// Allow variable number of fields per row.
	reader.FieldsPerRecord = -1
}

// cleanHeaders trims header names and drops a leading byte order mark.
func cleanHeaders(headers []string) []string {
	cleaned := make([]string, len(headers))
	for i, header := range headers {
		if i == 0 {
			header = strings.TrimPrefix(header, bom)
		}
		cleaned[i] = strings.TrimSpace(header)
	}
	return cleaned
}

// extractDataRows converts raw records to FlatRows, skipping blank lines.
func extractDataRows(rows [][]string, headers []string) []types.FlatRow {
	dataRows := make([]types.FlatRow, 0, len(rows))
	for _, row := range rows {
		if isRowEmpty(row) {
			continue
		}

		rowMap := make(types.FlatRow, len(headers))
		for colIndex, header := range headers {
			if colIndex < len(row) {
				rowMap[header] = row[colIndex]
			} else {
				rowMap[header] = ""
			}
		}
		dataRows = append(dataRows, rowMap)
	}
	return dataRows
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

// =============================================================================
// UTILITY FUNCTIONS
// =============================================================================

// RequireColumns checks that every column is present in the table header.
// The first missing column is reported together with the table's file.
func RequireColumns(table *types.Table, columns ...string) error {
	for _, col := range columns {
		if !table.HasColumn(col) {
			return types.NewConfigError("column '%s' is missing in file '%s' (found columns %v)",
				col, table.SourceFile, table.Headers)
		}
	}
	return nil
}
