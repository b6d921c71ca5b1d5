// =============================================================================
// TTD Writer - XLSX Parser Module
// =============================================================================
//
// Operators sometimes upload the input tables as Excel workbooks instead of
// CSV. This module reads the first sheet of such a workbook into the same
// Table shape the CSV parser produces, so the rest of the pipeline does not
// care which one it got.
//
// SHEET LAYOUT:
//   Row 1     : column headers (identifier columns, path, value, payload ...)
//   Row 2..N  : data rows
//
// Cells are read as their formatted text. Numeric cells therefore arrive as
// strings and are coerced by the schema like any CSV value.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/ttd-writer/internal/types"
)

// Parse reads the first sheet of the workbook at path.
//
// PARAMETERS:
//   - path: The path to the .xlsx file.
//
// RETURNS:
//   - The parsed table.
//   - An error if the workbook cannot be opened or has no header row.
func Parse(path string) (*types.Table, error) {
	return ParseSheet(path, "")
}

// ParseSheet reads the named sheet. An empty name selects the first sheet.
func ParseSheet(path, sheetName string) (*types.Table, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	if sheetName == "" {
		sheetName = f.GetSheetName(0)
	}
	if sheetName == "" {
		return nil, types.NewConfigError("workbook '%s' has no sheets", path)
	}

	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to read rows of sheet %q: %w", sheetName, err)
	}
	if len(rows) == 0 {
		return nil, types.NewConfigError("sheet '%s' of workbook '%s' is empty, a header row is required", sheetName, path)
	}

	headers := make([]string, len(rows[0]))
	for i, h := range rows[0] {
		headers[i] = strings.TrimSpace(h)
	}

	table := &types.Table{
		Headers:    headers,
		Rows:       make([]types.FlatRow, 0, len(rows)-1),
		SourceFile: path,
	}
	for _, row := range rows[1:] {
		// GetRows drops trailing empty cells, so short rows are normal.
		if isRowEmpty(row) {
			continue
		}
		flat := make(types.FlatRow, len(headers))
		for i, h := range headers {
			if i < len(row) {
				flat[h] = row[i]
			} else {
				flat[h] = ""
			}
		}
		table.Rows = append(table.Rows, flat)
	}
	return table, nil
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
