package core

import "strings"

// Row is one ordered sequence of cells from the source table.
type Row []string

// Grid is the full parsed source table. Row 0 conventionally holds the
// column headers; nothing here enforces that the grid is non-empty or
// rectangular. Rows may have different lengths, and missing cells read
// as empty strings through [Row.Cell].
type Grid []Row

// Cell returns the cell at idx and whether idx is in range.
func (r Row) Cell(idx int) (string, bool) {
	if idx < 0 || idx >= len(r) {
		return "", false
	}
	return r[idx], true
}

// Headers returns row 0, or nil for an empty grid.
func (g Grid) Headers() Row {
	if len(g) == 0 {
		return nil
	}
	return g[0]
}

// DataRows returns every row after the header row.
func (g Grid) DataRows() []Row {
	if len(g) <= 1 {
		return nil
	}
	return g[1:]
}

// Parse tokenizes CSV text into a Grid in a single left-to-right scan.
//
// Cells are separated by commas and trimmed of surrounding whitespace.
// A double quote toggles quoted mode; a doubled quote inside quoted mode
// emits one literal quote (RFC 4180 escaping). Inside quotes, commas and
// line terminators are literal cell content. "\r\n" is consumed as a
// single terminator. Unbalanced quotes are tolerated: the scan simply
// runs to end of input. Rows whose every cell is empty after trimming
// are dropped, and a trailing row with no terminator is still captured.
func Parse(text string) Grid {
	var (
		grid     Grid
		row      Row
		cell     strings.Builder
		inQuotes bool
	)

	endCell := func() {
		row = append(row, strings.TrimSpace(cell.String()))
		cell.Reset()
	}
	endRow := func() {
		endCell()
		if !isBlankRow(row) {
			grid = append(grid, row)
		}
		row = nil
	}

	runes := []rune(text)
	for i := 0; i < len(runes); i++ {
		ch := runes[i]
		switch {
		case ch == '"':
			if inQuotes && i+1 < len(runes) && runes[i+1] == '"' {
				// Escaped quote: emit one and consume the pair.
				cell.WriteRune('"')
				i++
			} else {
				inQuotes = !inQuotes
			}
		case ch == ',' && !inQuotes:
			endCell()
		case (ch == '\n' || ch == '\r') && !inQuotes:
			if ch == '\r' && i+1 < len(runes) && runes[i+1] == '\n' {
				i++
			}
			endRow()
		default:
			cell.WriteRune(ch)
		}
	}

	if cell.Len() > 0 || len(row) > 0 {
		endRow()
	}
	return grid
}

// isBlankRow reports whether every cell in the row is empty.
// Cells are trimmed during tokenization, so no re-trim is needed.
func isBlankRow(row Row) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
