package core

import "strings"

// utf8BOM is prepended to exported documents so spreadsheet tools detect
// the encoding correctly.
const utf8BOM = "\ufeff"

// Emit renders the complete output CSV document: one header line built
// from the configuration's header labels, followed by one line per data
// row of the grid (row 0, the source header row, is never re-emitted).
//
// Header labels are joined unquoted. Every data cell is quoted
// unconditionally with embedded quotes doubled, so any value survives a
// round trip through [Parse]. Lines are joined with "\n".
func Emit(cfg Configuration, grid Grid, filename string) string {
	var b strings.Builder
	b.WriteString(strings.Join(cfg.Headers(), ","))

	for _, row := range grid.DataRows() {
		b.WriteByte('\n')
		for i, v := range Evaluate(cfg, row, filename) {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteByte('"')
			b.WriteString(strings.ReplaceAll(v, `"`, `""`))
			b.WriteByte('"')
		}
	}
	return b.String()
}

// EmitDocument renders the export as bytes with the UTF-8 byte-order
// mark prefix expected by downstream spreadsheet tools.
func EmitDocument(cfg Configuration, grid Grid, filename string) []byte {
	return append([]byte(utf8BOM), Emit(cfg, grid, filename)...)
}
