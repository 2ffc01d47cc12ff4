package core

import "strings"

// fullwidthOffset is the fixed distance between the full-width forms
// block (U+FF01..U+FF5E) and their ASCII equivalents.
const fullwidthOffset = 0xFEE0

// Evaluate maps one source row through the configuration, producing one
// output string per descriptor in configuration order.
//
// Evaluation is pure and total: unresolvable references yield empty
// strings, never errors.
func Evaluate(cfg Configuration, row Row, filename string) []string {
	out := make([]string, len(cfg))
	for i, d := range cfg {
		out[i] = evalField(d, row, filename)
	}
	return out
}

func evalField(d FieldDescriptor, row Row, filename string) string {
	switch d.Kind {
	case KindFilename:
		return filename
	case KindConstant:
		return d.Text
	case KindColumn:
		if !d.Column.Valid {
			return ""
		}
		v, _ := row.Cell(d.Column.N)
		return v
	case KindSmartAnswer:
		return resolveAnswer(d.Answer, row)
	}
	return ""
}

// resolveAnswer decodes a quiz answer key into either the normalized key
// or the text of the option it references.
//
// When the key does not decode to an option position, or the mapped slot
// is unset or out of range, the raw trimmed key is returned instead of an
// empty string. That keeps misconfiguration visible in the preview rather
// than producing blank cells that look like a successful mapping.
func resolveAnswer(ac *AnswerConfig, row Row) string {
	if ac == nil || !ac.KeySource.Valid {
		return ""
	}
	raw, _ := row.Cell(ac.KeySource.N)
	raw = strings.TrimSpace(raw)
	key := NormalizeKey(raw)

	if ac.Mode != ModeContent {
		return key
	}

	if pos := decodeKeyPosition(key); pos >= 0 && pos < len(ac.Options) {
		if col := ac.Options[pos]; col.Valid {
			if v, ok := row.Cell(col.N); ok {
				return v
			}
		}
	}
	return raw
}

// NormalizeKey uppercases a raw answer key, folding full-width Latin
// letters and digits to their half-width equivalents first. All other
// characters pass through unchanged.
func NormalizeKey(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if (r >= 'Ａ' && r <= 'Ｚ') || (r >= 'ａ' && r <= 'ｚ') || (r >= '０' && r <= '９') {
			r -= fullwidthOffset
		}
		b.WriteRune(r)
	}
	return strings.ToUpper(b.String())
}

// decodeKeyPosition maps a normalized single-character key to a
// zero-based option position: 'A'..'Z' by alphabet index, '1'..'9' by
// digit value. Returns -1 when the key does not decode.
func decodeKeyPosition(key string) int {
	runes := []rune(key)
	if len(runes) != 1 {
		return -1
	}
	switch r := runes[0]; {
	case r >= 'A' && r <= 'Z':
		return int(r - 'A')
	case r >= '1' && r <= '9':
		return int(r - '1')
	}
	return -1
}
