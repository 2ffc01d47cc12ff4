package core

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/traditionalchinese"
)

// DefaultEncoding is used when no encoding has been selected.
const DefaultEncoding = "utf-8"

// legacyEncodings maps selectable encoding names to their decoders.
// UTF-8 is handled separately so a BOM can be stripped and validity
// checked without a transform pass.
var legacyEncodings = map[string]encoding.Encoding{
	"gbk":          simplifiedchinese.GBK,
	"gb18030":      simplifiedchinese.GB18030,
	"shift_jis":    japanese.ShiftJIS,
	"big5":         traditionalchinese.Big5,
	"windows-1252": charmap.Windows1252,
}

// Encodings returns the supported encoding names, UTF-8 first and the
// rest sorted, for the encoding selector in the UI.
func Encodings() []string {
	names := make([]string, 0, len(legacyEncodings)+1)
	for name := range legacyEncodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return append([]string{DefaultEncoding}, names...)
}

// DecodeBytes decodes raw source bytes to text under the named encoding.
//
// Bytes that cannot be decoded yield a [DecodeError]; callers keep any
// previously decoded grid and let the user retry with another encoding.
// For the legacy encodings the x/text decoders substitute U+FFFD for
// invalid sequences instead of failing, so the decoded output is scanned
// for substitutions to surface the error.
func DecodeBytes(data []byte, name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	switch name {
	case "", "utf-8", "utf8":
		data = bytes.TrimPrefix(data, []byte(utf8BOM))
		if !utf8.Valid(data) {
			return "", &DecodeError{Encoding: DefaultEncoding, Reason: "input is not valid UTF-8"}
		}
		return string(data), nil
	}

	enc, ok := legacyEncodings[name]
	if !ok {
		return "", fmt.Errorf("unsupported encoding %q", name)
	}

	decoded, err := enc.NewDecoder().Bytes(data)
	if err != nil {
		return "", &DecodeError{Encoding: name, Reason: err.Error()}
	}
	if bytes.ContainsRune(decoded, utf8.RuneError) {
		return "", &DecodeError{Encoding: name, Reason: "input contains byte sequences invalid for this encoding"}
	}
	return string(decoded), nil
}
