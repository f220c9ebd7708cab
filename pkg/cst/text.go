package cst

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/unicode"
)

// replacementChar substitutes each malformed byte sequence.
const replacementChar = "�"

// DecodeText converts raw source bytes to a string, replacing invalid UTF-8
// with U+FFFD. It never fails.
func DecodeText(raw []byte) string {
	if utf8.Valid(raw) {
		return string(raw)
	}

	decoded, err := unicode.UTF8.NewDecoder().Bytes(raw)
	if err != nil {
		return strings.ToValidUTF8(string(raw), replacementChar)
	}

	return string(decoded)
}
