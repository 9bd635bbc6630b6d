package probe

import (
	"bytes"
	"strings"
)

const hexDigits = "0123456789abcdef"

// Line renders the per-iteration report for a raw response.
func Line(resp []byte) string {
	return "received data: " + FormatBytes(resp)
}

// FormatBytes renders b as a Python bytes literal, e.g. b'OK' or b'\x00\n'.
//
// Single quotes are used unless the data contains a single quote and no
// double quote, the same rule Python's repr applies.
func FormatBytes(b []byte) string {
	quote := byte('\'')
	if bytes.IndexByte(b, '\'') >= 0 && bytes.IndexByte(b, '"') < 0 {
		quote = '"'
	}

	var out strings.Builder
	out.Grow(len(b) + 3)
	out.WriteByte('b')
	out.WriteByte(quote)
	for _, c := range b {
		switch {
		case c == quote || c == '\\':
			out.WriteByte('\\')
			out.WriteByte(c)
		case c == '\t':
			out.WriteString(`\t`)
		case c == '\n':
			out.WriteString(`\n`)
		case c == '\r':
			out.WriteString(`\r`)
		case c < 0x20 || c >= 0x7f:
			out.WriteString(`\x`)
			out.WriteByte(hexDigits[c>>4])
			out.WriteByte(hexDigits[c&0x0f])
		default:
			out.WriteByte(c)
		}
	}
	out.WriteByte(quote)
	return out.String()
}
