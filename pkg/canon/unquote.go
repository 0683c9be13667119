package canon

import (
	"strings"
	"unicode/utf8"
)

// Unquote decodes percent-encoded sequences in s.
//
// Unlike url.PathUnescape it never fails. A run of consecutive %XX escapes is
// replaced by its bytes only when those bytes form valid UTF-8; otherwise the
// run is copied through unchanged, as is any '%' not followed by two hex digits.
// '+' is left alone.
func Unquote(s string) string {
	if !strings.Contains(s, "%") {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); {
		if !isEscape(s, i) {
			b.WriteByte(s[i])
			i++
			continue
		}

		start := i
		var run []byte
		for isEscape(s, i) {
			run = append(run, unhex(s[i+1])<<4|unhex(s[i+2]))
			i += 3
		}
		if utf8.Valid(run) {
			b.Write(run)
		} else {
			b.WriteString(s[start:i])
		}
	}
	return b.String()
}

func isEscape(s string, i int) bool {
	return i+2 < len(s) && s[i] == '%' && isHex(s[i+1]) && isHex(s[i+2])
}

func isHex(c byte) bool {
	return ('0' <= c && c <= '9') || ('a' <= c && c <= 'f') || ('A' <= c && c <= 'F')
}

func unhex(c byte) byte {
	switch {
	case '0' <= c && c <= '9':
		return c - '0'
	case 'a' <= c && c <= 'f':
		return c - 'a' + 10
	default:
		return c - 'A' + 10
	}
}
