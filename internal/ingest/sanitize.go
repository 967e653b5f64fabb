package ingest

import (
	"strings"

	"golang.org/x/text/encoding/unicode"
)

const byteOrderMark = '\uFEFF'

// Sanitize cleans one raw field: byte order marks are dropped, invalid UTF-8
// becomes U+FFFD, runes outside the allowed ranges are stripped and the result
// is trimmed. Sanitize(Sanitize(s)) == Sanitize(s).
func Sanitize(raw string) string {
	text, err := unicode.UTF8BOM.NewDecoder().String(raw)
	if err != nil {
		text = strings.ToValidUTF8(raw, "\uFFFD")
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if allowedRune(r) {
			b.WriteRune(r)
		}
	}
	return strings.TrimSpace(b.String())
}

// allowedRune accepts printable ASCII, U+00A0-U+D7FF and U+E000-U+FFFD minus the BOM.
func allowedRune(r rune) bool {
	switch {
	case r >= 0x20 && r <= 0x7E:
		return true
	case r >= 0xA0 && r <= 0xD7FF:
		return true
	case r >= 0xE000 && r <= 0xFFFD:
		return r != byteOrderMark
	}
	return false
}
