package mapping

import (
	"strings"
	"unicode"

	"github.com/k3a/html2text"
)

// Sanitize strips markup and control characters from s, collapses runs of
// whitespace and trims the result. A "<" that does not open a tag is text.
func Sanitize(s string) string {
	if strings.ContainsAny(s, "<&") {
		s = html2text.HTML2Text(escapeBareLT(s))
	}
	s = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
	return strings.Join(strings.Fields(s), " ")
}

// escapeBareLT rewrites every "<" not followed by a letter, "/" or "!" as
// "&lt;" so the markup stripper keeps it.
func escapeBareLT(s string) string {
	if !strings.Contains(s, "<") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); i++ {
		if s[i] == '<' && !opensTag(s[i+1:]) {
			b.WriteString("&lt;")
			continue
		}
		b.WriteByte(s[i])
	}
	return b.String()
}

func opensTag(rest string) bool {
	if rest == "" {
		return false
	}
	c := rest[0]
	return c == '/' || c == '!' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}
