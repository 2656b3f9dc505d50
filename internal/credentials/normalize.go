package credentials

import (
	"net/url"
	"strings"
	"unicode"
)

// NormalizeAccountID accepts a bare account ID, a Drip URL such as
// https://www.getdrip.com/123456/dashboard, or a path like "123456/" and
// returns the canonical ID. Applying it twice gives the same result.
func NormalizeAccountID(raw string) string {
	s := strings.TrimSpace(raw)

	switch {
	case strings.Contains(s, "://"):
		if u, err := url.Parse(s); err == nil {
			s = firstSegment(u.Path)
		} else {
			rest := s[strings.Index(s, "://")+3:]
			if i := strings.Index(rest, "/"); i >= 0 {
				rest = rest[i:]
			} else {
				rest = ""
			}
			s = firstSegment(rest)
		}
	case strings.Contains(s, "/"):
		s = firstSegment(s)
	}

	return digitsOnly(strings.TrimSpace(s))
}

func firstSegment(path string) string {
	for _, seg := range strings.Split(path, "/") {
		if seg = strings.TrimSpace(seg); seg != "" {
			return seg
		}
	}
	return ""
}

// digitsOnly strips non-digits from a value that mixes digits with other
// characters. Values without any digit are returned unchanged.
func digitsOnly(s string) string {
	var digits strings.Builder
	mixed := false
	for _, r := range s {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		} else {
			mixed = true
		}
	}
	if !mixed || digits.Len() == 0 {
		return s
	}
	return digits.String()
}

// clean trims s and drops control characters.
func clean(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, s))
}
