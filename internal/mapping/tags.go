package mapping

import (
	"strings"

	"github.com/samber/lo"
)

// ParseTags splits a comma-separated tag string. Tokens are trimmed and
// sanitized, empty tokens dropped. Order and duplicates are preserved.
func ParseTags(raw string) []string {
	tags := lo.FilterMap(strings.Split(raw, ","), func(tok string, _ int) (string, bool) {
		tok = Sanitize(tok)
		return tok, tok != ""
	})
	if len(tags) == 0 {
		return nil
	}
	return tags
}
