package feed

import "errors"

// Sentinel errors for the feed service layer.
var (
	ErrNotFound = errors.New("feed not found")
)

// ValidationError lists feed fields that failed validation, keyed by the
// field's JSON name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	return "feed settings are invalid"
}
