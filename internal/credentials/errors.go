package credentials

import "errors"

// Sentinel errors for the credentials service layer.
var (
	ErrNotFound = errors.New("settings not found")
)
