package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"
)

// Credentials authenticate against the Drip API. AccountID is always stored
// in its normalized (canonical) form.
type Credentials struct {
	APIToken  string `json:"api_token" db:"api_token"`
	AccountID string `json:"account_id" db:"account_id"`
}

// Complete reports whether both the token and the account ID are set.
func (c Credentials) Complete() bool {
	return strings.TrimSpace(c.APIToken) != "" && strings.TrimSpace(c.AccountID) != ""
}

// CacheKey identifies the credential pair without exposing the token.
func (c Credentials) CacheKey() string {
	sum := sha256.Sum256([]byte(c.APIToken + ":" + c.AccountID))
	return hex.EncodeToString(sum[:])
}

// Masked returns a copy safe to return from the settings API.
func (c Credentials) Masked() Credentials {
	out := c
	if n := len(c.APIToken); n > 4 {
		out.APIToken = strings.Repeat("*", n-4) + c.APIToken[n-4:]
	} else if n > 0 {
		out.APIToken = "****"
	}
	return out
}

// Settings is the persisted add-on configuration.
type Settings struct {
	Credentials
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ConnectionStatus is the cached outcome of a credential check.
type ConnectionStatus struct {
	Valid        bool      `json:"valid"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CheckedAt    time.Time `json:"checked_at"`
}
