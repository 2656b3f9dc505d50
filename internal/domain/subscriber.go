package domain

import "time"

// SubscriberRecord is the payload sent to Drip for one submission. Empty
// attributes are omitted so an email-only record encodes as {"email": ...}.
type SubscriberRecord struct {
	Email        string            `json:"email"`
	FirstName    string            `json:"first_name,omitempty"`
	LastName     string            `json:"last_name,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Address      string            `json:"address,omitempty"`
	City         string            `json:"city,omitempty"`
	State        string            `json:"state,omitempty"`
	Zip          string            `json:"zip,omitempty"`
	Country      string            `json:"country,omitempty"`
	CustomFields map[string]string `json:"custom_fields,omitempty"`
	Tags         []string          `json:"tags,omitempty"`
	DoubleOptin  *bool             `json:"double_optin,omitempty"`
}

// SetStandard assigns a standard attribute by its canonical name. Unknown
// names are ignored.
func (r *SubscriberRecord) SetStandard(name, value string) {
	switch name {
	case "first_name":
		r.FirstName = value
	case "last_name":
		r.LastName = value
	case "phone":
		r.Phone = value
	case "address":
		r.Address = value
	case "city":
		r.City = value
	case "state":
		r.State = value
	case "zip":
		r.Zip = value
	case "country":
		r.Country = value
	}
}

// NoteType enumerates entry note severities.
type NoteType string

const (
	NoteSuccess NoteType = "success"
	NoteError   NoteType = "error"
)

// Note is an annotation attached to the source entry.
type Note struct {
	ID        string    `json:"id" db:"id"`
	EntryID   string    `json:"entry_id" db:"entry_id"`
	Type      NoteType  `json:"note_type" db:"note_type"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// FeedError is a user-visible processing failure recorded against an entry.
type FeedError struct {
	ID        string    `json:"id" db:"id"`
	FeedID    int64     `json:"feed_id" db:"feed_id"`
	EntryID   string    `json:"entry_id" db:"entry_id"`
	Kind      ErrorKind `json:"kind" db:"kind"`
	Message   string    `json:"message" db:"message"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
