package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StandardFieldNames are the Drip subscriber attributes mapped one-to-one
// from form fields, in payload order.
var StandardFieldNames = []string{
	"first_name",
	"last_name",
	"phone",
	"address",
	"city",
	"state",
	"zip",
	"country",
}

// ReservedFieldNames are Drip identifiers handled outside the custom field map.
var ReservedFieldNames = append([]string{"email"}, StandardFieldNames...)

// FeedConfig binds one form's fields to one outbound Drip subscriber record.
type FeedConfig struct {
	ID             int64             `json:"id" db:"id"`
	FormID         int64             `json:"form_id" db:"form_id"`
	Name           string            `json:"feed_name" db:"name"`
	IsActive       bool              `json:"is_active" db:"is_active"`
	EmailField     string            `json:"email,omitempty"`
	FieldMap       map[string]string `json:"field_map,omitempty"`
	StandardFields map[string]string `json:"standard_fields,omitempty"`
	CustomFields   CustomFieldMap    `json:"custom_fields,omitempty"`
	Tags           string            `json:"tags,omitempty"`
	DoubleOptin    bool              `json:"double_optin,omitempty"`
	Condition      ConditionalLogic  `json:"feed_condition"`
	CreatedAt      time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at" db:"updated_at"`
}

// EmailRef returns the form field bound to the subscriber email, preferring
// the direct reference over the generic field map.
func (f FeedConfig) EmailRef() string {
	if ref := strings.TrimSpace(f.EmailField); ref != "" {
		return ref
	}
	return strings.TrimSpace(f.FieldMap["email"])
}

// DisplayName is the feed name shown in feed lists.
func (f FeedConfig) DisplayName() string {
	if name := strings.TrimSpace(f.Name); name != "" {
		return name
	}
	return fmt.Sprintf("Drip Feed #%d", f.ID)
}

// ConditionalLogic gates a feed on the submitted entry.
type ConditionalLogic struct {
	Enabled    bool            `json:"enabled"`
	ActionType string          `json:"action_type,omitempty"` // "show" (send when matched) or "hide"
	LogicType  string          `json:"logic_type,omitempty"`  // "all" or "any"
	Rules      []ConditionRule `json:"rules,omitempty"`
}

// ConditionRule compares one entry value against a literal.
type ConditionRule struct {
	FieldID  string `json:"field_id"`
	Operator string `json:"operator"`
	Value    string `json:"value"`
}

// CustomFieldPair binds a Drip custom field identifier to a form field.
type CustomFieldPair struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// CustomFieldMap is the ordered custom field binding list. It decodes both
// the current {"key":..,"value":..} element encoding and the legacy
// single-entry {"drip_field":"form_field"} encoding; both collapse into
// CustomFieldPair and it always encodes in the current form.
type CustomFieldMap []CustomFieldPair

// pairEncoding is one stored element of a custom field map.
type pairEncoding interface {
	canonical() CustomFieldPair
}

// modernPair is the generic-map element written by current versions.
type modernPair struct{ key, value string }

func (p modernPair) canonical() CustomFieldPair { return CustomFieldPair{Key: p.key, Value: p.value} }

// legacyPair is the associative element written by early versions.
type legacyPair struct{ key, value string }

func (p legacyPair) canonical() CustomFieldPair { return CustomFieldPair{Key: p.key, Value: p.value} }

// UnmarshalJSON accepts a list of elements in either encoding, or a single
// associative object whose members are read as legacy pairs in order.
func (m *CustomFieldMap) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = nil
		return nil
	}

	if data[0] == '{' {
		members, err := orderedMembers(data)
		if err != nil {
			return fmt.Errorf("custom_fields: %w", err)
		}
		out := make(CustomFieldMap, 0, len(members))
		for _, mem := range members {
			out = append(out, legacyPair{key: mem.key, value: scalarString(mem.raw)}.canonical())
		}
		*m = out
		return nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return fmt.Errorf("custom_fields: %w", err)
	}
	out := make(CustomFieldMap, 0, len(elems))
	for i, raw := range elems {
		enc, err := decodePairElement(raw)
		if err != nil {
			return fmt.Errorf("custom_fields[%d]: %w", i, err)
		}
		if enc == nil {
			continue
		}
		out = append(out, enc.canonical())
	}
	*m = out
	return nil
}

func decodePairElement(raw json.RawMessage) (pairEncoding, error) {
	members, err := orderedMembers(raw)
	if err != nil {
		return nil, err
	}
	if len(members) == 0 {
		return nil, nil
	}

	var key, value json.RawMessage
	var hasKey, hasValue bool
	for _, mem := range members {
		switch mem.key {
		case "key":
			key, hasKey = mem.raw, true
		case "value":
			value, hasValue = mem.raw, true
		}
	}
	if hasKey && hasValue {
		return modernPair{key: scalarString(key), value: scalarString(value)}, nil
	}
	return legacyPair{key: members[0].key, value: scalarString(members[0].raw)}, nil
}

type member struct {
	key string
	raw json.RawMessage
}

// orderedMembers decodes a JSON object keeping member order.
func orderedMembers(data []byte) ([]member, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}
	var out []member
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return nil, err
		}
		out = append(out, member{key: key, raw: raw})
	}
	return out, nil
}

// scalarString renders a JSON scalar as the string a form would have stored.
// Field IDs arrive both as "3" and 3.
func scalarString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
