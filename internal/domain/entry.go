package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Entry is one form submission. It travels as a flat JSON object, the way
// the form platform stores it: "id" and "form_id" plus one member per field
// input ("3", "1.3", ...). Nested objects are reachable by slash paths.
type Entry struct {
	ID     string
	FormID string
	Values map[string]any
}

// Value resolves a field reference against the entry. ok is false when the
// reference is blank, unknown, or holds null. An explicit "" or "0" is present.
func (e Entry) Value(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	switch ref {
	case "":
		return "", false
	case "id":
		return e.ID, e.ID != ""
	case "form_id":
		return e.FormID, e.FormID != ""
	}

	if v, ok := e.Values[ref]; ok {
		return stringify(v)
	}
	if !strings.Contains(ref, "/") {
		return "", false
	}

	var cur any = e.Values
	for _, seg := range strings.Split(ref, "/") {
		if seg == "" {
			continue
		}
		m, ok := cur.(map[string]any)
		if !ok {
			return "", false
		}
		if cur, ok = m[seg]; !ok {
			return "", false
		}
	}
	return stringify(cur)
}

func stringify(v any) (string, bool) {
	switch t := v.(type) {
	case nil:
		return "", false
	case string:
		return t, true
	case json.Number:
		return t.String(), true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case int64:
		return strconv.FormatInt(t, 10), true
	case bool:
		if t {
			return "1", true
		}
		return "", true
	case []any:
		parts := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := stringify(item); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), true
	default:
		return fmt.Sprintf("%v", t), true
	}
}

// UnmarshalJSON reads the flat entry object.
func (e *Entry) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("entry: %w", err)
	}

	out := Entry{Values: make(map[string]any, len(raw))}
	for k, v := range raw {
		switch k {
		case "id":
			out.ID, _ = stringify(v)
		case "form_id":
			out.FormID, _ = stringify(v)
		default:
			out.Values[k] = v
		}
	}
	*e = out
	return nil
}

// MarshalJSON writes the flat entry object.
func (e Entry) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(e.Values)+2)
	for k, v := range e.Values {
		flat[k] = v
	}
	if e.ID != "" {
		flat["id"] = e.ID
	}
	if e.FormID != "" {
		flat["form_id"] = e.FormID
	}
	return json.Marshal(flat)
}
