package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEntry_UnmarshalFlatObject(t *testing.T) {
	raw := `{
		"id": 42,
		"form_id": "7",
		"1.3": "Ada",
		"2": "ada@example.com",
		"3": 0,
		"4": null,
		"5": ["red", "", "blue"],
		"6": true,
		"meta": {"utm": {"source": "ads"}}
	}`

	var e Entry
	require.NoError(t, json.Unmarshal([]byte(raw), &e))

	assert.Equal(t, "42", e.ID)
	assert.Equal(t, "7", e.FormID)

	cases := []struct {
		ref    string
		want   string
		wantOK bool
	}{
		{"1.3", "Ada", true},
		{"2", "ada@example.com", true},
		{"3", "0", true},
		{"4", "", false},
		{"5", "red, blue", true},
		{"6", "1", true},
		{"meta/utm/source", "ads", true},
		{"meta/utm/medium", "", false},
		{"1.3/x", "", false},
		{"missing", "", false},
		{"", "", false},
		{"id", "42", true},
		{"form_id", "7", true},
	}
	for _, tc := range cases {
		t.Run(tc.ref, func(t *testing.T) {
			got, ok := e.Value(tc.ref)
			assert.Equal(t, tc.wantOK, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEntry_MarshalRoundTripKeepsFlatShape(t *testing.T) {
	e := Entry{ID: "1", FormID: "2", Values: map[string]any{"3": "x"}}
	out, err := json.Marshal(e)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"1","form_id":"2","3":"x"}`, string(out))
}

func TestSubscriberRecord_EmailOnlyEncoding(t *testing.T) {
	out, err := json.Marshal(SubscriberRecord{Email: "user@example.com"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"email":"user@example.com"}`, string(out))
}

func TestSubscriberRecord_SetStandard(t *testing.T) {
	var r SubscriberRecord
	for _, name := range StandardFieldNames {
		r.SetStandard(name, name+"-v")
	}
	r.SetStandard("unknown", "x")

	assert.Equal(t, "first_name-v", r.FirstName)
	assert.Equal(t, "address-v", r.Address)
	assert.Equal(t, "country-v", r.Country)
}
