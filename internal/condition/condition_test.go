package condition

import (
	"testing"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/stretchr/testify/assert"
)

var testEntry = domain.Entry{
	ID: "1",
	Values: map[string]any{
		"1": "Yes",
		"2": "42",
		"3": "jane@example.com",
		"4": "",
		"5": map[string]any{"plan": "Enterprise"},
	},
}

func TestMatch(t *testing.T) {
	tests := []struct {
		name string
		rule domain.ConditionRule
		want bool
	}{
		{"is case-insensitive", domain.ConditionRule{FieldID: "1", Operator: "is", Value: "yes"}, true},
		{"is mismatch", domain.ConditionRule{FieldID: "1", Operator: "is", Value: "no"}, false},
		{"blank operator means is", domain.ConditionRule{FieldID: "1", Value: "Yes"}, true},
		{"isnot", domain.ConditionRule{FieldID: "1", Operator: "isnot", Value: "no"}, true},
		{"is empty value", domain.ConditionRule{FieldID: "4", Operator: "is", Value: ""}, true},
		{"absent field is empty", domain.ConditionRule{FieldID: "99", Operator: "is", Value: ""}, true},
		{"greater", domain.ConditionRule{FieldID: "2", Operator: ">", Value: "10"}, true},
		{"greater false", domain.ConditionRule{FieldID: "2", Operator: ">", Value: "42"}, false},
		{"less", domain.ConditionRule{FieldID: "2", Operator: "<", Value: "100.5"}, true},
		{"less non numeric", domain.ConditionRule{FieldID: "1", Operator: "<", Value: "5"}, false},
		{"contains", domain.ConditionRule{FieldID: "3", Operator: "contains", Value: "EXAMPLE"}, true},
		{"starts_with", domain.ConditionRule{FieldID: "3", Operator: "starts_with", Value: "jane"}, true},
		{"ends_with", domain.ConditionRule{FieldID: "3", Operator: "ends_with", Value: ".org"}, false},
		{"compound path", domain.ConditionRule{FieldID: "5/plan", Operator: "is", Value: "enterprise"}, true},
		{"unknown operator", domain.ConditionRule{FieldID: "1", Operator: "matches", Value: "Yes"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Match(tt.rule, testEntry))
		})
	}
}

func TestEvaluate(t *testing.T) {
	yes := domain.ConditionRule{FieldID: "1", Operator: "is", Value: "Yes"}
	no := domain.ConditionRule{FieldID: "1", Operator: "is", Value: "No"}
	ev := NewEvaluator()

	assert.True(t, ev.Evaluate(domain.ConditionalLogic{}, testEntry), "disabled logic passes")
	assert.True(t, ev.Evaluate(domain.ConditionalLogic{Enabled: true}, testEntry), "no rules passes")

	all := domain.ConditionalLogic{Enabled: true, ActionType: ActionShow, LogicType: LogicAll, Rules: []domain.ConditionRule{yes, no}}
	assert.False(t, ev.Evaluate(all, testEntry))

	anyLogic := all
	anyLogic.LogicType = LogicAny
	assert.True(t, ev.Evaluate(anyLogic, testEntry))

	hide := anyLogic
	hide.ActionType = ActionHide
	assert.False(t, ev.Evaluate(hide, testEntry))

	hideAll := all
	hideAll.ActionType = ActionHide
	assert.True(t, ev.Evaluate(hideAll, testEntry))
}
