// Package condition evaluates a feed's conditional logic against an entry.
package condition

import (
	"strconv"
	"strings"

	"github.com/ignite/drip-forwarder/internal/domain"
	"github.com/ignite/drip-forwarder/internal/pkg/logger"
)

// Operator is a rule comparison as stored with the feed.
type Operator string

const (
	OpIs         Operator = "is"
	OpIsNot      Operator = "isnot"
	OpGreater    Operator = ">"
	OpLess       Operator = "<"
	OpContains   Operator = "contains"
	OpStartsWith Operator = "starts_with"
	OpEndsWith   Operator = "ends_with"
)

const (
	ActionShow = "show"
	ActionHide = "hide"
	LogicAll   = "all"
	LogicAny   = "any"
)

// Evaluator decides whether a feed should run for an entry.
type Evaluator struct{}

// NewEvaluator creates an evaluator.
func NewEvaluator() *Evaluator { return &Evaluator{} }

// Evaluate returns true when the feed should run. Disabled logic and
// logic without rules always pass. With ActionHide the match is inverted.
func (e *Evaluator) Evaluate(logic domain.ConditionalLogic, entry domain.Entry) bool {
	if !logic.Enabled || len(logic.Rules) == 0 {
		return true
	}

	matched := matchAll(logic.Rules, entry)
	if strings.EqualFold(logic.LogicType, LogicAny) {
		matched = matchAny(logic.Rules, entry)
	}

	if strings.EqualFold(logic.ActionType, ActionHide) {
		return !matched
	}
	return matched
}

func matchAll(rules []domain.ConditionRule, entry domain.Entry) bool {
	for _, r := range rules {
		if !Match(r, entry) {
			return false
		}
	}
	return true
}

func matchAny(rules []domain.ConditionRule, entry domain.Entry) bool {
	for _, r := range rules {
		if Match(r, entry) {
			return true
		}
	}
	return false
}

// Match applies one rule. An absent entry value compares as "". String
// comparisons ignore case; > and < compare numerically and fail when either
// side is not a number.
func Match(rule domain.ConditionRule, entry domain.Entry) bool {
	got, _ := entry.Value(rule.FieldID)
	got = strings.TrimSpace(got)
	want := strings.TrimSpace(rule.Value)

	switch Operator(rule.Operator) {
	case OpIs, "":
		return strings.EqualFold(got, want)
	case OpIsNot:
		return !strings.EqualFold(got, want)
	case OpContains:
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(got), strings.ToLower(want))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(got), strings.ToLower(want))
	case OpGreater, OpLess:
		a, errA := strconv.ParseFloat(got, 64)
		b, errB := strconv.ParseFloat(want, 64)
		if errA != nil || errB != nil {
			return false
		}
		if Operator(rule.Operator) == OpGreater {
			return a > b
		}
		return a < b
	default:
		logger.Warn("condition: unknown operator", "operator", rule.Operator, "field_id", rule.FieldID)
		return false
	}
}
