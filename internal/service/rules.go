package service

import (
	"errors"
	"strings"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/dealerops/rentd/internal/core"
)

// jmespathEvaluator implements core.RuleEvaluator using go-jmespath.
type jmespathEvaluator struct{}

// NewRuleEvaluator returns the default JMESPath-backed rule evaluator.
func NewRuleEvaluator() core.RuleEvaluator {
	return jmespathEvaluator{}
}

func (jmespathEvaluator) CheckSyntax(expression string) error {
	if strings.TrimSpace(expression) == "" {
		return errors.New("expression cannot be empty")
	}
	_, err := jmespath.Compile(expression)
	return err
}

// Matches evaluates the expression against the document and applies JMESPath
// truthiness: null, false, empty string, empty array and empty object are
// all false.
func (jmespathEvaluator) Matches(expression string, doc map[string]any) (bool, error) {
	result, err := jmespath.Search(expression, doc)
	if err != nil {
		return false, err
	}
	return isTruthy(result), nil
}

func isTruthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case []any:
		return len(val) > 0
	case map[string]any:
		return len(val) > 0
	default:
		// Numbers are truthy in JMESPath, including zero.
		return true
	}
}
