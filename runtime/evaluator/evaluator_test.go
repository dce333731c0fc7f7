package evaluator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEvaluateBool(t *testing.T) {
	vars := map[string]interface{}{
		"score":     85.0,
		"kategorie": "gut",
		"count":     "30",
		"items":     []interface{}{"a", "b"},
		"review": map[string]interface{}{
			"approved": true,
			"tags":     []interface{}{"x", "y"},
		},
		"status": "failed",
	}
	testCases := []struct {
		name     string
		expr     string
		expected bool
		hasError bool
	}{
		{name: "numeric comparison", expr: "score > 80", expected: true},
		{name: "int against float", expr: "score == 85", expected: true},
		{name: "string equality single quotes", expr: "kategorie == 'gut'", expected: true},
		{name: "logical and", expr: "score >= 90 && kategorie == 'gut'", expected: false},
		{name: "logical or", expr: "score >= 90 || kategorie == 'gut'", expected: true},
		{name: "negation", expr: "!review.approved", expected: false},
		{name: "wrapped", expr: "${len(items) == 2}", expected: true},
		{name: "numeric string", expr: "count > 18", expected: true},
		{name: "index", expr: "review.tags[1] == 'y'", expected: true},
		{name: "contains", expr: "contains(review.tags, 'x')", expected: true},
		{name: "unknown reference", expr: "missing.value == 1", expected: false},
		{name: "unknown is nil", expr: "isNil(missing)", expected: true},
		{name: "bare value", expr: "kategorie", expected: true},
		{name: "failure status", expr: "status == 'failed'", expected: true},
		{name: "syntax error", expr: "score >", hasError: true},
		{name: "unknown function", expr: "explode(score)", hasError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			actual, err := EvaluateBool(tc.expr, vars, false)
			if tc.hasError {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tc.expected, actual)
		})
	}
}

func TestEvaluateBool_Default(t *testing.T) {
	actual, err := EvaluateBool("  ", nil, true)
	assert.NoError(t, err)
	assert.True(t, actual)
}

func TestExpand(t *testing.T) {
	vars := map[string]interface{}{
		"name":   "Max",
		"age":    30,
		"inputs": map[string]interface{}{"topic": "go"},
	}
	testCases := []struct {
		name     string
		text     interface{}
		expected interface{}
	}{
		{name: "text", text: "Hello ${name}, you are ${age}", expected: "Hello Max, you are 30"},
		{name: "nested", text: "topic: ${inputs.topic}", expected: "topic: go"},
		{name: "typed value", text: "${age + 1}", expected: 31},
		{name: "no reference", text: "plain", expected: "plain"},
		{name: "broken reference kept", text: "x ${age +} y", expected: "x ${age +} y"},
		{name: "unterminated", text: "x ${age", expected: "x ${age"},
		{name: "map", text: map[string]interface{}{"k": "${name}"}, expected: map[string]interface{}{"k": "Max"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.EqualValues(t, tc.expected, ExpandValue(tc.text, vars))
		})
	}
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name      string
		expr      string
		expectErr bool
	}{
		{name: "comparison", expr: "score > 80"},
		{name: "quoted literal", expr: "label == 'gut' && len(items) > 0"},
		{name: "template", expr: "${review.approved}"},
		{name: "dangling operator", expr: "score >", expectErr: true},
		{name: "empty", expr: " ", expectErr: true},
		{name: "unbalanced", expr: "(a && b", expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.expr)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}
