// Package validation evaluates field level rules for validate steps.
package validation

import (
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"sync"
)

// Service validates a value against a schema
type Service interface {
	Validate(schema Schema, value map[string]interface{}) []*Violation
}

// Result represents validation outcome with defaults applied and types coerced
type Result struct {
	Violations []*Violation
	Data       map[string]interface{}
}

// Valid returns true if no rule failed
func (r *Result) Valid() bool {
	return len(r.Violations) == 0
}

// Engine implements Service
type Engine struct {
	mux        sync.RWMutex
	validators map[string]func(value interface{}) bool
	patterns   map[string]*regexp.Regexp
}

// Option customises engine
type Option func(e *Engine)

// WithValidator registers a named custom validator
func WithValidator(name string, fn func(value interface{}) bool) Option {
	return func(e *Engine) { e.validators[name] = fn }
}

// New creates an engine
func New(options ...Option) *Engine {
	ret := &Engine{validators: map[string]func(value interface{}) bool{}, patterns: map[string]*regexp.Regexp{}}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Register adds a named custom validator
func (e *Engine) Register(name string, fn func(value interface{}) bool) {
	e.mux.Lock()
	defer e.mux.Unlock()
	e.validators[name] = fn
}

// Validate returns violations, empty when value satisfies schema
func (e *Engine) Validate(schema Schema, value map[string]interface{}) []*Violation {
	return e.Check(schema, value).Violations
}

// Check validates value and returns coerced data. Fields are checked in name order; the first failed rule per field is reported.
func (e *Engine) Check(schema Schema, value map[string]interface{}) *Result {
	result := &Result{Data: map[string]interface{}{}}
	fields := make([]string, 0, len(schema))
	for field := range schema {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		rule := schema[field]
		if rule == nil {
			rule = &Rule{}
		}
		fieldValue, violation := e.check(field, rule, value[field])
		if violation != nil {
			result.Violations = append(result.Violations, violation)
			continue
		}
		if fieldValue != nil {
			result.Data[field] = fieldValue
		}
	}
	return result
}

func (e *Engine) check(field string, rule *Rule, value interface{}) (interface{}, *Violation) {
	violation := func(name, format string, args ...interface{}) *Violation {
		return &Violation{Field: field, Rule: name, Message: fmt.Sprintf(format, args...)}
	}
	if value == nil {
		value = rule.Default
	}
	if value == nil {
		if rule.Required {
			return nil, violation("required", "is required")
		}
		return nil, nil
	}
	value, err := coerce(rule.Type, value)
	if err != nil {
		return nil, violation("type", "%v", err)
	}
	if number, ok := asNumber(value); ok {
		if rule.Min != nil && number < *rule.Min {
			return nil, violation("min", "value %v is less than minimum %v", formatNumber(number), formatNumber(*rule.Min))
		}
		if rule.Max != nil && number > *rule.Max {
			return nil, violation("max", "value %v is greater than maximum %v", formatNumber(number), formatNumber(*rule.Max))
		}
	}
	if size, ok := length(value); ok {
		if minLength := e.minLength(rule); minLength != nil && size < *minLength {
			return nil, violation("minLength", "length %v is less than minimum %v", size, *minLength)
		}
		if maxLength := e.maxLength(rule); maxLength != nil && size > *maxLength {
			return nil, violation("maxLength", "length %v is greater than maximum %v", size, *maxLength)
		}
	}
	if text, ok := value.(string); ok && rule.Pattern != "" {
		expr, err := e.compile(rule.Pattern)
		if err != nil {
			return nil, violation("pattern", "invalid pattern %v: %v", rule.Pattern, err)
		}
		if !expr.MatchString(text) {
			return nil, violation("pattern", "value does not match pattern %v", rule.Pattern)
		}
	}
	if len(rule.Choices) > 0 && !contains(rule.Choices, value) {
		return nil, violation("choices", "value %v is not one of %v", value, rule.Choices)
	}
	if rule.Validator != "" {
		e.mux.RLock()
		fn, ok := e.validators[rule.Validator]
		e.mux.RUnlock()
		if !ok {
			return nil, violation("validator", "unknown validator %v", rule.Validator)
		}
		if !fn(value) {
			return nil, violation("validator", "failed %v", rule.Validator)
		}
	}
	return value, nil
}

// minLength falls back to Min for strings and lists
func (e *Engine) minLength(rule *Rule) *int {
	if rule.MinLength != nil {
		return rule.MinLength
	}
	if rule.Min != nil {
		v := int(*rule.Min)
		return &v
	}
	return nil
}

func (e *Engine) maxLength(rule *Rule) *int {
	if rule.MaxLength != nil {
		return rule.MaxLength
	}
	if rule.Max != nil {
		v := int(*rule.Max)
		return &v
	}
	return nil
}

func (e *Engine) compile(pattern string) (*regexp.Regexp, error) {
	e.mux.RLock()
	expr, ok := e.patterns[pattern]
	e.mux.RUnlock()
	if ok {
		return expr, nil
	}
	expr, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	e.mux.Lock()
	e.patterns[pattern] = expr
	e.mux.Unlock()
	return expr, nil
}

func contains(choices []interface{}, value interface{}) bool {
	for _, choice := range choices {
		if reflect.DeepEqual(choice, value) {
			return true
		}
		if a, ok := asNumber(choice); ok {
			if b, ok := asNumber(value); ok && a == b {
				return true
			}
		}
	}
	return false
}

var _ Service = (*Engine)(nil)
