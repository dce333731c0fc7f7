package validation

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type names accepted by Rule.Type
const (
	TypeString = "string"
	TypeInt    = "int"
	TypeFloat  = "float"
	TypeBool   = "bool"
	TypeList   = "list"
	TypeMap    = "map"
)

// Rule represents field level constraints. Min and Max bound numbers, or the length of strings and lists.
type Rule struct {
	Type      string        `json:"type,omitempty" yaml:"type,omitempty"`
	Required  bool          `json:"required,omitempty" yaml:"required,omitempty"`
	Default   interface{}   `json:"default,omitempty" yaml:"default,omitempty"`
	Min       *float64      `json:"min,omitempty" yaml:"min,omitempty"`
	Max       *float64      `json:"max,omitempty" yaml:"max,omitempty"`
	MinLength *int          `json:"minLength,omitempty" yaml:"minLength,omitempty"`
	MaxLength *int          `json:"maxLength,omitempty" yaml:"maxLength,omitempty"`
	Pattern   string        `json:"pattern,omitempty" yaml:"pattern,omitempty"`
	Choices   []interface{} `json:"choices,omitempty" yaml:"choices,omitempty"`
	Validator string        `json:"validator,omitempty" yaml:"validator,omitempty"`
}

// Schema maps field names to rules
type Schema map[string]*Rule

// Violation represents a single failed rule
type Violation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v *Violation) String() string {
	return v.Field + ": " + v.Message
}

func coerce(typeName string, value interface{}) (interface{}, error) {
	switch strings.ToLower(typeName) {
	case "":
		return value, nil
	case TypeString, "str":
		if s, ok := value.(string); ok {
			return s, nil
		}
		return fmt.Sprint(value), nil
	case TypeInt, "integer":
		switch actual := value.(type) {
		case int:
			return actual, nil
		case int64:
			return int(actual), nil
		case float64:
			if actual == math.Trunc(actual) {
				return int(actual), nil
			}
		case string:
			if i, err := strconv.Atoi(strings.TrimSpace(actual)); err == nil {
				return i, nil
			}
		}
	case TypeFloat, "number":
		switch actual := value.(type) {
		case float64:
			return actual, nil
		case float32:
			return float64(actual), nil
		case int:
			return float64(actual), nil
		case int64:
			return float64(actual), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(actual), 64); err == nil {
				return f, nil
			}
		}
	case TypeBool, "boolean":
		switch actual := value.(type) {
		case bool:
			return actual, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(actual)); err == nil {
				return b, nil
			}
		}
	case TypeList, "array":
		if list, ok := value.([]interface{}); ok {
			return list, nil
		}
		if list, ok := value.([]string); ok {
			ret := make([]interface{}, len(list))
			for i, item := range list {
				ret[i] = item
			}
			return ret, nil
		}
	case TypeMap, "object", "dict":
		if m, ok := value.(map[string]interface{}); ok {
			return m, nil
		}
	default:
		return nil, fmt.Errorf("unsupported type %v", typeName)
	}
	return nil, fmt.Errorf("expected %v, got %T", typeName, value)
}

func asNumber(value interface{}) (float64, bool) {
	switch actual := value.(type) {
	case int:
		return float64(actual), true
	case int64:
		return float64(actual), true
	case float64:
		return actual, true
	case float32:
		return float64(actual), true
	}
	return 0, false
}

func length(value interface{}) (int, bool) {
	switch actual := value.(type) {
	case string:
		return len([]rune(actual)), true
	case []interface{}:
		return len(actual), true
	case map[string]interface{}:
		return len(actual), true
	}
	return 0, false
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
