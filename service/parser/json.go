package parser

import (
	"regexp"
	"strings"

	"github.com/goccy/go-json"
)

var fencePattern = regexp.MustCompile("(?is)```[ \\t]*json[ \\t]*\\r?\\n?(.*?)```")

// parseJSON decodes text as JSON object or array, nil otherwise
func parseJSON(text string) interface{} {
	if text == "" || (text[0] != '{' && text[0] != '[') {
		return nil
	}
	var value interface{}
	if err := json.Unmarshal([]byte(text), &value); err != nil {
		return nil
	}
	switch value.(type) {
	case map[string]interface{}, []interface{}:
		return value
	}
	return nil
}

// fencedJSON returns the first ```json fenced block that decodes
func fencedJSON(text string) interface{} {
	for _, match := range fencePattern.FindAllStringSubmatch(text, -1) {
		if value := parseJSON(strings.TrimSpace(match[1])); value != nil {
			if m, ok := value.(map[string]interface{}); ok && len(m) == 0 {
				continue
			}
			return value
		}
	}
	return nil
}

// embeddedJSON returns the first balanced {...} substring that decodes into a non-empty object
func embeddedJSON(text string) map[string]interface{} {
	for start := strings.IndexByte(text, '{'); start != -1; {
		end := balancedEnd(text, start)
		if end != -1 {
			if m, ok := parseJSON(text[start : end+1]).(map[string]interface{}); ok && len(m) > 0 {
				return m
			}
		}
		next := strings.IndexByte(text[start+1:], '{')
		if next == -1 {
			break
		}
		start += next + 1
	}
	return nil
}

// ExtractJSON returns JSON object found by direct, fenced or embedded strategy
func ExtractJSON(text string) (map[string]interface{}, bool) {
	if m, ok := parseJSON(strings.TrimSpace(text)).(map[string]interface{}); ok && len(m) > 0 {
		return m, true
	}
	if m, ok := fencedJSON(text).(map[string]interface{}); ok {
		return m, true
	}
	if m := embeddedJSON(text); m != nil {
		return m, true
	}
	return nil, false
}

// embeddedArray returns the first balanced [...] substring that decodes into a non-empty array
func embeddedArray(text string) []interface{} {
	for start := strings.IndexByte(text, '['); start != -1; {
		if end := balancedEnd(text, start); end != -1 {
			if arr, ok := parseJSON(text[start : end+1]).([]interface{}); ok && len(arr) > 0 {
				return arr
			}
		}
		next := strings.IndexByte(text[start+1:], '[')
		if next == -1 {
			break
		}
		start += next + 1
	}
	return nil
}

// balancedEnd returns index of the brace or bracket closing text[start], delimiters in string literals are ignored
func balancedEnd(text string, start int) int {
	open, closing := byte('{'), byte('}')
	if text[start] == '[' {
		open, closing = '[', ']'
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case open:
			depth++
		case closing:
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
