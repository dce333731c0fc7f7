package evaluator

import "strings"

// Expand replaces ${expr} occurrences in text with their evaluated values.
// References that fail to evaluate are kept intact.
func Expand(text string, variables map[string]interface{}) string {
	if !strings.Contains(text, "${") {
		return text
	}
	var sb strings.Builder
	rest := text
	for {
		start := strings.Index(rest, "${")
		if start == -1 {
			sb.WriteString(rest)
			break
		}
		end := matchingBrace(rest[start+1:])
		if end == -1 {
			sb.WriteString(rest)
			break
		}
		end += start + 1
		sb.WriteString(rest[:start])
		expr := rest[start+2 : end]
		if value, err := Evaluate(expr, variables); err == nil {
			sb.WriteString(stringify(value))
		} else {
			sb.WriteString(rest[start : end+1])
		}
		rest = rest[end+1:]
	}
	return sb.String()
}

// ExpandValue expands strings, maps and slices recursively. A string that is a
// single ${expr} reference yields the typed value instead of its text form.
func ExpandValue(value interface{}, variables map[string]interface{}) interface{} {
	switch actual := value.(type) {
	case string:
		trimmed := strings.TrimSpace(actual)
		if strings.HasPrefix(trimmed, "${") && matchingBrace(trimmed[1:])+1 == len(trimmed)-1 {
			if v, err := Evaluate(trimmed, variables); err == nil {
				return v
			}
			return actual
		}
		return Expand(actual, variables)
	case map[string]interface{}:
		ret := make(map[string]interface{}, len(actual))
		for k, v := range actual {
			ret[k] = ExpandValue(v, variables)
		}
		return ret
	case []interface{}:
		ret := make([]interface{}, len(actual))
		for i, v := range actual {
			ret[i] = ExpandValue(v, variables)
		}
		return ret
	}
	return value
}

// matchingBrace returns index of brace closing the one at text[0], -1 if none
func matchingBrace(text string) int {
	if text == "" || text[0] != '{' {
		return -1
	}
	depth := 0
	inString := byte(0)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString != 0 {
			if c == '\\' {
				i++
				continue
			}
			if c == inString {
				inString = 0
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
