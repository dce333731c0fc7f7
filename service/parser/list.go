package parser

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
)

var (
	bulletPattern   = regexp.MustCompile(`^\s*[-*]\s+(.+)$`)
	numberedPattern = regexp.MustCompile(`^\s*(\d+)[.)]\s+(.+)$`)
	// keys may hold any text except JSON or quote delimiters
	keyPattern      = regexp.MustCompile(`^[^{}\[\]"'\x60]+$`)
)

// bulletList returns the first run of consecutive markdown bullet lines
func bulletList(text string) []interface{} {
	var items []interface{}
	for _, line := range strings.Split(text, "\n") {
		match := bulletPattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if match == nil {
			if len(items) > 0 {
				break
			}
			continue
		}
		if item := strings.TrimSpace(match[1]); item != "" {
			items = append(items, item)
		}
	}
	return items
}

type numberedItem struct {
	number int
	text   string
}

// numberedList returns the first run of consecutive numbered lines ordered by their number
func numberedList(text string) []interface{} {
	var items []numberedItem
	for _, line := range strings.Split(text, "\n") {
		match := numberedPattern.FindStringSubmatch(strings.TrimRight(line, "\r"))
		if match == nil {
			if len(items) > 0 {
				break
			}
			continue
		}
		number, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}
		if item := strings.TrimSpace(match[2]); item != "" {
			items = append(items, numberedItem{number: number, text: item})
		}
	}
	if len(items) == 0 {
		return nil
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].number < items[j].number })
	ret := make([]interface{}, len(items))
	for i, item := range items {
		ret[i] = item.text
	}
	return ret
}

// ExtractKeyValue returns `key: value` pairs found in text, the last occurrence of a key wins.
// A line holding several comma separated pairs ("Name: Max, Alter: 30") yields every pair.
func ExtractKeyValue(text string) map[string]string {
	ret := map[string]string{}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimRight(line, "\r"))
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		parts := strings.Split(line, ",")
		if len(parts) > 1 && allPairs(parts) {
			for _, part := range parts {
				if key, value, ok := splitPair(part); ok {
					ret[key] = value
				}
			}
			continue
		}
		if key, value, ok := splitPair(line); ok {
			ret[key] = value
		}
	}
	return ret
}

func allPairs(parts []string) bool {
	for _, part := range parts {
		if _, _, ok := splitPair(part); !ok {
			return false
		}
	}
	return true
}

func splitPair(text string) (string, string, bool) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "- ")
	text = strings.TrimPrefix(text, "* ")
	idx := strings.Index(text, ":")
	if idx <= 0 {
		return "", "", false
	}
	key := strings.TrimSpace(text[:idx])
	key = strings.TrimSpace(strings.Trim(key, "*_`"))
	value := strings.TrimSpace(text[idx+1:])
	value = strings.TrimSpace(strings.TrimPrefix(value, "**"))
	if key == "" || value == "" || strings.HasPrefix(value, "//") {
		return "", "", false
	}
	if !keyPattern.MatchString(key) {
		return "", "", false
	}
	return key, value, true
}
