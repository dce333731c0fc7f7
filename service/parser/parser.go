package parser

import (
	"strings"
)

// DefaultItemsKey is the key list strategies store their elements under
const DefaultItemsKey = "items"

// Strategy identifies the extraction strategy that produced a result
type Strategy string

const (
	StrategyNone       Strategy = ""
	StrategyDirectJSON Strategy = "json"
	StrategyFenced     Strategy = "fenced"
	StrategyEmbedded   Strategy = "embedded"
	StrategyBullets    Strategy = "bullets"
	StrategyNumbered   Strategy = "numbered"
	StrategyKeyValue   Strategy = "keyValue"
)

// Result represents extraction outcome
type Result struct {
	Strategy Strategy
	Data     map[string]interface{}
}

// Parser extracts structured payloads from text, it is stateless and safe for concurrent use
type Parser struct {
	itemsKey string
}

// Option customises parser
type Option func(p *Parser)

// WithItemsKey sets key used for list and JSON array results
func WithItemsKey(key string) Option {
	return func(p *Parser) {
		if key != "" {
			p.itemsKey = key
		}
	}
}

// New creates a parser
func New(options ...Option) *Parser {
	ret := &Parser{itemsKey: DefaultItemsKey}
	for _, opt := range options {
		opt(ret)
	}
	return ret
}

var defaultParser = New()

// Extract extracts structured payload with the default parser
func Extract(text string) map[string]interface{} {
	return defaultParser.Extract(text)
}

// Extract returns structured payload or empty map if nothing was recognised
func (p *Parser) Extract(text string) map[string]interface{} {
	return p.Parse(text).Data
}

// Parse returns structured payload together with the strategy that produced it
func (p *Parser) Parse(text string) *Result {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return &Result{Data: map[string]interface{}{}}
	}
	if data := p.wrap(parseJSON(trimmed)); len(data) > 0 {
		return &Result{Strategy: StrategyDirectJSON, Data: data}
	}
	if data := p.wrap(fencedJSON(text)); len(data) > 0 {
		return &Result{Strategy: StrategyFenced, Data: data}
	}
	if data := embeddedJSON(text); len(data) > 0 {
		return &Result{Strategy: StrategyEmbedded, Data: data}
	}
	if items := bulletList(text); len(items) > 0 {
		return &Result{Strategy: StrategyBullets, Data: map[string]interface{}{p.itemsKey: items}}
	}
	if items := numberedList(text); len(items) > 0 {
		return &Result{Strategy: StrategyNumbered, Data: map[string]interface{}{p.itemsKey: items}}
	}
	if pairs := ExtractKeyValue(text); len(pairs) > 0 {
		data := make(map[string]interface{}, len(pairs))
		for k, v := range pairs {
			data[k] = v
		}
		return &Result{Strategy: StrategyKeyValue, Data: data}
	}
	return &Result{Data: map[string]interface{}{}}
}

func (p *Parser) wrap(value interface{}) map[string]interface{} {
	switch actual := value.(type) {
	case map[string]interface{}:
		return actual
	case []interface{}:
		if len(actual) == 0 {
			return nil
		}
		return map[string]interface{}{p.itemsKey: actual}
	}
	return nil
}

// ExtractList returns list elements using JSON array, bullet, numbered list or embedded array strategies
func ExtractList(text string) []interface{} {
	trimmed := strings.TrimSpace(text)
	if arr, ok := parseJSON(trimmed).([]interface{}); ok && len(arr) > 0 {
		return arr
	}
	if arr, ok := fencedJSON(text).([]interface{}); ok && len(arr) > 0 {
		return arr
	}
	if items := bulletList(text); len(items) > 0 {
		return items
	}
	if items := numberedList(text); len(items) > 0 {
		return items
	}
	return embeddedArray(text)
}
