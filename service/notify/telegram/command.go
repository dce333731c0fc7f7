package telegram

import (
	"strings"

	"github.com/viant/parsly"
	"github.com/viant/parsly/matcher"
)

const (
	whitespaceCode = iota
	commandCode
	wordCode
)

var (
	whitespaceToken = parsly.NewToken(whitespaceCode, "Whitespace", matcher.NewWhiteSpace())
	commandToken    = parsly.NewToken(commandCode, "Command", &commandMatcher{})
	wordToken       = parsly.NewToken(wordCode, "Word", &wordMatcher{})
)

// commandMatcher matches /name with an optional @bot suffix
type commandMatcher struct{}

func (m *commandMatcher) Match(cursor *parsly.Cursor) int {
	input, pos := cursor.Input, cursor.Pos
	if pos >= cursor.InputSize || input[pos] != '/' {
		return 0
	}
	matched := 1
	for i := pos + 1; i < cursor.InputSize; i++ {
		c := input[i]
		if isLetter(c) || c == '_' || c == '@' || (c >= '0' && c <= '9') {
			matched++
			continue
		}
		break
	}
	if matched == 1 {
		return 0
	}
	return matched
}

// wordMatcher matches a run of non whitespace bytes
type wordMatcher struct{}

func (m *wordMatcher) Match(cursor *parsly.Cursor) int {
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		switch cursor.Input[i] {
		case ' ', '\t', '\n', '\r':
			return matched
		}
		matched++
	}
	return matched
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// Answer represents a parsed resolution command
type Answer struct {
	RequestID string
	Value     string
}

// ParseAnswer parses "/answer <requestId> <value>", "/approve <requestId>" and "/reject <requestId>".
func ParseAnswer(text string) (*Answer, bool) {
	cursor := parsly.NewCursor("", []byte(strings.TrimSpace(text)), 0)
	matched := cursor.MatchOne(commandToken)
	if matched.Code != commandCode {
		return nil, false
	}
	command := strings.ToLower(matched.Text(cursor))
	if idx := strings.IndexByte(command, '@'); idx != -1 {
		command = command[:idx]
	}
	matched = cursor.MatchAfterOptional(whitespaceToken, wordToken)
	if matched.Code != wordCode {
		return nil, false
	}
	answer := &Answer{RequestID: matched.Text(cursor)}
	rest := ""
	if cursor.Pos < cursor.InputSize {
		rest = strings.TrimSpace(string(cursor.Input[cursor.Pos:]))
	}
	switch command {
	case "/answer":
		if rest == "" {
			return nil, false
		}
		answer.Value = rest
	case "/approve":
		answer.Value = "yes"
	case "/reject":
		answer.Value = "no"
	default:
		return nil, false
	}
	return answer, true
}
