// Package notify defines the notification capability used by notify steps and
// human-input prompts, together with a glob based channel router.
package notify

import (
	"context"
	"strings"
)

// Severity represents notification severity
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{SeverityInfo: 0, SeverityWarning: 1, SeverityError: 2, SeverityCritical: 3}

// ParseSeverity returns severity, unknown values fall back to info
func ParseSeverity(text string) Severity {
	severity := Severity(strings.ToLower(strings.TrimSpace(text)))
	if _, ok := severityRank[severity]; ok {
		return severity
	}
	if severity == "warn" {
		return SeverityWarning
	}
	return SeverityInfo
}

// AtLeast returns true when s is not lower than min
func (s Severity) AtLeast(min Severity) bool {
	return severityRank[s] >= severityRank[min]
}

// Service delivers a message on a channel. Implementations must be safe for concurrent use.
type Service interface {
	Send(ctx context.Context, channel string, severity Severity, message string) error
}

// Func adapts a function to Service
type Func func(ctx context.Context, channel string, severity Severity, message string) error

// Send calls f
func (f Func) Send(ctx context.Context, channel string, severity Severity, message string) error {
	return f(ctx, channel, severity, message)
}
