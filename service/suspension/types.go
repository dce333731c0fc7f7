package suspension

import (
	"context"
	"time"
)

// State represents request resolution state
type State string

const (
	StateOpen     State = "open"
	StateResolved State = "resolved"
	StateExpired  State = "expired"
)

// IsTerminal returns true for resolved or expired
func (s State) IsTerminal() bool {
	return s == StateResolved || s == StateExpired
}

// Kind represents the shape of the expected answer
type Kind string

const (
	KindInput    Kind = "input"
	KindApproval Kind = "approval"
	KindChoice   Kind = "choice"
)

// Expiry reasons
const (
	ReasonTimeout   = "timeout"
	ReasonCancelled = "cancelled"
)

// Event topics
const (
	TopicRequestCreated  = "request.created"
	TopicRequestResolved = "request.resolved"
	TopicRequestExpired  = "request.expired"
)

// Request represents a pending external input request
type Request struct {
	ID          string        `json:"id"`
	ExecutionID string        `json:"executionId"`
	StepID      string        `json:"stepId"`
	Kind        Kind          `json:"kind,omitempty"`
	Prompt      string        `json:"prompt,omitempty"`
	Channel     string        `json:"channel,omitempty"`
	Choices     []string      `json:"choices,omitempty"`
	Fallback    interface{}   `json:"fallback,omitempty"`
	RequestedAt time.Time     `json:"requestedAt"`
	Deadline    time.Time     `json:"deadline"`
	Timeout     time.Duration `json:"timeout,omitempty"`
	State       State         `json:"state"`
	Value       interface{}   `json:"value,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	ResolvedAt  *time.Time    `json:"resolvedAt,omitempty"`
}

// HasFallback returns true if expiry should resolve request with fallback value
func (r *Request) HasFallback() bool {
	return r.Fallback != nil
}

// Clone returns a shallow copy with copied slices
func (r *Request) Clone() *Request {
	if r == nil {
		return nil
	}
	ret := *r
	if r.Choices != nil {
		ret.Choices = append([]string(nil), r.Choices...)
	}
	if r.ResolvedAt != nil {
		at := *r.ResolvedAt
		ret.ResolvedAt = &at
	}
	return &ret
}

// Event represents request lifecycle event
type Event struct {
	Topic   string            `json:"topic"`
	Data    *Request          `json:"data"`
	Headers map[string]string `json:"headers,omitempty"`
}

// RequestOption customises a request at registration
type RequestOption func(r *Request)

// WithRequestID sets request id, when omitted one is generated
func WithRequestID(id string) RequestOption {
	return func(r *Request) { r.ID = id }
}

// WithPrompt sets question shown to a human
func WithPrompt(prompt string) RequestOption {
	return func(r *Request) { r.Prompt = prompt }
}

// WithChannel sets channel the prompt is delivered through
func WithChannel(channel string) RequestOption {
	return func(r *Request) { r.Channel = channel }
}

// WithKind sets request kind
func WithKind(kind Kind) RequestOption {
	return func(r *Request) { r.Kind = kind }
}

// WithChoices restricts accepted answers, it implies KindChoice
func WithChoices(choices ...string) RequestOption {
	return func(r *Request) {
		r.Choices = choices
		if len(choices) > 0 {
			r.Kind = KindChoice
		}
	}
}

// WithFallback sets value used when the request times out
func WithFallback(value interface{}) RequestOption {
	return func(r *Request) { r.Fallback = value }
}

// Listener observes terminal request transitions. It runs synchronously while the
// service holds its lock and must not call back into the service.
type Listener func(ctx context.Context, request *Request)

// PendingFilter filters open requests
type PendingFilter func(r *Request) bool

// WithExecutionID matches requests of an execution
func WithExecutionID(executionID string) PendingFilter {
	return func(r *Request) bool { return r.ExecutionID == executionID }
}

// WithStepID matches requests of a step
func WithStepID(stepID string) PendingFilter {
	return func(r *Request) bool { return r.StepID == stepID }
}

// WithChannelName matches requests delivered through channel
func WithChannelName(channel string) PendingFilter {
	return func(r *Request) bool { return r.Channel == channel }
}

// Matches returns true when every filter matches
func Matches(r *Request, filters ...PendingFilter) bool {
	for _, filter := range filters {
		if !filter(r) {
			return false
		}
	}
	return true
}
