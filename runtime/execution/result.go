package execution

import (
	"time"

	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
)

// StepResult represents the outcome of a single step
type StepResult struct {
	StepID      string                 `json:"stepId"`
	Kind        graph.Kind             `json:"kind,omitempty"`
	Status      StepStatus             `json:"status"`
	Output      *string                `json:"output,omitempty"`
	Extracted   map[string]interface{} `json:"extracted,omitempty"`
	Error       string                 `json:"error,omitempty"`
	ErrorKind   types.ErrorKind        `json:"errorKind,omitempty"`
	RequestID   string                 `json:"requestId,omitempty"`
	Attempts    int                    `json:"attempts,omitempty"`
	Iterations  int                    `json:"iterations,omitempty"`
	History     []string               `json:"history,omitempty"`
	TokensUsed  int                    `json:"tokensUsed,omitempty"`
	StartedAt   *time.Time             `json:"startedAt,omitempty"`
	CompletedAt *time.Time             `json:"completedAt,omitempty"`
}

// NewStepResult creates a pending result
func NewStepResult(stepID string, kind graph.Kind) *StepResult {
	return &StepResult{StepID: stepID, Kind: kind, Status: StepStatusPending}
}

// Text returns output text or empty string
func (r *StepResult) Text() string {
	if r == nil || r.Output == nil {
		return ""
	}
	return *r.Output
}

// SetOutput sets raw output text
func (r *StepResult) SetOutput(text string) {
	r.Output = &text
}

// Fail marks result as failed with classified error
func (r *StepResult) Fail(err error) {
	r.Status = StepStatusFailed
	if err == nil {
		return
	}
	r.Error = err.Error()
	r.ErrorKind = types.KindOf(err)
	if r.ErrorKind == "" {
		r.ErrorKind = types.KindInvokerFailure
	}
}

// Duration returns time between start and completion
func (r *StepResult) Duration() time.Duration {
	if r == nil || r.StartedAt == nil || r.CompletedAt == nil {
		return 0
	}
	return r.CompletedAt.Sub(*r.StartedAt)
}

// Clone creates a copy of the result, extracted values are copied shallowly
func (r *StepResult) Clone() *StepResult {
	if r == nil {
		return nil
	}
	clone := *r
	if r.Output != nil {
		text := *r.Output
		clone.Output = &text
	}
	if r.Extracted != nil {
		clone.Extracted = make(map[string]interface{}, len(r.Extracted))
		for k, v := range r.Extracted {
			clone.Extracted[k] = v
		}
	}
	if r.History != nil {
		clone.History = append([]string(nil), r.History...)
	}
	if r.StartedAt != nil {
		ts := *r.StartedAt
		clone.StartedAt = &ts
	}
	if r.CompletedAt != nil {
		ts := *r.CompletedAt
		clone.CompletedAt = &ts
	}
	return &clone
}

// ExecutionResult represents aggregated outcome of an execution
type ExecutionResult struct {
	ExecutionID  string                 `json:"executionId"`
	DefinitionID string                 `json:"definitionId"`
	Status       Status                 `json:"status"`
	Steps        []*StepResult          `json:"steps"`
	Results      map[string]*StepResult `json:"-"`
	TokensUsed   int64                  `json:"tokensUsed"`
	Errors       map[string]string      `json:"errors,omitempty"`
	StartedAt    time.Time              `json:"startedAt"`
	CompletedAt  time.Time              `json:"completedAt"`
}

// Result returns step result by id
func (r *ExecutionResult) Result(stepID string) *StepResult {
	if r == nil {
		return nil
	}
	return r.Results[stepID]
}

// Succeeded returns true when overall status is succeeded
func (r *ExecutionResult) Succeeded() bool {
	return r != nil && r.Status == StatusSucceeded
}

// Variables returns extracted values with output, status and error, used by edge conditions
func (r *StepResult) Variables() map[string]interface{} {
	ret := make(map[string]interface{}, len(r.Extracted)+3)
	for k, v := range r.Extracted {
		ret[k] = v
	}
	ret["output"] = r.Text()
	ret["status"] = string(r.Status)
	ret["error"] = r.Error
	return ret
}
