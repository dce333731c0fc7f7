// Package invoker defines the capability used by agent-call steps.
package invoker

import (
	"context"
)

// Request represents a single agent invocation
type Request struct {
	ExecutionID string                 `json:"executionId"`
	StepID      string                 `json:"stepId"`
	Config      map[string]interface{} `json:"config,omitempty"`
	// Inputs holds initial execution inputs and upstream step values
	Inputs map[string]interface{} `json:"inputs,omitempty"`
}

// Response represents invocation outcome.
type Response struct {
	Text       string `json:"text"`
	Success    bool   `json:"success"`
	TokensUsed int    `json:"tokensUsed,omitempty"`
	Error      string `json:"error,omitempty"`
}

// Service executes one unit of work. Implementations must be safe for concurrent use.
type Service interface {
	Invoke(ctx context.Context, request *Request) (*Response, error)
}

// Func adapts a function to Service
type Func func(ctx context.Context, request *Request) (*Response, error)

// Invoke calls f
func (f Func) Invoke(ctx context.Context, request *Request) (*Response, error) {
	return f(ctx, request)
}
