package orchestrator

import (
	"context"
	"sync"

	"github.com/viant/flowmind/model"
	"github.com/viant/flowmind/runtime/execution"
)

// Run represents a started workflow execution
type Run struct {
	definition *model.Definition
	execution  *execution.Execution
	cancel     context.CancelFunc
	wake       chan struct{}
	done       chan struct{}
	// blocked holds steps skipped because a dependency failed, owned by the run loop
	blocked map[string]bool

	mux    sync.Mutex
	result *execution.ExecutionResult
	err    error
}

func newRun(definition *model.Definition, anExecution *execution.Execution, cancel context.CancelFunc) *Run {
	return &Run{
		definition: definition,
		execution:  anExecution,
		cancel:     cancel,
		wake:       make(chan struct{}, 1),
		done:       make(chan struct{}),
		blocked:    map[string]bool{},
	}
}

// ID returns execution id
func (r *Run) ID() string {
	return r.execution.ID
}

// Execution returns live execution
func (r *Run) Execution() *execution.Execution {
	return r.execution
}

// Definition returns definition being executed
func (r *Run) Definition() *model.Definition {
	return r.definition
}

// Cancel requests cancellation, Wait returns once the run is finalized
func (r *Run) Cancel() {
	r.cancel()
}

// Done is closed once the run is finalized
func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the run is finalized or ctx is done
func (r *Run) Wait(ctx context.Context) (*execution.ExecutionResult, error) {
	select {
	case <-r.done:
		r.mux.Lock()
		defer r.mux.Unlock()
		return r.result, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// signal wakes the run loop, it never blocks
func (r *Run) signal() {
	select {
	case r.wake <- struct{}{}:
	default:
	}
}

func (r *Run) finish(result *execution.ExecutionResult, err error) {
	r.mux.Lock()
	r.result = result
	r.err = err
	r.mux.Unlock()
	close(r.done)
}
