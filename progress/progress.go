package progress

import (
	"context"
	"sync"
	"time"

	"github.com/viant/flowmind/runtime/execution"
)

// Progress holds step counters of a single execution
type Progress struct {
	ExecutionID  string    `json:"executionId"`
	DefinitionID string    `json:"definitionId"`
	StartedAt    time.Time `json:"startedAt"`

	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Waiting   int `json:"waiting"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Cancelled int `json:"cancelled"`
}

// Completed returns number of terminal steps
func (p Progress) Completed() int {
	return p.Succeeded + p.Failed + p.Skipped + p.Cancelled
}

// Count builds progress from execution state
func Count(anExecution *execution.Execution) Progress {
	ret := Progress{
		ExecutionID:  anExecution.ID,
		DefinitionID: anExecution.DefinitionID,
		StartedAt:    anExecution.StartedAt,
	}
	for _, result := range anExecution.Snapshot() {
		ret.Total++
		switch result.Status {
		case execution.StepStatusPending:
			ret.Pending++
		case execution.StepStatusRunning:
			ret.Running++
		case execution.StepStatusWaiting:
			ret.Waiting++
		case execution.StepStatusSucceeded:
			ret.Succeeded++
		case execution.StepStatusFailed:
			ret.Failed++
		case execution.StepStatusSkipped:
			ret.Skipped++
		case execution.StepStatusCancelled:
			ret.Cancelled++
		}
	}
	return ret
}

// Tracker keeps the latest progress of an execution. It is safe for concurrent use.
type Tracker struct {
	mux      sync.Mutex
	current  Progress
	onChange func(Progress)
}

// Observe stores p; the onChange callback runs outside the lock and only when counters changed
func (t *Tracker) Observe(p Progress) {
	if t == nil {
		return
	}
	t.mux.Lock()
	changed := t.current != p
	t.current = p
	cb := t.onChange
	t.mux.Unlock()
	if changed && cb != nil {
		cb(p)
	}
}

// Snapshot returns the latest progress
func (t *Tracker) Snapshot() Progress {
	if t == nil {
		return Progress{}
	}
	t.mux.Lock()
	defer t.mux.Unlock()
	return t.current
}

// OnChange replaces the change callback, nil disables it
func (t *Tracker) OnChange(cb func(Progress)) {
	if t == nil {
		return
	}
	t.mux.Lock()
	t.onChange = cb
	t.mux.Unlock()
}

type trackerKeyT struct{}

var trackerKey trackerKeyT

// WithNewTracker creates a tracker and embeds it in a derived context. An
// execution started with that context reports its progress to the tracker.
func WithNewTracker(ctx context.Context, onChange func(Progress)) (context.Context, *Tracker) {
	if ctx == nil {
		ctx = context.Background()
	}
	tr := &Tracker{onChange: onChange}
	return context.WithValue(ctx, trackerKey, tr), tr
}

// FromContext extracts the tracker from ctx
func FromContext(ctx context.Context) (*Tracker, bool) {
	if ctx == nil {
		return nil, false
	}
	tr, ok := ctx.Value(trackerKey).(*Tracker)
	return tr, ok
}

// Report counts execution steps and hands the result to the context tracker, if any
func Report(ctx context.Context, anExecution *execution.Execution) {
	if tr, ok := FromContext(ctx); ok {
		tr.Observe(Count(anExecution))
	}
}
