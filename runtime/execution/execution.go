package execution

import (
	"sort"
	"sync"
	"time"

	"github.com/viant/flowmind/internal/clock"
	"github.com/viant/flowmind/internal/idgen"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
)

// Execution represents a single run of a workflow definition. All mutation is
// serialised by one mutex; once finalized, mutators are no-ops.
type Execution struct {
	ID           string                 `json:"id"`
	DefinitionID string                 `json:"definitionId"`
	Inputs       map[string]interface{} `json:"inputs,omitempty"`
	StartedAt    time.Time              `json:"startedAt"`

	mux       sync.RWMutex
	results   map[string]*StepResult
	order     []string
	pos       map[string]int
	runAfter  map[string]time.Time
	tokens    int64
	cancelled bool
	final     *ExecutionResult
}

// NewExecution creates an execution with every step pending
func NewExecution(definitionID string, steps []*graph.Step, inputs map[string]interface{}) *Execution {
	ret := &Execution{
		ID:           generateExecutionID(definitionID),
		DefinitionID: definitionID,
		Inputs:       inputs,
		StartedAt:    clock.Now(),
		results:      make(map[string]*StepResult, len(steps)),
		pos:          make(map[string]int, len(steps)),
		runAfter:     make(map[string]time.Time),
	}
	if ret.Inputs == nil {
		ret.Inputs = map[string]interface{}{}
	}
	for _, step := range steps {
		ret.results[step.ID] = NewStepResult(step.ID, step.Kind)
	}
	return ret
}

// generateExecutionID creates a unique ID for an execution
func generateExecutionID(definitionID string) string {
	if definitionID == "" {
		return idgen.New()
	}
	return definitionID + "/" + idgen.New()
}

// Tx exposes execution state to a function running under the write lock
type Tx struct {
	e *Execution
}

// Mutate runs fn under the execution write lock
func (e *Execution) Mutate(fn func(tx *Tx)) {
	e.mux.Lock()
	defer e.mux.Unlock()
	fn(&Tx{e: e})
}

// Status returns step status
func (t *Tx) Status(stepID string) StepStatus {
	if r, ok := t.e.results[stepID]; ok {
		return r.Status
	}
	return ""
}

// Result returns live step result, callers must not retain it outside the transaction
func (t *Tx) Result(stepID string) *StepResult {
	return t.e.results[stepID]
}

// RunAfter returns earliest time pending step may be dispatched
func (t *Tx) RunAfter(stepID string) (time.Time, bool) {
	at, ok := t.e.runAfter[stepID]
	return at, ok
}

// Cancelled returns true if execution was cancelled
func (t *Tx) Cancelled() bool {
	return t.e.cancelled
}

// Variables returns expression variables, see Execution.Variables
func (t *Tx) Variables() map[string]interface{} {
	return t.e.variables()
}

// Skip marks pending step as skipped
func (t *Tx) Skip(stepID string, detail string) bool {
	return t.e.transition(stepID, func(r *StepResult) {
		r.Status = StepStatusSkipped
		r.Error = detail
	}, StepStatusPending)
}

// Repeat resets succeeded step to pending for another loop iteration, the attempt budget starts over
func (t *Tx) Repeat(stepID string) bool {
	e := t.e
	if e.cancelled || e.final != nil {
		return false
	}
	r, ok := e.results[stepID]
	if !ok || r.Status != StepStatusSucceeded {
		return false
	}
	r.Status = StepStatusPending
	r.Attempts = 0
	e.reopen(stepID)
	return true
}

// Fail turns succeeded step into a failure
func (t *Tx) Fail(stepID string, err error) bool {
	return t.e.transition(stepID, func(r *StepResult) {
		r.Fail(err)
	}, StepStatusSucceeded)
}

func (e *Execution) transition(stepID string, apply func(r *StepResult), from ...StepStatus) bool {
	if e.final != nil {
		return false
	}
	r, ok := e.results[stepID]
	if !ok {
		return false
	}
	if len(from) > 0 {
		matched := false
		for _, status := range from {
			if r.Status == status {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	apply(r)
	if r.Status.IsTerminal() {
		if r.CompletedAt == nil {
			now := clock.Now()
			r.CompletedAt = &now
		}
		if _, ok := e.pos[stepID]; !ok {
			e.pos[stepID] = len(e.order)
			e.order = append(e.order, stepID)
		}
	}
	return true
}

// Begin moves pending step into running, it returns false for cancelled or non-pending steps
func (e *Execution) Begin(stepID string) bool {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.cancelled {
		return false
	}
	return e.transition(stepID, func(r *StepResult) {
		now := clock.Now()
		r.Status = StepStatusRunning
		r.StartedAt = &now
		r.CompletedAt = nil
		r.Error = ""
		r.ErrorKind = ""
		r.Attempts++
		delete(e.runAfter, stepID)
	}, StepStatusPending)
}

// Record stores outcome of a running or waiting step. Outcomes arriving after cancellation are recorded as cancelled.
func (e *Execution) Record(result *StepResult) bool {
	if result == nil {
		return false
	}
	e.mux.Lock()
	defer e.mux.Unlock()
	return e.transition(result.StepID, func(r *StepResult) {
		r.Output = result.Output
		r.Extracted = result.Extracted
		r.Error = result.Error
		r.ErrorKind = result.ErrorKind
		if result.RequestID != "" {
			r.RequestID = result.RequestID
		}
		if result.TokensUsed > 0 {
			r.TokensUsed += result.TokensUsed
			e.tokens += int64(result.TokensUsed)
		}
		r.Status = result.Status
		if e.cancelled && r.Status != StepStatusWaiting {
			r.Status = StepStatusCancelled
			if r.ErrorKind == "" {
				r.ErrorKind = types.KindCancelled
			}
		}
	}, StepStatusRunning, StepStatusWaiting)
}

// Await moves running step into waiting for the supplied external request
func (e *Execution) Await(stepID, requestID string) bool {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.cancelled {
		return false
	}
	return e.transition(stepID, func(r *StepResult) {
		r.Status = StepStatusWaiting
		r.RequestID = requestID
	}, StepStatusRunning)
}

// Resolve completes waiting step with value
func (e *Execution) Resolve(stepID string, output string, extracted map[string]interface{}) bool {
	e.mux.Lock()
	defer e.mux.Unlock()
	return e.transition(stepID, func(r *StepResult) {
		r.Status = StepStatusSucceeded
		r.SetOutput(output)
		r.Extracted = extracted
	}, StepStatusWaiting)
}

// Expire fails waiting step with Timeout kind
func (e *Execution) Expire(stepID string, err error) bool {
	e.mux.Lock()
	defer e.mux.Unlock()
	if err == nil {
		err = types.NewError(types.KindTimeout, stepID, "wait expired")
	}
	return e.transition(stepID, func(r *StepResult) {
		r.Fail(err)
		r.ErrorKind = types.KindTimeout
	}, StepStatusWaiting)
}

// Retry resets failed step to pending; it is dispatched again no earlier than runAfter
func (e *Execution) Retry(stepID string, runAfter time.Time) bool {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.cancelled || e.final != nil {
		return false
	}
	r, ok := e.results[stepID]
	if !ok || r.Status != StepStatusFailed {
		return false
	}
	r.Status = StepStatusPending
	e.runAfter[stepID] = runAfter
	e.reopen(stepID)
	return true
}

// reopen removes a step from completion order
func (e *Execution) reopen(stepID string) {
	idx, ok := e.pos[stepID]
	if !ok {
		return
	}
	e.order = append(e.order[:idx], e.order[idx+1:]...)
	delete(e.pos, stepID)
	for i := idx; i < len(e.order); i++ {
		e.pos[e.order[i]] = i
	}
}

// Cancel marks every non-terminal step cancelled, it returns ids of steps that were active
func (e *Execution) Cancel() []string {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.final != nil {
		return nil
	}
	e.cancelled = true
	var active []string
	for id, r := range e.results {
		if r.Status.IsTerminal() {
			continue
		}
		if r.Status.IsActive() {
			active = append(active, id)
		}
		e.transition(id, func(r *StepResult) {
			r.Status = StepStatusCancelled
			r.ErrorKind = types.KindCancelled
			r.Error = "execution cancelled"
		})
	}
	return active
}

// IsCancelled returns true if execution was cancelled
func (e *Execution) IsCancelled() bool {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.cancelled
}

// IsFinalized returns true once Finalize was called
func (e *Execution) IsFinalized() bool {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.final != nil
}

// AddTokens increments cost counter, negative values are ignored
func (e *Execution) AddTokens(n int) {
	if n <= 0 {
		return
	}
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.final == nil {
		e.tokens += int64(n)
	}
}

// Tokens returns cumulative cost counter
func (e *Execution) Tokens() int64 {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.tokens
}

// Result returns a copy of step result
func (e *Execution) Result(stepID string) *StepResult {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.results[stepID].Clone()
}

// Status returns step status
func (e *Execution) Status(stepID string) StepStatus {
	e.mux.RLock()
	defer e.mux.RUnlock()
	if r, ok := e.results[stepID]; ok {
		return r.Status
	}
	return ""
}

// Snapshot returns a consistent copy of all step results
func (e *Execution) Snapshot() map[string]*StepResult {
	e.mux.RLock()
	defer e.mux.RUnlock()
	ret := make(map[string]*StepResult, len(e.results))
	for id, r := range e.results {
		ret[id] = r.Clone()
	}
	return ret
}

// Ordered returns terminal results in completion order followed by remaining ones
func (e *Execution) Ordered() []*StepResult {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.ordered()
}

func (e *Execution) ordered() []*StepResult {
	ret := make([]*StepResult, 0, len(e.results))
	for _, id := range e.order {
		ret = append(ret, e.results[id].Clone())
	}
	var rest []string
	for id := range e.results {
		if _, ok := e.pos[id]; !ok {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		ret = append(ret, e.results[id].Clone())
	}
	return ret
}

// Finalize freezes the execution and builds aggregated result, subsequent calls return the same result
func (e *Execution) Finalize(status Status) *ExecutionResult {
	e.mux.Lock()
	defer e.mux.Unlock()
	if e.final != nil {
		return e.final
	}
	steps := e.ordered()
	result := &ExecutionResult{
		ExecutionID:  e.ID,
		DefinitionID: e.DefinitionID,
		Status:       status,
		Steps:        steps,
		Results:      make(map[string]*StepResult, len(steps)),
		TokensUsed:   e.tokens,
		StartedAt:    e.StartedAt,
		CompletedAt:  clock.Now(),
	}
	for _, step := range steps {
		result.Results[step.StepID] = step
		if step.Error != "" && step.Status != StepStatusSucceeded {
			if result.Errors == nil {
				result.Errors = map[string]string{}
			}
			result.Errors[step.StepID] = step.Error
		}
	}
	e.final = result
	return result
}

// Final returns aggregated result or nil when execution is still running
func (e *Execution) Final() *ExecutionResult {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.final
}

// Variables returns expression variables: initial inputs, a "steps" map keyed by step id
// and, unless shadowed by an input, each step result under its own id.
func (e *Execution) Variables() map[string]interface{} {
	e.mux.RLock()
	defer e.mux.RUnlock()
	return e.variables()
}

func (e *Execution) variables() map[string]interface{} {
	ret := make(map[string]interface{}, len(e.Inputs)+len(e.results)+1)
	for k, v := range e.Inputs {
		ret[k] = v
	}
	steps := make(map[string]interface{}, len(e.results))
	for id, r := range e.results {
		if !r.Status.IsTerminal() {
			continue
		}
		vars := r.Variables()
		steps[id] = vars
		if _, ok := ret[id]; !ok {
			ret[id] = vars
		}
	}
	ret["steps"] = steps
	return ret
}
