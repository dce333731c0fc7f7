package orchestrator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/viant/flowmind/internal/clock"
	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/model"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/progress"
	"github.com/viant/flowmind/runtime/execution"
	"github.com/viant/flowmind/service/parser"
	"github.com/viant/flowmind/service/scheduler"
	"github.com/viant/flowmind/service/suspension"
	"github.com/viant/flowmind/tracing"
)

// Service executes workflow definitions
type Service struct {
	config     *Config
	scheduler  *scheduler.Service
	suspension suspension.Service
	parser     *parser.Parser

	mux  sync.RWMutex
	runs map[string]*Run
}

// New creates an orchestrator, it subscribes to suspension outcomes
func New(scheduler *scheduler.Service, suspensionService suspension.Service, options ...Option) (*Service, error) {
	if scheduler == nil {
		return nil, fmt.Errorf("scheduler is required")
	}
	if suspensionService == nil {
		return nil, fmt.Errorf("suspension service is required")
	}
	ret := &Service{
		config:     DefaultConfig(),
		scheduler:  scheduler,
		suspension: suspensionService,
		parser:     parser.New(),
		runs:       map[string]*Run{},
	}
	for _, opt := range options {
		opt(ret)
	}
	suspensionService.Subscribe(ret.onRequest)
	return ret, nil
}

// Run executes definition and blocks until the execution is finalized.
// Step failures are reported in the result, the error is reserved for run level failures.
func (s *Service) Run(ctx context.Context, definition *model.Definition, inputs map[string]interface{}) (*execution.ExecutionResult, error) {
	run, err := s.Start(ctx, definition, inputs)
	if err != nil {
		return nil, err
	}
	<-run.Done()
	return run.Wait(context.Background())
}

// Start validates definition and starts the execution in the background.
// Cancelling ctx cancels the execution.
func (s *Service) Start(ctx context.Context, definition *model.Definition, inputs map[string]interface{}) (*Run, error) {
	if definition == nil {
		return nil, types.NewError(types.KindInvalidDefinition, "", "definition is nil")
	}
	if err := definition.Init(); err != nil {
		return nil, err
	}
	anExecution := execution.NewExecution(definition.ID, definition.Steps, inputs)
	runCtx, cancel := context.WithCancel(ctx)
	run := newRun(definition, anExecution, cancel)
	s.mux.Lock()
	s.runs[run.ID()] = run
	s.mux.Unlock()
	go s.loop(runCtx, run)
	return run, nil
}

// Lookup returns an active run
func (s *Service) Lookup(executionID string) (*Run, bool) {
	s.mux.RLock()
	defer s.mux.RUnlock()
	run, ok := s.runs[executionID]
	return run, ok
}

// Cancel cancels an active run
func (s *Service) Cancel(executionID string) error {
	run, ok := s.Lookup(executionID)
	if !ok {
		return types.NewError(types.KindNotFound, "", "execution %s is not active", executionID)
	}
	run.Cancel()
	return nil
}

func (s *Service) loop(ctx context.Context, run *Run) {
	ctx, span := tracing.StartSpan(ctx, "workflow "+run.definition.ID, "INTERNAL")
	span.WithAttributes(map[string]string{
		"execution.id":  run.ID(),
		"definition.id": run.definition.ID,
	})
	log := logger.Ctx(ctx).With("execution", run.ID(), "definition", run.definition.ID)
	ctx = logger.WithLogger(ctx, log)
	log.Info("execution started", "steps", len(run.definition.Steps))

	result := s.drive(ctx, run)
	progress.Report(ctx, run.execution)
	var spanErr error
	if result.Status == execution.StatusFailed {
		spanErr = fmt.Errorf("execution %s failed", run.ID())
	}
	span.WithAttributes(map[string]string{"execution.status": string(result.Status)})
	tracing.EndSpan(span, spanErr)
	log.Info("execution finished", "status", result.Status, "tokens", result.TokensUsed, "errors", len(result.Errors))
	s.mux.Lock()
	delete(s.runs, run.ID())
	s.mux.Unlock()
	run.finish(result, nil)
}

func (s *Service) drive(ctx context.Context, run *Run) *execution.ExecutionResult {
	anExecution := run.execution
	for {
		if ctx.Err() != nil {
			return s.cancelRun(ctx, run)
		}
		if _, err := s.suspension.CheckExpired(ctx, clock.Now()); err != nil {
			logger.Ctx(ctx).Warn("failed to check expired requests", "error", err)
		}
		ready, next := s.schedule(ctx, run, clock.Now())
		if len(ready) > 0 {
			s.dispatch(ctx, run, ready)
			progress.Report(ctx, anExecution)
			continue
		}
		waiting := 0
		for _, result := range anExecution.Snapshot() {
			if result.Status.IsActive() {
				waiting++
			}
		}
		if waiting == 0 && next.IsZero() {
			return anExecution.Finalize(aggregate(anExecution))
		}
		if deadline, ok := s.nearestDeadline(ctx, run); ok && (next.IsZero() || deadline.Before(next)) {
			// requests expire strictly after their deadline
			next = deadline.Add(time.Millisecond)
		}
		progress.Report(ctx, anExecution)
		s.block(ctx, run, next)
	}
}

func (s *Service) block(ctx context.Context, run *Run, until time.Time) {
	var timeout <-chan time.Time
	if !until.IsZero() {
		delay := until.Sub(clock.Now())
		if delay < 0 {
			delay = 0
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		timeout = timer.C
	}
	select {
	case <-run.wake:
	case <-timeout:
	case <-ctx.Done():
	}
}

func (s *Service) nearestDeadline(ctx context.Context, run *Run) (time.Time, bool) {
	pending, err := s.suspension.ListPending(ctx, suspension.WithExecutionID(run.ID()))
	if err != nil || len(pending) == 0 {
		return time.Time{}, false
	}
	nearest := pending[0].Deadline
	for _, request := range pending[1:] {
		if request.Deadline.Before(nearest) {
			nearest = request.Deadline
		}
	}
	return nearest, true
}

// dispatch runs one round, it returns once every step is terminal or waiting, or ctx is done
func (s *Service) dispatch(ctx context.Context, run *Run, steps []*graph.Step) {
	index := make(map[string]*graph.Step, len(steps))
	for _, step := range steps {
		index[step.ID] = step
	}
	logger.Ctx(ctx).Debug("dispatching round", "steps", len(steps))
	results := s.scheduler.Dispatch(ctx, run.execution, steps, s.config.Workers)
	for {
		select {
		case result, ok := <-results:
			if !ok {
				return
			}
			s.onResult(ctx, run, index[result.StepID], result)
		case <-ctx.Done():
			return
		}
	}
}

func (s *Service) onResult(ctx context.Context, run *Run, step *graph.Step, result *execution.StepResult) {
	log := logger.Ctx(ctx)
	switch result.Status {
	case execution.StepStatusFailed:
		log.Warn("step failed", "step", result.StepID, "kind", result.ErrorKind, "attempt", result.Attempts, "error", result.Error)
		if step == nil || !isTransient(result.ErrorKind) {
			return
		}
		retry, delay := s.shouldRetry(step.Retry, result.Attempts)
		if retry && run.execution.Retry(step.ID, clock.Now().Add(delay)) {
			log.Info("step scheduled for retry", "step", step.ID, "attempt", result.Attempts+1, "delay", delay)
			tracing.SpanFromContext(ctx).AddEvent("step.retry", map[string]string{
				"step.id": step.ID,
				"attempt": fmt.Sprint(result.Attempts + 1),
				"delay":   delay.String(),
			})
		}
	case execution.StepStatusWaiting:
		log.Info("step waiting for input", "step", result.StepID, "request", result.RequestID)
	case execution.StepStatusSucceeded:
		log.Debug("step completed", "step", result.StepID, "tokens", result.TokensUsed)
		if step != nil && step.Loop != nil {
			s.iterate(ctx, run, step)
		}
	default:
		log.Debug("step completed", "step", result.StepID, "status", result.Status, "tokens", result.TokensUsed)
	}
}

func isTransient(kind types.ErrorKind) bool {
	return kind == types.KindInvokerFailure || kind == types.KindTimeout
}

func (s *Service) cancelRun(ctx context.Context, run *Run) *execution.ExecutionResult {
	active := run.execution.Cancel()
	// ctx is already done, expiring requests must not depend on it
	if _, err := s.suspension.CancelExecution(context.WithoutCancel(ctx), run.ID()); err != nil {
		logger.Ctx(ctx).Warn("failed to cancel pending requests", "error", err)
	}
	logger.Ctx(ctx).Info("execution cancelled", "active", len(active))
	tracing.SpanFromContext(ctx).AddEvent("execution.cancelled", map[string]string{"active": fmt.Sprint(len(active))})
	return run.execution.Finalize(execution.StatusCancelled)
}

func aggregate(anExecution *execution.Execution) execution.Status {
	if anExecution.IsCancelled() {
		return execution.StatusCancelled
	}
	for _, result := range anExecution.Snapshot() {
		if result.Status == execution.StepStatusFailed {
			return execution.StatusFailed
		}
	}
	return execution.StatusSucceeded
}

// onRequest applies suspension outcomes; it runs under the suspension lock and must not call back into it
func (s *Service) onRequest(ctx context.Context, request *suspension.Request) {
	run, ok := s.Lookup(request.ExecutionID)
	if !ok {
		return
	}
	defer run.signal()
	anExecution := run.execution
	switch request.State {
	case suspension.StateResolved:
		output, extracted := s.resolution(request.Value)
		if anExecution.Resolve(request.StepID, output, extracted) {
			s.iterateResolved(ctx, run, request.StepID)
		}
	case suspension.StateExpired:
		if request.Reason == suspension.ReasonCancelled {
			return
		}
		if request.HasFallback() {
			output, extracted := s.resolution(request.Fallback)
			if anExecution.Resolve(request.StepID, output, extracted) {
				s.iterateResolved(ctx, run, request.StepID)
			}
			return
		}
		anExecution.Expire(request.StepID, types.NewError(types.KindTimeout, request.StepID, "input request %s expired", request.ID))
	}
}

// resolution converts a resolved value into step output and extracted values
func (s *Service) resolution(value interface{}) (string, map[string]interface{}) {
	extracted := map[string]interface{}{"value": value}
	switch actual := value.(type) {
	case nil:
		return "", extracted
	case string:
		for k, v := range s.parser.Extract(actual) {
			if k != "value" {
				extracted[k] = v
			}
		}
		return actual, extracted
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Sprint(value), extracted
	}
	return string(data), extracted
}
