package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/runtime/execution"
	"github.com/viant/flowmind/service/messaging"
	"github.com/viant/flowmind/service/messaging/memory"
	"github.com/viant/flowmind/tracing"
)

// Config represents scheduler configuration
type Config struct {
	// Workers is the default maximum parallelism of a batch
	Workers int `json:"workers,omitempty" yaml:"workers,omitempty"`
}

// DefaultConfig returns the default scheduler configuration
func DefaultConfig() Config {
	return Config{Workers: 4}
}

// Runner executes a single step. A result with StepStatusWaiting means the
// step suspended itself and is completed outside of the scheduler.
type Runner interface {
	Run(ctx context.Context, anExecution *execution.Execution, step *graph.Step) *execution.StepResult
}

// RunnerFunc adapts a function to Runner
type RunnerFunc func(ctx context.Context, anExecution *execution.Execution, step *graph.Step) *execution.StepResult

// Run calls f
func (f RunnerFunc) Run(ctx context.Context, anExecution *execution.Execution, step *graph.Step) *execution.StepResult {
	return f(ctx, anExecution, step)
}

// Service dispatches batches of steps
type Service struct {
	config Config
	runner Runner
}

type task struct {
	step *graph.Step
}

type worker struct {
	id          int
	service     *Service
	queue       *memory.Queue[task]
	anExecution *execution.Execution
	out         chan<- *execution.StepResult
}

// New creates a scheduler
func New(options ...Option) (*Service, error) {
	s := &Service{config: DefaultConfig()}
	for _, opt := range options {
		opt(s)
	}
	if s.runner == nil {
		return nil, fmt.Errorf("runner is required")
	}
	if s.config.Workers <= 0 {
		s.config.Workers = DefaultConfig().Workers
	}
	return s, nil
}

// Workers returns default parallelism
func (s *Service) Workers() int {
	return s.config.Workers
}

// Dispatch runs steps with at most maxWorkers concurrent workers (maxWorkers <= 0 uses the configured default).
// Outcomes are delivered as they complete and the channel is closed once every step was delivered.
func (s *Service) Dispatch(ctx context.Context, anExecution *execution.Execution, steps []*graph.Step, maxWorkers int) <-chan *execution.StepResult {
	out := make(chan *execution.StepResult, len(steps))
	if len(steps) == 0 {
		close(out)
		return out
	}
	if maxWorkers <= 0 {
		maxWorkers = s.config.Workers
	}
	if maxWorkers > len(steps) {
		maxWorkers = len(steps)
	}
	queue := memory.NewQueue[task](memory.Config{QueueBuffer: len(steps)})
	for _, step := range steps {
		// buffer holds the whole batch so publishing never blocks
		_ = queue.Publish(context.Background(), &task{step: step})
	}
	var workerWg sync.WaitGroup
	for i := 0; i < maxWorkers; i++ {
		w := &worker{id: i, service: s, queue: queue, anExecution: anExecution, out: out}
		workerWg.Add(1)
		go func() {
			defer workerWg.Done()
			w.run(ctx)
		}()
	}
	go func() {
		workerWg.Wait()
		close(out)
	}()
	return out
}

func (w *worker) run(ctx context.Context) {
	for {
		msg, ok := w.queue.TryConsume()
		if !ok {
			return
		}
		w.out <- w.process(ctx, msg)
	}
}

func (w *worker) process(ctx context.Context, msg messaging.Message[task]) *execution.StepResult {
	step := msg.T().step
	defer func() { _ = msg.Ack() }()
	if !w.anExecution.Begin(step.ID) {
		// cancelled or no longer pending
		if actual := w.anExecution.Result(step.ID); actual != nil {
			return actual
		}
		result := execution.NewStepResult(step.ID, step.Kind)
		result.Fail(types.NewError(types.KindNotFound, step.ID, "step is not part of execution %s", w.anExecution.ID))
		return result
	}
	ctx, span := tracing.StartSpan(ctx, "step "+step.ID, "INTERNAL")
	span.WithAttributes(map[string]string{
		"execution.id": w.anExecution.ID,
		"step.id":      step.ID,
		"step.kind":    string(step.Kind),
	})
	result := w.invoke(ctx, step)
	if result.Status != execution.StepStatusWaiting {
		w.anExecution.Record(result)
	}
	actual := w.anExecution.Result(step.ID)
	var spanErr error
	if actual.Status == execution.StepStatusFailed {
		spanErr = fmt.Errorf("%s", actual.Error)
	}
	tracing.EndSpan(span, spanErr)
	logger.Ctx(ctx).Debug("step finished", "worker", w.id, "execution", w.anExecution.ID, "step", step.ID, "status", actual.Status)
	return actual
}

func (w *worker) invoke(ctx context.Context, step *graph.Step) (result *execution.StepResult) {
	defer func() {
		if r := recover(); r != nil {
			result = execution.NewStepResult(step.ID, step.Kind)
			result.Fail(types.NewError(types.KindInvokerFailure, step.ID, "panic: %v\n%s", r, debug.Stack()))
		}
	}()
	result = w.service.runner.Run(ctx, w.anExecution, step)
	if result == nil {
		result = execution.NewStepResult(step.ID, step.Kind)
		result.Fail(types.NewError(types.KindInvokerFailure, step.ID, "runner returned no result"))
	}
	result.StepID = step.ID
	return result
}
