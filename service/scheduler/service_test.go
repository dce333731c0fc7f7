package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/runtime/execution"
)

func newSteps(n int) []*graph.Step {
	var steps []*graph.Step
	for i := 0; i < n; i++ {
		steps = append(steps, graph.NewStep(fmt.Sprintf("s%02d", i), graph.KindAgentCall))
	}
	return steps
}

func collect(results <-chan *execution.StepResult) []*execution.StepResult {
	var ret []*execution.StepResult
	for result := range results {
		ret = append(ret, result)
	}
	return ret
}

func succeed(text string) *execution.StepResult {
	result := &execution.StepResult{Status: execution.StepStatusSucceeded, TokensUsed: 1}
	result.SetOutput(text)
	return result
}

func TestService_Dispatch_Bounded(t *testing.T) {
	testCases := []struct {
		name       string
		steps      int
		maxWorkers int
		expectMax  int32
	}{
		{name: "two workers", steps: 6, maxWorkers: 2, expectMax: 2},
		{name: "more workers than steps", steps: 3, maxWorkers: 10, expectMax: 3},
		{name: "sequential", steps: 4, maxWorkers: 1, expectMax: 1},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var active, peak int32
			var wg sync.WaitGroup
			wg.Add(tc.steps)
			release := make(chan struct{})
			var releaseOnce sync.Once
			runner := RunnerFunc(func(ctx context.Context, e *execution.Execution, step *graph.Step) *execution.StepResult {
				current := atomic.AddInt32(&active, 1)
				for {
					observed := atomic.LoadInt32(&peak)
					if current <= observed || atomic.CompareAndSwapInt32(&peak, observed, current) {
						break
					}
				}
				if current == tc.expectMax {
					releaseOnce.Do(func() { close(release) })
				}
				select {
				case <-release:
				case <-time.After(500 * time.Millisecond):
				}
				atomic.AddInt32(&active, -1)
				wg.Done()
				return succeed(step.ID)
			})
			svc, err := New(WithRunner(runner))
			require.NoError(t, err)
			steps := newSteps(tc.steps)
			anExecution := execution.NewExecution("wf", steps, nil)

			results := collect(svc.Dispatch(context.Background(), anExecution, steps, tc.maxWorkers))
			wg.Wait()
			assert.Len(t, results, tc.steps)
			assert.Equal(t, tc.expectMax, atomic.LoadInt32(&peak))
			assert.EqualValues(t, tc.steps, anExecution.Tokens())
			for _, result := range results {
				assert.Equal(t, execution.StepStatusSucceeded, result.Status)
				assert.Equal(t, result.StepID, result.Text())
			}
		})
	}
}

func TestService_Dispatch_FIFO(t *testing.T) {
	var mu sync.Mutex
	var order []string
	svc, err := New(WithRunner(RunnerFunc(func(ctx context.Context, e *execution.Execution, step *graph.Step) *execution.StepResult {
		mu.Lock()
		order = append(order, step.ID)
		mu.Unlock()
		return succeed("")
	})))
	require.NoError(t, err)
	steps := newSteps(5)
	results := collect(svc.Dispatch(context.Background(), execution.NewExecution("wf", steps, nil), steps, 1))
	assert.Len(t, results, 5)
	assert.Equal(t, []string{"s00", "s01", "s02", "s03", "s04"}, order)
}

func TestService_Dispatch_Outcomes(t *testing.T) {
	svc, err := New(WithRunner(RunnerFunc(func(ctx context.Context, e *execution.Execution, step *graph.Step) *execution.StepResult {
		switch step.ID {
		case "s00":
			result := &execution.StepResult{}
			result.Fail(types.NewError(types.KindInvokerFailure, step.ID, "boom"))
			return result
		case "s01":
			panic("unexpected")
		case "s02":
			return nil
		case "s03":
			e.Await(step.ID, "req-1")
			return &execution.StepResult{Status: execution.StepStatusWaiting}
		}
		return succeed("ok")
	})))
	require.NoError(t, err)
	steps := newSteps(5)
	anExecution := execution.NewExecution("wf", steps, nil)
	results := collect(svc.Dispatch(context.Background(), anExecution, steps, 3))
	require.Len(t, results, 5)

	expect := map[string]execution.StepStatus{
		"s00": execution.StepStatusFailed,
		"s01": execution.StepStatusFailed,
		"s02": execution.StepStatusFailed,
		"s03": execution.StepStatusWaiting,
		"s04": execution.StepStatusSucceeded,
	}
	for id, status := range expect {
		assert.Equal(t, status, anExecution.Status(id), id)
	}
	assert.Contains(t, anExecution.Result("s01").Error, "panic")
	assert.Equal(t, "req-1", anExecution.Result("s03").RequestID)
}

func TestService_Dispatch_Cancelled(t *testing.T) {
	var calls int32
	svc, err := New(WithRunner(RunnerFunc(func(ctx context.Context, e *execution.Execution, step *graph.Step) *execution.StepResult {
		atomic.AddInt32(&calls, 1)
		return succeed("")
	})))
	require.NoError(t, err)
	steps := newSteps(3)
	anExecution := execution.NewExecution("wf", steps, nil)
	anExecution.Cancel()
	results := collect(svc.Dispatch(context.Background(), anExecution, steps, 2))
	assert.Len(t, results, 3)
	assert.EqualValues(t, 0, atomic.LoadInt32(&calls))
	for _, result := range results {
		assert.Equal(t, execution.StepStatusCancelled, result.Status)
	}
}

func TestService_Dispatch_Empty(t *testing.T) {
	svc, err := New(WithRunner(RunnerFunc(func(ctx context.Context, e *execution.Execution, step *graph.Step) *execution.StepResult {
		return nil
	})))
	require.NoError(t, err)
	assert.Empty(t, collect(svc.Dispatch(context.Background(), execution.NewExecution("wf", nil, nil), nil, 2)))
	_, err = New()
	assert.Error(t, err)
}
