package progress

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/runtime/execution"
)

func TestCount(t *testing.T) {
	exec := execution.NewExecution("flow", []*graph.Step{
		graph.NewStep("a", graph.KindLog),
		graph.NewStep("b", graph.KindLog),
		graph.NewStep("c", graph.KindHumanInput),
		graph.NewStep("d", graph.KindLog),
	}, nil)
	assert.True(t, exec.Begin("a"))
	done := &execution.StepResult{StepID: "a", Status: execution.StepStatusSucceeded}
	assert.True(t, exec.Record(done))
	assert.True(t, exec.Begin("b"))
	assert.True(t, exec.Begin("c"))
	assert.True(t, exec.Await("c", "r1"))

	actual := Count(exec)
	assert.Equal(t, Progress{
		ExecutionID:  exec.ID,
		DefinitionID: "flow",
		StartedAt:    exec.StartedAt,
		Total:        4,
		Pending:      1,
		Running:      1,
		Waiting:      1,
		Succeeded:    1,
	}, actual)
	assert.Equal(t, 1, actual.Completed())
}

func TestTracker(t *testing.T) {
	testCases := []struct {
		name          string
		observe       []Progress
		expectUpdates int
		expect        Progress
	}{
		{name: "none", expect: Progress{}},
		{name: "distinct", observe: []Progress{{Total: 2, Pending: 2}, {Total: 2, Pending: 1, Succeeded: 1}}, expectUpdates: 2, expect: Progress{Total: 2, Pending: 1, Succeeded: 1}},
		{name: "unchanged is not reported", observe: []Progress{{Total: 1, Running: 1}, {Total: 1, Running: 1}}, expectUpdates: 1, expect: Progress{Total: 1, Running: 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			updates := 0
			ctx, tracker := WithNewTracker(context.Background(), func(p Progress) { updates++ })
			actual, ok := FromContext(ctx)
			assert.True(t, ok)
			assert.Same(t, tracker, actual)
			for _, p := range tc.observe {
				tracker.Observe(p)
			}
			assert.Equal(t, tc.expectUpdates, updates)
			assert.Equal(t, tc.expect, tracker.Snapshot())
		})
	}

	_, ok := FromContext(context.Background())
	assert.False(t, ok)
	var nilTracker *Tracker
	nilTracker.Observe(Progress{Total: 1})
	assert.Equal(t, Progress{}, nilTracker.Snapshot())
}
