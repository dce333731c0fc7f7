package orchestrator

import (
	"context"
	"fmt"

	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/runtime/evaluator"
	"github.com/viant/flowmind/runtime/execution"
	"github.com/viant/flowmind/tracing"
)

// iterate records a finished loop iteration and resets the step to pending while
// the until condition is false and the iteration cap is not reached.
// Until sees execution variables overlaid with the step's own values.
func (s *Service) iterate(ctx context.Context, run *Run, step *graph.Step) {
	var (
		iterations int
		repeat     bool
		done       bool
		err        error
	)
	run.execution.Mutate(func(tx *execution.Tx) {
		r := tx.Result(step.ID)
		if r == nil || r.Status != execution.StepStatusSucceeded {
			return
		}
		r.Iterations++
		r.History = append(r.History, r.Text())
		iterations = r.Iterations
		extracted := make(map[string]interface{}, len(r.Extracted)+3)
		for k, v := range r.Extracted {
			extracted[k] = v
		}
		history := make([]interface{}, len(r.History))
		for i, text := range r.History {
			history[i] = text
		}
		extracted["iterations"] = iterations
		extracted["last_result"] = r.Text()
		extracted["history"] = history
		r.Extracted = extracted

		variables := tx.Variables()
		for k, v := range r.Variables() {
			variables[k] = v
		}
		if done, err = evaluator.EvaluateBool(step.Loop.Until, variables, false); err != nil {
			tx.Fail(step.ID, types.NewError(types.KindInvalidDefinition, step.ID, "loop condition failed at iteration %d: %v", iterations, err))
			return
		}
		if !done && iterations < step.Loop.Limit() {
			repeat = tx.Repeat(step.ID)
		}
	})
	if iterations == 0 {
		return
	}
	log := logger.Ctx(ctx)
	switch {
	case err != nil:
		log.Warn("loop condition failed", "step", step.ID, "iteration", iterations, "error", err)
	case repeat:
		log.Debug("step repeats", "step", step.ID, "iteration", iterations+1)
		tracing.SpanFromContext(ctx).AddEvent("step.iteration", map[string]string{
			"step.id":   step.ID,
			"iteration": fmt.Sprint(iterations + 1),
		})
	default:
		log.Info("loop finished", "step", step.ID, "iterations", iterations, "until", done)
	}
}

// iterateResolved applies loop handling to a step completed by an input resolution
func (s *Service) iterateResolved(ctx context.Context, run *Run, stepID string) {
	step := run.definition.Step(stepID)
	if step == nil || step.Loop == nil {
		return
	}
	s.iterate(ctx, run, step)
}
