package orchestrator

import (
	"context"
	"fmt"
	"time"

	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/runtime/evaluator"
	"github.com/viant/flowmind/runtime/execution"
)

type readiness int

const (
	awaitingDependency readiness = iota
	blockedByFailure
	skippedStep
	readyStep
)

// schedule resolves skips to a fixpoint and returns dispatchable steps in definition order,
// with the earliest retry time of a ready step held back by its retry delay.
func (s *Service) schedule(ctx context.Context, run *Run, now time.Time) (ready []*graph.Step, next time.Time) {
	run.execution.Mutate(func(tx *execution.Tx) {
		if tx.Cancelled() {
			return
		}
		for changed := true; changed; {
			changed = false
			ready = ready[:0]
			next = time.Time{}
			var variables map[string]interface{}
			for _, step := range run.definition.Steps {
				if tx.Status(step.ID) != execution.StepStatusPending {
					continue
				}
				state, detail := s.evaluate(ctx, run, tx, step, &variables)
				switch state {
				case blockedByFailure:
					tx.Skip(step.ID, detail)
					run.blocked[step.ID] = true
					changed = true
				case skippedStep:
					tx.Skip(step.ID, "")
					logger.Ctx(ctx).Debug("step skipped", "execution", run.ID(), "step", step.ID, "reason", detail)
					changed = true
				case readyStep:
					if at, ok := tx.RunAfter(step.ID); ok && at.After(now) {
						if next.IsZero() || at.Before(next) {
							next = at
						}
						continue
					}
					ready = append(ready, step)
				}
			}
		}
	})
	return ready, next
}

func (s *Service) evaluate(ctx context.Context, run *Run, tx *execution.Tx, step *graph.Step, variables *map[string]interface{}) (readiness, string) {
	incoming := run.definition.Incoming(step.ID)
	for _, edge := range incoming {
		if !tx.Status(edge.From).IsTerminal() {
			return awaitingDependency, ""
		}
	}
	for _, edge := range incoming {
		if !s.failed(run, tx, edge.From) {
			continue
		}
		if edge.IsConditional() && edge.TolerateFailure {
			continue
		}
		return blockedByFailure, fmt.Sprintf("blocked by failed dependency %s", edge.From)
	}
	skipped := 0
	for _, edge := range incoming {
		source := tx.Result(edge.From)
		if source.Status == execution.StepStatusSkipped && !run.blocked[edge.From] {
			skipped++
			continue
		}
		if !edge.IsConditional() {
			continue
		}
		ok, err := evaluator.EvaluateBool(edge.Condition, source.Variables(), false)
		if err != nil {
			logger.Ctx(ctx).Warn("edge condition failed", "execution", run.ID(), "from", edge.From, "to", edge.To, "error", err)
		}
		if !ok {
			return skippedStep, fmt.Sprintf("condition on edge from %s is false", edge.From)
		}
	}
	if len(incoming) > 0 && skipped == len(incoming) {
		return skippedStep, "all predecessors skipped"
	}
	if step.When != "" {
		if *variables == nil {
			*variables = tx.Variables()
		}
		ok, err := evaluator.EvaluateBool(step.When, *variables, true)
		if err != nil {
			logger.Ctx(ctx).Warn("step condition failed", "execution", run.ID(), "step", step.ID, "error", err)
			ok = false
		}
		if !ok {
			return skippedStep, "when condition is false"
		}
	}
	return readyStep, ""
}

func (s *Service) failed(run *Run, tx *execution.Tx, stepID string) bool {
	switch tx.Status(stepID) {
	case execution.StepStatusFailed, execution.StepStatusCancelled:
		return true
	}
	return run.blocked[stepID]
}
