// Package orchestrator drives workflow executions. For every run it evaluates
// step readiness over the definition graph, dispatches ready steps in batches
// through the scheduler, suspends human-input steps with the suspension
// manager, applies step retry policies and aggregates the final result.
//
// Each run is owned by a single control goroutine. Suspension outcomes are
// applied to the execution by a listener registered on the suspension manager,
// which wakes the run loop instead of polling.
package orchestrator
