// Package progress tracks step counters of a running execution. The tracker
// lives in the context passed to the orchestrator, so hosts can observe a run
// without polling the execution.
package progress
