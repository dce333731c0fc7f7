// Package suspension tracks pending external input requests raised by
// human-input steps. Each request moves once from open to either resolved
// (an answer arrived before its deadline) or expired (deadline elapsed or the
// owning execution was cancelled). Listeners observe every terminal
// transition and lifecycle events are fanned out on a messaging queue.
package suspension
