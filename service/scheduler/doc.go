// Package scheduler runs a batch of ready steps on a bounded pool of workers.
// Steps are queued in the order they were found ready, each worker claims a
// step on the execution, runs it and records the outcome before delivering
// it on the batch channel.
package scheduler
