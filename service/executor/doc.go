// Package executor runs a single workflow step. It routes the step by kind to
// the configured capability (invoker, storage, notification, log sink,
// validation or the suspension manager), expands templated configuration with
// upstream values and converts the outcome into an execution.StepResult. It is
// the glue layer between the scheduler and the capability adapters.
package executor
