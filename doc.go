// Package flowmind provides an embedded workflow orchestration engine.
//
// The engine executes a declared graph of steps (agent calls, human input,
// storage operations, notifications, log entries and validations) under
// sequential, parallel and conditional semantics, bounds concurrency, and
// suspends executions pending external input with timeout handling.
//
// Hosts interact with the engine via the Service façade exposed by the root package:
//
//	srv, _ := flowmind.New(flowmind.WithInvoker(inv))
//	rt := srv.Runtime()
//	_ = rt.Start(ctx)
//	definition, _ := rt.LoadDefinition(ctx, "onboarding.yaml")
//	result, _ := rt.Run(ctx, definition, map[string]interface{}{"topic": "go"})
//
// Pending human-input requests are answered with Runtime.Resolve or through
// an external channel such as the telegram notifier.
package flowmind
