// Package model contains the in-memory representation of workflow
// definitions used by the flowmind engine.
//
// A definition is typically loaded from a YAML or JSON document into the
// structures defined here and in the `graph` sub-package. Definitions are
// immutable once handed to the orchestrator and can be shared by any number of
// concurrent executions.
package model
