package flowmind

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/model"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/runtime/execution"
	"github.com/viant/flowmind/runtime/orchestrator"
	"github.com/viant/flowmind/service/dao/workflow"
	"github.com/viant/flowmind/service/suspension"
	"github.com/viant/flowmind/tracing"
)

// Runtime represents a workflow engine runtime
type Runtime struct {
	definitions   *workflow.Service
	orchestrator  *orchestrator.Service
	suspension    suspension.Service
	logger        logger.Logger
	sweepInterval time.Duration

	mux     sync.Mutex
	stop    func()
	watcher *workflow.Watcher
}

func (r *Runtime) withLogger(ctx context.Context) context.Context {
	return logger.WithLogger(ctx, r.logger)
}

// Start starts the background expiry sweeper
func (r *Runtime) Start(ctx context.Context) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	if r.stop != nil || r.sweepInterval <= 0 {
		return nil
	}
	r.stop = suspension.AutoExpire(r.withLogger(ctx), r.suspension, r.sweepInterval)
	return nil
}

// Shutdown stops the sweeper and definition watcher, and flushes traces
func (r *Runtime) Shutdown(ctx context.Context) error {
	r.mux.Lock()
	if r.stop != nil {
		r.stop()
		r.stop = nil
	}
	watcher := r.watcher
	r.watcher = nil
	r.mux.Unlock()
	if watcher != nil {
		_ = watcher.Close()
	}
	return tracing.Shutdown(ctx)
}

// LoadDefinition loads and caches a workflow definition
func (r *Runtime) LoadDefinition(ctx context.Context, location string) (*model.Definition, error) {
	return r.definitions.Load(ctx, location)
}

// DecodeDefinition decodes a YAML or JSON definition without caching it
func (r *Runtime) DecodeDefinition(data []byte) (*model.Definition, error) {
	return r.definitions.DecodeYAML(data)
}

// UpsertDefinition parses data and stores the definition under location. When
// data is nil the definition is reloaded from location. Running executions keep
// the definition they started with.
func (r *Runtime) UpsertDefinition(ctx context.Context, location string, data []byte) (*model.Definition, error) {
	if data == nil {
		return r.definitions.Refresh(ctx, location)
	}
	definition, err := r.definitions.DecodeYAML(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode definition: %w", err)
	}
	definition.Source = &model.Source{URL: location}
	r.definitions.Upsert(definition)
	return definition, nil
}

// Definition returns cached definition by id
func (r *Runtime) Definition(id string) (*model.Definition, bool) {
	return r.definitions.Lookup(id)
}

// WatchDefinitions refreshes cached definitions when files in a local directory change
func (r *Runtime) WatchDefinitions(ctx context.Context, dir string) error {
	watcher, err := r.definitions.Watch(r.withLogger(ctx), dir)
	if err != nil {
		return err
	}
	r.mux.Lock()
	previous := r.watcher
	r.watcher = watcher
	r.mux.Unlock()
	if previous != nil {
		_ = previous.Close()
	}
	return nil
}

// Run executes definition and blocks until it is finalized
func (r *Runtime) Run(ctx context.Context, definition *model.Definition, inputs map[string]interface{}) (*execution.ExecutionResult, error) {
	return r.orchestrator.Run(r.withLogger(ctx), definition, inputs)
}

// RunDefinition executes a cached definition by id
func (r *Runtime) RunDefinition(ctx context.Context, id string, inputs map[string]interface{}) (*execution.ExecutionResult, error) {
	definition, ok := r.definitions.Lookup(id)
	if !ok {
		return nil, types.NewError(types.KindNotFound, "", "definition %s not found", id)
	}
	return r.Run(ctx, definition, inputs)
}

// StartExecution starts definition in the background and returns its handle
func (r *Runtime) StartExecution(ctx context.Context, definition *model.Definition, inputs map[string]interface{}) (*orchestrator.Run, error) {
	return r.orchestrator.Start(r.withLogger(ctx), definition, inputs)
}

// Execution returns a running execution handle
func (r *Runtime) Execution(executionID string) (*orchestrator.Run, bool) {
	return r.orchestrator.Lookup(executionID)
}

// Cancel cancels a running execution
func (r *Runtime) Cancel(executionID string) error {
	return r.orchestrator.Cancel(executionID)
}

// Resolve answers a pending human-input request
func (r *Runtime) Resolve(ctx context.Context, requestID string, value interface{}) error {
	return r.suspension.Resolve(r.withLogger(ctx), requestID, value)
}

// ListPending returns open requests matching filters
func (r *Runtime) ListPending(ctx context.Context, filters ...suspension.PendingFilter) ([]*suspension.Request, error) {
	return r.suspension.ListPending(ctx, filters...)
}
