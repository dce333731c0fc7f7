package flowmind

import (
	"fmt"
	"os"

	"github.com/viant/afs"
	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/runtime/orchestrator"
	"github.com/viant/flowmind/service/dao/workflow"
	"github.com/viant/flowmind/service/executor"
	"github.com/viant/flowmind/service/invoker"
	"github.com/viant/flowmind/service/meta"
	"github.com/viant/flowmind/service/notify"
	"github.com/viant/flowmind/service/parser"
	"github.com/viant/flowmind/service/scheduler"
	"github.com/viant/flowmind/service/storage"
	smemory "github.com/viant/flowmind/service/storage/memory"
	"github.com/viant/flowmind/service/suspension"
	rmemory "github.com/viant/flowmind/service/suspension/memory"
	"github.com/viant/flowmind/service/validation"
	"github.com/viant/flowmind/tracing"
)

// Service wires engine collaborators and exposes the Runtime
type Service struct {
	config          *Config
	runtime         *Runtime
	metaService     *meta.Service
	logger          logger.Logger
	invoker         invoker.Service
	storage         storage.Service
	notifier        notify.Service
	sink            logger.Sink
	validator       validation.Service
	parser          *parser.Parser
	suspension      suspension.Service
	executor        *executor.Service
	executorOptions []executor.Option
}

// Runtime returns the engine runtime
func (s *Service) Runtime() *Runtime {
	return s.runtime
}

// Config returns effective configuration
func (s *Service) Config() *Config {
	return s.config
}

// Suspension returns the suspension manager, an external resolution channel can resolve requests through it
func (s *Service) Suspension() suspension.Service {
	return s.suspension
}

func (s *Service) init() error {
	if err := s.config.Validate(); err != nil {
		return err
	}
	if s.logger == nil {
		s.logger = logger.NewWithWriter(os.Stderr, logger.LevelFromString(s.config.Logging.Level))
	}
	if tc := s.config.Tracing; tc.ServiceName != "" {
		if err := tracing.Init(tc.ServiceName, tc.ServiceVersion, tc.OutputFile); err != nil {
			return fmt.Errorf("failed to init tracing: %w", err)
		}
	}
	if s.metaService == nil {
		s.metaService = meta.New(afs.New(), s.config.DefinitionURL)
	}
	if s.suspension == nil {
		s.suspension = rmemory.New(rmemory.WithConfig(&rmemory.Config{
			DefaultTimeout: s.config.Suspension.DefaultTimeout,
			EventBuffer:    rmemory.DefaultEventBuffer,
		}))
	}
	if s.storage == nil {
		s.storage = smemory.New()
	}
	if s.sink == nil {
		s.sink = logger.NewSink(s.logger)
	}
	if s.validator == nil {
		s.validator = validation.New()
	}
	if s.parser == nil {
		s.parser = parser.New()
	}
	options := []executor.Option{
		executor.WithConfig(&executor.Config{PromptChannel: s.config.Suspension.PromptChannel}),
		executor.WithSuspension(s.suspension),
		executor.WithStorage(s.storage),
		executor.WithSink(s.sink),
		executor.WithValidator(s.validator),
		executor.WithParser(s.parser),
	}
	if s.invoker != nil {
		options = append(options, executor.WithInvoker(s.invoker))
	}
	if s.notifier != nil {
		options = append(options, executor.WithNotifier(s.notifier))
	}
	s.executor = executor.New(append(options, s.executorOptions...)...)

	sched, err := scheduler.New(scheduler.WithRunner(s.executor), scheduler.WithWorkers(s.config.Scheduler.Workers))
	if err != nil {
		return err
	}
	retry := s.config.Retry
	orchestratorService, err := orchestrator.New(sched, s.suspension, orchestrator.WithConfig(&orchestrator.Config{
		Workers: s.config.Scheduler.Workers,
		Retry: orchestrator.RetryConfig{
			MaxAttempts: retry.MaxAttempts,
			Delay:       retry.Delay,
			Multiplier:  retry.Multiplier,
			MaxDelay:    retry.MaxDelay,
		},
	}))
	if err != nil {
		return err
	}
	s.runtime = &Runtime{
		definitions:   workflow.New(workflow.WithMetaService(s.metaService)),
		orchestrator:  orchestratorService,
		suspension:    s.suspension,
		logger:        s.logger,
		sweepInterval: s.config.Suspension.SweepInterval,
	}
	return nil
}

// New creates an engine service
func New(options ...Option) (*Service, error) {
	ret := &Service{config: DefaultConfig()}
	for _, option := range options {
		option(ret)
	}
	if err := ret.init(); err != nil {
		return nil, err
	}
	return ret, nil
}
