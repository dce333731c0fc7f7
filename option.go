package flowmind

import (
	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/service/executor"
	"github.com/viant/flowmind/service/invoker"
	"github.com/viant/flowmind/service/meta"
	"github.com/viant/flowmind/service/notify"
	"github.com/viant/flowmind/service/parser"
	"github.com/viant/flowmind/service/storage"
	"github.com/viant/flowmind/service/suspension"
	"github.com/viant/flowmind/service/validation"
	"github.com/viant/flowmind/tracing"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// Option customises Service
type Option func(s *Service)

// WithConfig sets engine configuration
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithInvoker sets the agent-call invoker
func WithInvoker(invoker invoker.Service) Option {
	return func(s *Service) { s.invoker = invoker }
}

// WithStorage replaces the default in-memory storage
func WithStorage(storage storage.Service) Option {
	return func(s *Service) { s.storage = storage }
}

// WithNotifier sets notification adapter used by notify steps and human-input prompts
func WithNotifier(notifier notify.Service) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithSink sets log step sink
func WithSink(sink logger.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithValidator replaces the default rule engine
func WithValidator(validator validation.Service) Option {
	return func(s *Service) { s.validator = validator }
}

// WithParser sets output parser
func WithParser(parser *parser.Parser) Option {
	return func(s *Service) { s.parser = parser }
}

// WithSuspension replaces the default in-memory suspension manager
func WithSuspension(service suspension.Service) Option {
	return func(s *Service) { s.suspension = service }
}

// WithMetaService sets the meta service used to load definitions
func WithMetaService(service *meta.Service) Option {
	return func(s *Service) { s.metaService = service }
}

// WithLogger sets engine logger
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithExecutorOptions lets the caller supply additional options passed to executor.New
func WithExecutorOptions(opts ...executor.Option) Option {
	return func(s *Service) {
		s.executorOptions = append(s.executorOptions, opts...)
	}
}

// WithTracingExporter configures OpenTelemetry tracing using a custom SpanExporter.
// The first successful initialisation wins.
func WithTracingExporter(serviceName, serviceVersion string, exporter sdktrace.SpanExporter) Option {
	return func(s *Service) {
		_ = tracing.InitWithExporter(serviceName, serviceVersion, exporter)
	}
}
