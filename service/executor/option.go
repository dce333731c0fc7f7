package executor

import (
	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/service/invoker"
	"github.com/viant/flowmind/service/notify"
	"github.com/viant/flowmind/service/parser"
	"github.com/viant/flowmind/service/storage"
	"github.com/viant/flowmind/service/suspension"
	"github.com/viant/flowmind/service/validation"
)

// Option is used to customise the executor instance.
type Option func(*Service)

// WithConfig sets executor config
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithInvoker sets the agent-call capability
func WithInvoker(invoker invoker.Service) Option {
	return func(s *Service) { s.invoker = invoker }
}

// WithParser overrides the output parser
func WithParser(parser *parser.Parser) Option {
	return func(s *Service) { s.parser = parser }
}

// WithSuspension sets the suspension manager used by human-input steps
func WithSuspension(suspension suspension.Service) Option {
	return func(s *Service) { s.suspension = suspension }
}

// WithStorage sets the storage-op capability
func WithStorage(storage storage.Service) Option {
	return func(s *Service) { s.storage = storage }
}

// WithNotifier sets the notify capability, it also delivers human-input prompts
func WithNotifier(notifier notify.Service) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithSink sets the log step sink
func WithSink(sink logger.Sink) Option {
	return func(s *Service) { s.sink = sink }
}

// WithValidator sets the validate step engine
func WithValidator(validator validation.Service) Option {
	return func(s *Service) { s.validator = validator }
}

// WithListener sets a callback invoked after every executed step
func WithListener(listener Listener) Option {
	return func(s *Service) { s.listener = listener }
}
