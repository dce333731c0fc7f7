package workflow

import "github.com/viant/flowmind/service/meta"

type Option func(*Service)

// WithMetaService sets the meta service
func WithMetaService(meta *meta.Service) Option {
	return func(s *Service) {
		s.metaService = meta
	}
}

// WithListener registers a callback invoked after a definition was added or replaced
func WithListener(listener Listener) Option {
	return func(s *Service) {
		s.listeners = append(s.listeners, listener)
	}
}
