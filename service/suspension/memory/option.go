package memory

import (
	"time"

	"github.com/viant/flowmind/service/dao"
	"github.com/viant/flowmind/service/messaging"
	"github.com/viant/flowmind/service/suspension"
)

const (
	DefaultTimeout     = 24 * time.Hour
	DefaultEventBuffer = 1024
)

// Config represents suspension service config
type Config struct {
	// DefaultTimeout applies when Register is called with timeout <= 0
	DefaultTimeout time.Duration `json:"defaultTimeout,omitempty" yaml:"defaultTimeout,omitempty"`
	EventBuffer    int           `json:"eventBuffer,omitempty" yaml:"eventBuffer,omitempty"`
}

// DefaultConfig returns default config
func DefaultConfig() *Config {
	return &Config{DefaultTimeout: DefaultTimeout, EventBuffer: DefaultEventBuffer}
}

type Option func(*service)

// WithConfig sets config
func WithConfig(config *Config) Option {
	return func(s *service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithDAO replaces the request store, the store must not retain caller pointers beyond Save
func WithDAO(requests dao.Service[string, suspension.Request]) Option {
	return func(s *service) { s.requests = requests }
}

// WithQueue replaces lifecycle event queue
func WithQueue(queue messaging.Queue[suspension.Event]) Option {
	return func(s *service) { s.events = queue }
}

// WithListener subscribes listener
func WithListener(listener suspension.Listener) Option {
	return func(s *service) { s.listeners = append(s.listeners, listener) }
}
