package orchestrator

// Option customises orchestrator
type Option func(s *Service)

// WithConfig sets orchestrator config
func WithConfig(config *Config) Option {
	return func(s *Service) {
		if config != nil {
			s.config = config
		}
	}
}

// WithWorkers sets batch parallelism
func WithWorkers(workers int) Option {
	return func(s *Service) { s.config.Workers = workers }
}
