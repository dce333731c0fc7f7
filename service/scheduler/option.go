package scheduler

type Option func(*Service)

// WithConfig sets the configuration for the service
func WithConfig(config Config) Option {
	return func(s *Service) {
		s.config = config
	}
}

// WithWorkers sets default number of workers per batch
func WithWorkers(count int) Option {
	return func(s *Service) {
		s.config.Workers = count
	}
}

// WithRunner sets step runner
func WithRunner(runner Runner) Option {
	return func(s *Service) {
		s.runner = runner
	}
}
