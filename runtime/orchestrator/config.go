package orchestrator

import "time"

// Config represents orchestrator configuration
type Config struct {
	// Workers caps parallelism of a dispatch batch, zero uses the scheduler default
	Workers int         `json:"workers,omitempty" yaml:"workers,omitempty"`
	Retry   RetryConfig `json:"retry,omitempty" yaml:"retry,omitempty"`
}

// RetryConfig is used by steps without their own retry strategy, and for unset strategy fields
type RetryConfig struct {
	// MaxAttempts is the total number of attempts, 1 disables retries
	MaxAttempts int           `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"`
	Delay       time.Duration `json:"delay,omitempty" yaml:"delay,omitempty"`
	Multiplier  float64       `json:"multiplier,omitempty" yaml:"multiplier,omitempty"`
	MaxDelay    time.Duration `json:"maxDelay,omitempty" yaml:"maxDelay,omitempty"`
}

// DefaultConfig returns default orchestrator configuration
func DefaultConfig() *Config {
	return &Config{
		Retry: RetryConfig{
			MaxAttempts: 1,
			Delay:       time.Second,
			Multiplier:  2,
			MaxDelay:    time.Minute,
		},
	}
}
