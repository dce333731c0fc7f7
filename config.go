package flowmind

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/viant/afs"
	"github.com/viant/flowmind/service/meta"
	"gopkg.in/yaml.v3"
)

// Config is a serialisable representation of the engine configuration. It can
// be loaded from YAML or JSON; zero fields inherit DefaultConfig values.
type Config struct {
	Scheduler  SchedulerConfig  `json:"scheduler" yaml:"scheduler"`
	Suspension SuspensionConfig `json:"suspension" yaml:"suspension"`
	Retry      RetryConfig      `json:"retry" yaml:"retry"`
	Logging    LoggingConfig    `json:"logging" yaml:"logging"`
	Tracing    TracingConfig    `json:"tracing" yaml:"tracing"`
	// DefinitionURL is a base location of workflow definition files
	DefinitionURL string `json:"definitionURL,omitempty" yaml:"definitionURL,omitempty"`
}

type SchedulerConfig struct {
	Workers int `json:"workers" yaml:"workers"`
}

type SuspensionConfig struct {
	// SweepInterval controls the background expiry sweeper, zero disables it
	SweepInterval  time.Duration `json:"sweepInterval" yaml:"sweepInterval"`
	DefaultTimeout time.Duration `json:"defaultTimeout" yaml:"defaultTimeout"`
	// PromptChannel receives human-input prompts of steps that do not name a channel
	PromptChannel string `json:"promptChannel,omitempty" yaml:"promptChannel,omitempty"`
}

type RetryConfig struct {
	MaxAttempts int           `json:"maxAttempts" yaml:"maxAttempts"`
	Delay       time.Duration `json:"delay" yaml:"delay"`
	Multiplier  float64       `json:"multiplier" yaml:"multiplier"`
	MaxDelay    time.Duration `json:"maxDelay" yaml:"maxDelay"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"`
}

type TracingConfig struct {
	// ServiceName enables tracing when set
	ServiceName    string `json:"serviceName,omitempty" yaml:"serviceName,omitempty"`
	ServiceVersion string `json:"serviceVersion,omitempty" yaml:"serviceVersion,omitempty"`
	// OutputFile receives stdout exporter spans, empty writes to stdout
	OutputFile string `json:"outputFile,omitempty" yaml:"outputFile,omitempty"`
}

// DefaultConfig returns a Config populated with package defaults
func DefaultConfig() *Config {
	return &Config{
		Scheduler: SchedulerConfig{Workers: 4},
		Suspension: SuspensionConfig{
			SweepInterval:  time.Second,
			DefaultTimeout: time.Hour,
		},
		Retry: RetryConfig{
			MaxAttempts: 1,
			Delay:       time.Second,
			Multiplier:  2,
			MaxDelay:    time.Minute,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Validate returns aggregated error describing invalid settings or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.Scheduler.Workers <= 0 {
		errs = append(errs, fmt.Errorf("scheduler.workers must be > 0"))
	}
	if c.Suspension.SweepInterval < 0 {
		errs = append(errs, fmt.Errorf("suspension.sweepInterval must be >= 0"))
	}
	if c.Suspension.DefaultTimeout <= 0 {
		errs = append(errs, fmt.Errorf("suspension.defaultTimeout must be > 0"))
	}
	if c.Retry.MaxAttempts < 1 {
		errs = append(errs, fmt.Errorf("retry.maxAttempts must be >= 1"))
	}
	if c.Retry.Delay < 0 || c.Retry.MaxDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delays must be >= 0"))
	}
	if c.Retry.Multiplier != 0 && c.Retry.Multiplier < 1 {
		errs = append(errs, fmt.Errorf("retry.multiplier must be >= 1"))
	}
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, fmt.Errorf("logging.level %q is not supported", c.Logging.Level))
	}
	return errors.Join(errs...)
}

// LoadConfig loads configuration from YAML or JSON location on top of DefaultConfig
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	var node yaml.Node
	if err := meta.New(afs.New(), "").Load(ctx, URL, &node); err != nil {
		return nil, err
	}
	ret := DefaultConfig()
	if err := node.Decode(ret); err != nil {
		return nil, fmt.Errorf("failed to decode config %s: %w", URL, err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}
