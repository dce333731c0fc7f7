package executor

import (
	"time"

	"github.com/viant/flowmind/service/validation"
)

// Config represents executor configuration
type Config struct {
	// InputTimeout is used by human-input steps that do not declare one, zero defers to the suspension manager
	InputTimeout time.Duration `json:"inputTimeout,omitempty" yaml:"inputTimeout,omitempty"`
	// PromptChannel receives human-input prompts when a step does not name a channel
	PromptChannel string `json:"promptChannel,omitempty" yaml:"promptChannel,omitempty"`
}

// DefaultConfig returns default executor configuration
func DefaultConfig() *Config {
	return &Config{}
}

// Step kind configurations decoded from graph.Step.Config
type (
	humanInputConfig struct {
		Prompt   string      `json:"prompt,omitempty"`
		Channel  string      `json:"channel,omitempty"`
		Kind     string      `json:"kind,omitempty"`
		Choices  []string    `json:"choices,omitempty"`
		// Timeout is a duration string or a number of seconds
		Timeout  interface{} `json:"timeout,omitempty"`
		Fallback interface{} `json:"fallback,omitempty"`
	}

	storageConfig struct {
		Operation string      `json:"operation,omitempty"`
		Namespace string      `json:"namespace,omitempty"`
		Key       string      `json:"key,omitempty"`
		Value     interface{} `json:"value,omitempty"`
		TTL       string      `json:"ttl,omitempty"`
	}

	notifyConfig struct {
		Channel  string `json:"channel,omitempty"`
		Severity string `json:"severity,omitempty"`
		Message  string `json:"message,omitempty"`
		Required bool   `json:"required,omitempty"`
	}

	logConfig struct {
		Level   string   `json:"level,omitempty"`
		Message string   `json:"message,omitempty"`
		Tags    []string `json:"tags,omitempty"`
	}

	validateConfig struct {
		Schema validation.Schema      `json:"schema,omitempty"`
		Value  map[string]interface{} `json:"value,omitempty"`
		// Source names the step whose extracted values are validated when Value is empty
		Source string `json:"source,omitempty"`
	}
)

// Storage operations
const (
	OpPut    = "put"
	OpGet    = "get"
	OpUpdate = "update"
	OpDelete = "delete"
	OpList   = "list"
)
