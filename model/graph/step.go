package graph

// Kind identifies the capability a step uses
type Kind string

const (
	KindAgentCall  Kind = "agent-call"
	KindHumanInput Kind = "human-input"
	KindStorageOp  Kind = "storage-op"
	KindNotify     Kind = "notify"
	KindLog        Kind = "log"
	KindValidate   Kind = "validate"
)

// IsValid returns true for known kinds
func (k Kind) IsValid() bool {
	switch k {
	case KindAgentCall, KindHumanInput, KindStorageOp, KindNotify, KindLog, KindValidate:
		return true
	}
	return false
}

type (
	// Step represents a single task unit of a workflow graph
	Step struct {
		ID          string                 `json:"id" yaml:"id"`
		Kind        Kind                   `json:"kind" yaml:"kind"`
		Description string                 `json:"description,omitempty" yaml:"description,omitempty"`
		Config      map[string]interface{} `json:"config,omitempty" yaml:"config,omitempty"`
		// When is evaluated against upstream extracted values; false skips the step
		When string `json:"when,omitempty" yaml:"when,omitempty"`
		// Timeout is a per-call deadline, a duration string or a bare number of seconds
		Timeout string `json:"timeout,omitempty" yaml:"timeout,omitempty"`
		Retry   *Retry `json:"retry,omitempty" yaml:"retry,omitempty"`
		Loop    *Loop  `json:"loop,omitempty" yaml:"loop,omitempty"`
	}

	// Loop repeats a succeeded step until Until holds or MaxIterations is reached
	Loop struct {
		Until         string `json:"until" yaml:"until"`
		MaxIterations int    `json:"maxIterations,omitempty" yaml:"maxIterations,omitempty"`
	}

	// Retry strategy for step
	Retry struct {
		Type        string  `json:"type,omitempty" yaml:"type,omitempty"` // fixed, exponential, none
		MaxAttempts int     `json:"maxAttempts,omitempty" yaml:"maxAttempts,omitempty"`
		Delay       string  `json:"delay,omitempty" yaml:"delay,omitempty"`           // base delay (duration string)
		Multiplier  float64 `json:"multiplier,omitempty" yaml:"multiplier,omitempty"` // exponential multiplier (>1)
		MaxDelay    string  `json:"maxDelay,omitempty" yaml:"maxDelay,omitempty"`
	}
)

// NewStep creates a step
func NewStep(id string, kind Kind) *Step {
	return &Step{ID: id, Kind: kind, Config: map[string]interface{}{}}
}

// WithConfig sets a configuration entry
func (s *Step) WithConfig(key string, value interface{}) *Step {
	if s.Config == nil {
		s.Config = map[string]interface{}{}
	}
	s.Config[key] = value
	return s
}

// WithWhen sets the step condition
func (s *Step) WithWhen(expr string) *Step {
	s.When = expr
	return s
}

// WithRetry sets the step retry strategy
func (s *Step) WithRetry(retry *Retry) *Step {
	s.Retry = retry
	return s
}

// WithLoop repeats the step until the until expression holds
func (s *Step) WithLoop(until string, maxIterations int) *Step {
	s.Loop = &Loop{Until: until, MaxIterations: maxIterations}
	return s
}

// WithTimeout sets per-call deadline
func (s *Step) WithTimeout(timeout string) *Step {
	s.Timeout = timeout
	return s
}

// Clone creates a copy of the step, config values are copied shallowly
func (s *Step) Clone() *Step {
	if s == nil {
		return nil
	}
	clone := *s
	if s.Config != nil {
		clone.Config = make(map[string]interface{}, len(s.Config))
		for k, v := range s.Config {
			clone.Config[k] = v
		}
	}
	if s.Retry != nil {
		retry := *s.Retry
		clone.Retry = &retry
	}
	if s.Loop != nil {
		loop := *s.Loop
		clone.Loop = &loop
	}
	return &clone
}

// DefaultMaxIterations caps loops that do not declare a limit
const DefaultMaxIterations = 100

// Limit returns the effective iteration cap
func (l *Loop) Limit() int {
	if l == nil {
		return 1
	}
	if l.MaxIterations <= 0 {
		return DefaultMaxIterations
	}
	return l.MaxIterations
}
