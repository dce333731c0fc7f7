package graph

// Mode defines how the target step relates to its predecessor
type Mode string

const (
	// ModeSequential target starts only after source completes
	ModeSequential Mode = "sequential"
	// ModeParallel target has no ordering dependency on siblings sharing the same source
	ModeParallel Mode = "parallel"
	// ModeConditional target runs only when Condition over source output is true
	ModeConditional Mode = "conditional"
)

// Edge connects two steps
type Edge struct {
	From      string `json:"from" yaml:"from"`
	To        string `json:"to" yaml:"to"`
	Mode      Mode   `json:"mode,omitempty" yaml:"mode,omitempty"`
	Condition string `json:"condition,omitempty" yaml:"condition,omitempty"`
	// TolerateFailure evaluates a conditional edge even when the source failed
	TolerateFailure bool `json:"tolerateFailure,omitempty" yaml:"tolerateFailure,omitempty"`
}

// IsConditional returns true for conditional edges
func (e *Edge) IsConditional() bool {
	return e.Mode == ModeConditional
}

// EffectiveMode returns edge mode, sequential when unset
func (e *Edge) EffectiveMode() Mode {
	if e.Mode == "" {
		return ModeSequential
	}
	return e.Mode
}
