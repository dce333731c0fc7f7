package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/runtime/evaluator"
)

// Definition represents a workflow definition
type Definition struct {
	// Source provides information about the origin of the definition
	Source *Source `json:"source,omitempty" yaml:"source,omitempty"`
	// ID is the unique identifier for the definition
	ID string `json:"id" yaml:"id"`

	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Description provides a human-readable description of the workflow
	Description string `json:"description,omitempty" yaml:"description,omitempty"`

	// Version specifies the definition version
	Version string `json:"version,omitempty" yaml:"version,omitempty"`

	// Entry lists designated entry steps, when empty every step without incoming edges is an entry
	Entry []string `json:"entry,omitempty" yaml:"entry,omitempty"`

	Steps []*graph.Step `json:"steps" yaml:"steps"`
	Edges []*graph.Edge `json:"edges,omitempty" yaml:"edges,omitempty"`

	mux      sync.Mutex
	index    map[string]*graph.Step
	incoming map[string][]*graph.Edge
	outgoing map[string][]*graph.Edge
}

type Source struct {
	URL string `json:"url,omitempty" yaml:"url,omitempty"`
}

// NewDefinition creates a new definition with the given id
func NewDefinition(id string) *Definition {
	return &Definition{ID: id}
}

// WithDescription sets the description of the definition
func (d *Definition) WithDescription(description string) *Definition {
	d.Description = description
	return d
}

// AddStep appends a step
func (d *Definition) AddStep(step *graph.Step) *Definition {
	d.Steps = append(d.Steps, step)
	d.resetIndex()
	return d
}

// NewStep creates a step and adds it to the definition
func (d *Definition) NewStep(id string, kind graph.Kind) *graph.Step {
	step := graph.NewStep(id, kind)
	d.AddStep(step)
	return step
}

// Connect adds an edge between two steps
func (d *Definition) Connect(from, to string, mode graph.Mode) *graph.Edge {
	edge := &graph.Edge{From: from, To: to, Mode: mode}
	d.Edges = append(d.Edges, edge)
	d.resetIndex()
	return edge
}

// ConnectIf adds a conditional edge
func (d *Definition) ConnectIf(from, to, condition string) *graph.Edge {
	edge := d.Connect(from, to, graph.ModeConditional)
	edge.Condition = condition
	return edge
}

func (d *Definition) resetIndex() {
	d.mux.Lock()
	d.index = nil
	d.mux.Unlock()
}

func (d *Definition) ensureIndex() {
	d.mux.Lock()
	defer d.mux.Unlock()
	if d.index != nil {
		return
	}
	d.index = make(map[string]*graph.Step, len(d.Steps))
	d.incoming = make(map[string][]*graph.Edge)
	d.outgoing = make(map[string][]*graph.Edge)
	for _, step := range d.Steps {
		if step != nil {
			d.index[step.ID] = step
		}
	}
	for _, edge := range d.Edges {
		if edge == nil {
			continue
		}
		d.incoming[edge.To] = append(d.incoming[edge.To], edge)
		d.outgoing[edge.From] = append(d.outgoing[edge.From], edge)
	}
}

// Step returns step by id
func (d *Definition) Step(id string) *graph.Step {
	d.ensureIndex()
	return d.index[id]
}

// Incoming returns edges ending at step
func (d *Definition) Incoming(id string) []*graph.Edge {
	d.ensureIndex()
	return d.incoming[id]
}

// Outgoing returns edges starting at step
func (d *Definition) Outgoing(id string) []*graph.Edge {
	d.ensureIndex()
	return d.outgoing[id]
}

// EntrySteps returns declared entries or every step without incoming edges
func (d *Definition) EntrySteps() []string {
	if len(d.Entry) > 0 {
		return d.Entry
	}
	d.ensureIndex()
	var result []string
	for _, step := range d.Steps {
		if step != nil && len(d.incoming[step.ID]) == 0 {
			result = append(result, step.ID)
		}
	}
	return result
}

// Init builds lookup indexes and validates the definition
func (d *Definition) Init() error {
	d.ensureIndex()
	return d.Validate()
}

// Validate performs structural validation of the definition. It returns an
// InvalidDefinition error listing every issue found or nil when the graph is
// sound. Expressions are not evaluated, only static properties are verified.
func (d *Definition) Validate() error {
	issues := d.issues()
	if len(issues) == 0 {
		return nil
	}
	messages := make([]string, 0, len(issues))
	for _, issue := range issues {
		messages = append(messages, issue.Error())
	}
	return &types.Error{Kind: types.KindInvalidDefinition, Message: fmt.Sprintf("definition %s: %s", d.ID, strings.Join(messages, "; ")),
		Err: errors.Join(issues...)}
}

func (d *Definition) issues() []error {
	var issues []error
	if len(d.Steps) == 0 {
		return append(issues, fmt.Errorf("no steps defined"))
	}

	// collect all step IDs
	seen := map[string]bool{}
	for i, step := range d.Steps {
		if step == nil {
			issues = append(issues, fmt.Errorf("step #%d is nil", i))
			continue
		}
		if step.ID == "" {
			issues = append(issues, fmt.Errorf("step #%d has empty id", i))
			continue
		}
		if seen[step.ID] {
			issues = append(issues, fmt.Errorf("duplicate step id %s", step.ID))
		}
		seen[step.ID] = true
		if !step.Kind.IsValid() {
			issues = append(issues, fmt.Errorf("step %s has unsupported kind %q", step.ID, step.Kind))
		}
		issues = append(issues, stepIssues(step)...)
	}

	// verify each edge references existing steps
	edges := map[string][]string{}
	incoming := map[string]int{}
	for i, edge := range d.Edges {
		if edge == nil {
			issues = append(issues, fmt.Errorf("edge #%d is nil", i))
			continue
		}
		if !seen[edge.From] {
			issues = append(issues, fmt.Errorf("edge %s->%s refers to unknown step %s", edge.From, edge.To, edge.From))
			continue
		}
		if !seen[edge.To] {
			issues = append(issues, fmt.Errorf("edge %s->%s refers to unknown step %s", edge.From, edge.To, edge.To))
			continue
		}
		if edge.From == edge.To {
			issues = append(issues, fmt.Errorf("step %s depends on itself", edge.From))
			continue
		}
		switch edge.EffectiveMode() {
		case graph.ModeSequential, graph.ModeParallel:
		case graph.ModeConditional:
			if strings.TrimSpace(edge.Condition) == "" {
				issues = append(issues, fmt.Errorf("conditional edge %s->%s has no condition", edge.From, edge.To))
			} else if err := evaluator.Validate(edge.Condition); err != nil {
				issues = append(issues, fmt.Errorf("edge %s->%s: %w", edge.From, edge.To, err))
			}
		default:
			issues = append(issues, fmt.Errorf("edge %s->%s has unsupported mode %q", edge.From, edge.To, edge.Mode))
		}
		edges[edge.From] = append(edges[edge.From], edge.To)
		incoming[edge.To]++
	}

	entries := d.EntrySteps()
	if len(entries) == 0 {
		issues = append(issues, fmt.Errorf("no entry steps"))
	}
	isEntry := map[string]bool{}
	for _, id := range entries {
		if !seen[id] {
			issues = append(issues, fmt.Errorf("entry refers to unknown step %s", id))
			continue
		}
		isEntry[id] = true
	}
	for _, step := range d.Steps {
		if step == nil || step.ID == "" || isEntry[step.ID] {
			continue
		}
		if incoming[step.ID] == 0 {
			issues = append(issues, fmt.Errorf("step %s has no incoming edge and is not an entry", step.ID))
		}
	}

	// DFS with colour set (white/grey/black) to detect back-edge cycles
	const (
		white = 0
		grey  = 1
		black = 2
	)
	state := map[string]int{}
	var dfs func(string) bool // returns true if cycle found
	dfs = func(n string) bool {
		switch state[n] {
		case grey:
			return true // back-edge → cycle
		case black:
			return false
		}
		state[n] = grey
		for _, next := range edges[n] {
			if dfs(next) {
				return true
			}
		}
		state[n] = black
		return false
	}
	cyclic := false
	for _, id := range entries {
		if isEntry[id] && dfs(id) {
			cyclic = true
			break
		}
	}
	if !cyclic {
		// cycles not reachable from entries still need detection
		for id := range seen {
			if state[id] == white && dfs(id) {
				cyclic = true
				break
			}
		}
		if !cyclic {
			// restart the walk from entries only to compute reachability
			state = map[string]int{}
			for _, id := range entries {
				if isEntry[id] {
					dfs(id)
				}
			}
			var unreachable []string
			for id := range seen {
				if state[id] == white {
					unreachable = append(unreachable, id)
				}
			}
			sort.Strings(unreachable)
			for _, id := range unreachable {
				issues = append(issues, fmt.Errorf("step %s is unreachable from entry steps", id))
			}
		}
	}
	if cyclic {
		issues = append(issues, fmt.Errorf("definition contains cyclic dependencies"))
	}
	return issues
}

// stepIssues verifies expressions and literal durations of a step
func stepIssues(step *graph.Step) []error {
	var issues []error
	if step.When != "" {
		if err := evaluator.Validate(step.When); err != nil {
			issues = append(issues, fmt.Errorf("step %s when: %w", step.ID, err))
		}
	}
	durations := [][2]string{{"timeout", step.Timeout}}
	if step.Retry != nil {
		durations = append(durations, [2]string{"retry delay", step.Retry.Delay}, [2]string{"retry maxDelay", step.Retry.MaxDelay})
		if step.Retry.MaxAttempts < 0 {
			issues = append(issues, fmt.Errorf("step %s has negative retry maxAttempts", step.ID))
		}
	}
	if step.Kind == graph.KindHumanInput {
		// templated values are resolved at run time
		if value, ok := step.Config["timeout"]; ok && !strings.Contains(fmt.Sprint(value), "${") {
			durations = append(durations, [2]string{"input timeout", fmt.Sprint(value)})
		}
	}
	for _, duration := range durations {
		if _, err := graph.ParseDuration(duration[1]); err != nil {
			issues = append(issues, fmt.Errorf("step %s has invalid %s %q", step.ID, duration[0], duration[1]))
		}
	}
	if step.Loop != nil {
		if strings.TrimSpace(step.Loop.Until) == "" {
			issues = append(issues, fmt.Errorf("step %s loop has no until condition", step.ID))
		} else if err := evaluator.Validate(step.Loop.Until); err != nil {
			issues = append(issues, fmt.Errorf("step %s loop until: %w", step.ID, err))
		}
		if step.Loop.MaxIterations < 0 {
			issues = append(issues, fmt.Errorf("step %s has negative loop maxIterations", step.ID))
		}
	}
	return issues
}

// Clone creates a deep copy of the definition
func (d *Definition) Clone() *Definition {
	if d == nil {
		return nil
	}
	clone := &Definition{
		ID:          d.ID,
		Name:        d.Name,
		Description: d.Description,
		Version:     d.Version,
	}
	if d.Source != nil {
		source := *d.Source
		clone.Source = &source
	}
	clone.Entry = append(clone.Entry, d.Entry...)
	for _, step := range d.Steps {
		clone.Steps = append(clone.Steps, step.Clone())
	}
	for _, edge := range d.Edges {
		if edge == nil {
			clone.Edges = append(clone.Edges, nil)
			continue
		}
		e := *edge
		clone.Edges = append(clone.Edges, &e)
	}
	return clone
}
