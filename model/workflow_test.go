package model

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
	"gopkg.in/yaml.v3"
)

func TestProgrammaticDefinitionCreation(t *testing.T) {
	definition := NewDefinition("review")
	definition.NewStep("draft", graph.KindAgentCall).WithConfig("prompt", "write ${topic}")
	definition.NewStep("score", graph.KindAgentCall)
	definition.NewStep("approve", graph.KindHumanInput).WithConfig("timeout", "1h")
	definition.Connect("draft", "score", graph.ModeSequential)
	definition.ConnectIf("score", "approve", "score > 80")

	assert.NoError(t, definition.Init())
	assert.EqualValues(t, []string{"draft"}, definition.EntrySteps())
	assert.Len(t, definition.Incoming("approve"), 1)
	assert.Len(t, definition.Outgoing("draft"), 1)
	assert.Equal(t, graph.KindHumanInput, definition.Step("approve").Kind)

	data, err := json.Marshal(definition)
	assert.NoError(t, err)
	decoded := &Definition{}
	assert.NoError(t, json.Unmarshal(data, decoded))
	assert.NoError(t, decoded.Validate())
	assert.Equal(t, "score > 80", decoded.Edges[1].Condition)
}

func TestDefinition_Validate(t *testing.T) {
	testCases := []struct {
		name       string
		definition string
		expectErr  bool
		contains   string
	}{
		{
			name: "valid diamond",
			definition: `
id: diamond
steps:
  - {id: a, kind: agent-call}
  - {id: b, kind: agent-call}
  - {id: c, kind: agent-call}
  - {id: d, kind: log}
edges:
  - {from: a, to: b, mode: parallel}
  - {from: a, to: c, mode: parallel}
  - {from: b, to: d}
  - {from: c, to: d}
`,
		},
		{
			name: "cycle",
			definition: `
id: cycle
entry: [a]
steps:
  - {id: a, kind: agent-call}
  - {id: b, kind: agent-call}
  - {id: c, kind: agent-call}
edges:
  - {from: a, to: b}
  - {from: b, to: c}
  - {from: c, to: b}
`,
			expectErr: true,
			contains:  "cyclic",
		},
		{
			name: "unknown step",
			definition: `
id: unknown
steps:
  - {id: a, kind: agent-call}
edges:
  - {from: a, to: z}
`,
			expectErr: true,
			contains:  "unknown step z",
		},
		{
			name: "orphan step",
			definition: `
id: orphan
entry: [a]
steps:
  - {id: a, kind: agent-call}
  - {id: b, kind: agent-call}
`,
			expectErr: true,
			contains:  "step b has no incoming edge",
		},
		{
			name: "conditional without condition",
			definition: `
id: cond
steps:
  - {id: a, kind: agent-call}
  - {id: b, kind: agent-call}
edges:
  - {from: a, to: b, mode: conditional}
`,
			expectErr: true,
			contains:  "has no condition",
		},
		{
			name: "duplicate and bad kind",
			definition: `
id: dup
steps:
  - {id: a, kind: agent-call}
  - {id: a, kind: teleport}
`,
			expectErr: true,
			contains:  "duplicate step id a",
		},
		{
			name: "bare second timeouts",
			definition: `
id: seconds
steps:
  - {id: a, kind: agent-call, timeout: 30, retry: {delay: 1.5, maxDelay: 1m}}
  - {id: b, kind: human-input, config: {timeout: 300}}
  - {id: c, kind: human-input, config: {timeout: "${limit}"}}
edges:
  - {from: a, to: b}
  - {from: a, to: c}
`,
		},
		{
			name: "unparsable edge condition",
			definition: `
id: cond
steps:
  - {id: a, kind: agent-call}
  - {id: c, kind: log}
edges:
  - {from: a, to: c, condition: "score >"}
`,
			expectErr: true,
			contains:  "edge a->c: invalid expression",
		},
		{
			name: "unparsable when",
			definition: `
id: when
steps:
  - {id: a, kind: agent-call, when: "a &&"}
`,
			expectErr: true,
			contains:  "step a when: invalid expression",
		},
		{
			name: "invalid timeout",
			definition: `
id: timeout
steps:
  - {id: a, kind: agent-call}
  - {id: b, kind: agent-call, timeout: fast}
edges:
  - {from: a, to: b}
`,
			expectErr: true,
			contains:  `step b has invalid timeout "fast"`,
		},
		{
			name: "invalid retry delays",
			definition: `
id: retry
steps:
  - {id: a, kind: agent-call, retry: {type: exponential, delay: soon, maxDelay: later}}
`,
			expectErr: true,
			contains:  `step a has invalid retry delay "soon"; step a has invalid retry maxDelay "later"`,
		},
		{
			name: "invalid input timeout",
			definition: `
id: input
steps:
  - {id: a, kind: human-input, config: {timeout: tomorrow}}
`,
			expectErr: true,
			contains:  `step a has invalid input timeout "tomorrow"`,
		},
		{
			name: "loop without until",
			definition: `
id: loop
steps:
  - {id: a, kind: agent-call, loop: {maxIterations: 3}}
`,
			expectErr: true,
			contains:  "step a loop has no until condition",
		},
		{
			name: "loop with unparsable until",
			definition: `
id: loop
steps:
  - {id: a, kind: agent-call, loop: {until: "score >=", maxIterations: 3}}
`,
			expectErr: true,
			contains:  "step a loop until: invalid expression",
		},
		{
			name:       "empty",
			definition: `id: empty`,
			expectErr:  true,
			contains:   "no steps",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			definition := &Definition{}
			assert.NoError(t, yaml.Unmarshal([]byte(tc.definition), definition))
			err := definition.Validate()
			if !tc.expectErr {
				assert.NoError(t, err)
				return
			}
			if !assert.Error(t, err) {
				return
			}
			assert.True(t, errors.Is(err, types.ErrInvalidDefinition))
			assert.Contains(t, err.Error(), tc.contains)
		})
	}
}

func TestDefinition_Clone(t *testing.T) {
	definition := NewDefinition("clone")
	definition.NewStep("a", graph.KindLog).WithConfig("message", "hi")
	definition.NewStep("b", graph.KindLog)
	definition.Connect("a", "b", graph.ModeSequential)

	clone := definition.Clone()
	clone.Steps[0].Config["message"] = "changed"
	clone.Edges[0].Mode = graph.ModeParallel

	assert.Equal(t, "hi", definition.Steps[0].Config["message"])
	assert.Equal(t, graph.ModeSequential, definition.Edges[0].Mode)
	assert.NoError(t, clone.Validate())
}
