package workflow

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/afs"
	"github.com/viant/afs/file"
	"github.com/viant/flowmind/model"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/service/meta"
)

const gradeYAML = `
id: grade
description: grade an essay
steps:
  - id: score
    kind: agent-call
    config:
      prompt: "Score ${essay}"
    timeout: 30s
    retry:
      type: exponential
      maxAttempts: 3
      delay: 1s
      multiplier: 2
  - id: praise
    kind: notify
    with:
      channel: telegram
      message: well done
  - id: coach
    kind: log
    config:
      message: needs work
    loop:
      until: iterations >= 2
      maxIterations: 5
  - id: done
    kind: log
    dependsOn: [praise]
edges:
  - from: score
    to: praise
    condition: score.value > 80
  - from: score
    to: coach
    mode: conditional
    condition: score.value <= 80
    tolerateFailure: true
`

const compactYAML = `
name: compact
steps:
  ask:
    kind: human-input
    config:
      prompt: Approve?
      choices: [yes, no]
  record:
    kind: storage-op
    dependsOn: ask
    config:
      operation: put
      key: answer
      value: ${ask.value}
`

func TestService_DecodeYAML(t *testing.T) {
	testCases := []struct {
		name        string
		yaml        string
		expectErr   bool
		expectID    string
		expectSteps []string
		expectEdges int
		verify      func(t *testing.T, definition *model.Definition)
	}{
		{
			name:        "sequence steps",
			yaml:        gradeYAML,
			expectID:    "grade",
			expectSteps: []string{"score", "praise", "coach", "done"},
			expectEdges: 3,
			verify: func(t *testing.T, definition *model.Definition) {
				score := definition.Step("score")
				assert.Equal(t, graph.KindAgentCall, score.Kind)
				assert.Equal(t, "30s", score.Timeout)
				assert.Equal(t, &graph.Retry{Type: "exponential", MaxAttempts: 3, Delay: "1s", Multiplier: 2}, score.Retry)
				assert.Equal(t, "telegram", definition.Step("praise").Config["channel"])
				incoming := definition.Incoming("praise")
				require.Len(t, incoming, 1)
				assert.Equal(t, graph.ModeConditional, incoming[0].Mode)
				assert.True(t, definition.Incoming("coach")[0].TolerateFailure)
				assert.Equal(t, &graph.Loop{Until: "iterations >= 2", MaxIterations: 5}, definition.Step("coach").Loop)
				assert.Equal(t, graph.ModeSequential, definition.Incoming("done")[0].Mode)
				assert.Equal(t, []string{"score"}, definition.EntrySteps())
			},
		},
		{
			name:        "compact mapping steps",
			yaml:        compactYAML,
			expectSteps: []string{"ask", "record"},
			expectEdges: 1,
			verify: func(t *testing.T, definition *model.Definition) {
				assert.True(t, strings.HasPrefix(definition.ID, "anonymous-"))
				assert.Equal(t, "compact", definition.Name)
				assert.Equal(t, []interface{}{"yes", "no"}, definition.Step("ask").Config["choices"])
			},
		},
		{
			name:      "invalid yaml",
			yaml:      "steps: [",
			expectErr: true,
		},
		{
			name: "unknown dependency",
			yaml: `
id: broken
steps:
  - id: a
    kind: log
    dependsOn: missing
`,
			expectErr: true,
		},
		{
			name: "cycle",
			yaml: `
id: cycle
steps:
  - id: a
    kind: log
  - id: b
    kind: log
    dependsOn: [a, c]
  - id: c
    kind: log
    dependsOn: b
`,
			expectErr: true,
		},
		{
			name: "missing step id",
			yaml: `
steps:
  - kind: log
`,
			expectErr: true,
		},
	}

	srv := New()
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			definition, err := srv.DecodeYAML([]byte(tc.yaml))
			if tc.expectErr {
				assert.Error(t, err)
				assert.Equal(t, types.KindInvalidDefinition, types.KindOf(err))
				return
			}
			require.NoError(t, err)
			if tc.expectID != "" {
				assert.Equal(t, tc.expectID, definition.ID)
			}
			var ids []string
			for _, step := range definition.Steps {
				ids = append(ids, step.ID)
			}
			assert.Equal(t, tc.expectSteps, ids)
			assert.Len(t, definition.Edges, tc.expectEdges)
			if tc.verify != nil {
				tc.verify(t, definition)
			}
		})
	}
}

func TestService_Load(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	baseURL := "mem://localhost/flows"
	assets := map[string]string{
		"grade.yaml":    strings.Replace(gradeYAML, "id: grade\n", "", 1),
		"compact.yml":   compactYAML,
		"broken.yaml":   "steps: [",
		"notes.txt":     "ignored",
		"approval.json": `{"id":"approval","steps":[{"id":"ask","kind":"human-input","config":{"prompt":"ok?"}}]}`,
	}
	for name, content := range assets {
		require.NoError(t, fs.Upload(ctx, baseURL+"/"+name, file.DefaultFileOsMode, strings.NewReader(content)))
	}
	srv := New(WithMetaService(meta.New(fs, baseURL)))

	testCases := []struct {
		name      string
		location  string
		expectErr bool
		expectID  string
	}{
		{name: "id from file name", location: "grade", expectID: "grade"},
		{name: "yml extension", location: "compact.yml", expectID: "compact"},
		{name: "json", location: "approval.json", expectID: "approval"},
		{name: "parse error", location: "broken.yaml", expectErr: true},
		{name: "missing", location: "missing.yaml", expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			definition, err := srv.Load(ctx, tc.location)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.expectID, definition.ID)
			assert.NotEmpty(t, definition.Source.URL)
			cached, ok := srv.Lookup(tc.expectID)
			assert.True(t, ok)
			assert.Same(t, definition, cached)
		})
	}
	assert.Equal(t, []string{"approval", "compact", "grade"}, srv.Definitions())
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	URL := "mem://localhost/refresh/flow.yaml"
	upload := func(content string) {
		require.NoError(t, fs.Upload(ctx, URL, file.DefaultFileOsMode, strings.NewReader(content)))
	}
	var notified []string
	srv := New(WithMetaService(meta.New(fs, "")), WithListener(func(definition *model.Definition) {
		notified = append(notified, definition.Version)
	}))

	upload("version: v1\nsteps:\n  - id: a\n    kind: log\n")
	original, err := srv.Load(ctx, URL)
	require.NoError(t, err)

	upload("version: v2\nsteps:\n  - id: a\n    kind: log\n  - id: b\n    kind: log\n    dependsOn: a\n")
	updated, err := srv.Refresh(ctx, URL)
	require.NoError(t, err)
	assert.Equal(t, "v2", updated.Version)
	assert.Len(t, original.Steps, 1, "previously loaded definition is not mutated")

	upload("steps: [")
	kept, err := srv.Refresh(ctx, URL)
	assert.Error(t, err)
	assert.Same(t, updated, kept)
	current, _ := srv.Lookup("flow")
	assert.Same(t, updated, current)
	assert.Equal(t, []string{"v1", "v2"}, notified)
}

func TestService_Watch(t *testing.T) {
	dir := t.TempDir()
	location := filepath.Join(dir, "watched.yaml")
	require.NoError(t, os.WriteFile(location, []byte("version: v1\nsteps:\n  - id: a\n    kind: log\n"), 0644))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := New()
	_, err := srv.Load(ctx, location)
	require.NoError(t, err)

	watcher, err := srv.Watch(ctx, dir)
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(location, []byte("version: v2\nsteps:\n  - id: a\n    kind: log\n"), 0644))
	assert.Eventually(t, func() bool {
		definition, ok := srv.Lookup("watched")
		return ok && definition.Version == "v2"
	}, 5*time.Second, 20*time.Millisecond)
}

func TestService_LoadAll(t *testing.T) {
	ctx := context.Background()
	fs := afs.New()
	baseURL := "mem://localhost/all"
	for name, content := range map[string]string{
		"b.yaml":    "steps:\n  - id: x\n    kind: log\n",
		"a.yml":     "steps:\n  - id: y\n    kind: log\n",
		"notes.txt": "ignored",
	} {
		require.NoError(t, fs.Upload(ctx, baseURL+"/"+name, file.DefaultFileOsMode, strings.NewReader(content)))
	}
	srv := New(WithMetaService(meta.New(fs, baseURL)))
	definitions, err := srv.LoadAll(ctx, baseURL)
	require.NoError(t, err)
	require.Len(t, definitions, 2)
	assert.Equal(t, "a", definitions[0].ID)
	assert.Equal(t, "b", definitions[1].ID)
}
