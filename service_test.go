package flowmind_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/flowmind"
	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/runtime/execution"
	"github.com/viant/flowmind/service/invoker"
	"github.com/viant/flowmind/service/notify"
	smemory "github.com/viant/flowmind/service/storage/memory"
	"github.com/viant/flowmind/service/suspension"
)

const onboardingYAML = `
id: onboarding
version: v1
steps:
  - id: greet
    kind: agent-call
    config:
      prompt: "Welcome to ${topic}"
  - id: ask
    kind: human-input
    dependsOn: greet
    config:
      prompt: "Name for ${topic}?"
  - id: save
    kind: storage-op
    dependsOn: ask
    config:
      operation: put
      namespace: profiles
      key: name
      value: ${ask.value}
  - id: done
    kind: log
    dependsOn: save
    config:
      message: saved ${ask.value}
`

func testConfig() *flowmind.Config {
	cfg := flowmind.DefaultConfig()
	cfg.Logging.Level = "error"
	cfg.Suspension.PromptChannel = "ops"
	cfg.Suspension.SweepInterval = 10 * time.Millisecond
	return cfg
}

func greeter() invoker.Service {
	return invoker.Func(func(ctx context.Context, request *invoker.Request) (*invoker.Response, error) {
		return &invoker.Response{Text: `{"greeting":"hi"}`, Success: true, TokensUsed: 3}, nil
	})
}

func awaitPending(t *testing.T, rt *flowmind.Runtime, executionID string) *suspension.Request {
	t.Helper()
	var pending []*suspension.Request
	require.Eventually(t, func() bool {
		var err error
		pending, err = rt.ListPending(context.Background(), suspension.WithExecutionID(executionID))
		return err == nil && len(pending) == 1
	}, 2*time.Second, time.Millisecond)
	return pending[0]
}

func TestConfig_Validate(t *testing.T) {
	testCases := []struct {
		name      string
		adjust    func(c *flowmind.Config)
		expectErr bool
	}{
		{name: "defaults", adjust: func(c *flowmind.Config) {}},
		{name: "no workers", adjust: func(c *flowmind.Config) { c.Scheduler.Workers = 0 }, expectErr: true},
		{name: "negative sweep", adjust: func(c *flowmind.Config) { c.Suspension.SweepInterval = -1 }, expectErr: true},
		{name: "disabled sweep", adjust: func(c *flowmind.Config) { c.Suspension.SweepInterval = 0 }},
		{name: "no attempts", adjust: func(c *flowmind.Config) { c.Retry.MaxAttempts = 0 }, expectErr: true},
		{name: "shrinking multiplier", adjust: func(c *flowmind.Config) { c.Retry.Multiplier = 0.5 }, expectErr: true},
		{name: "unknown level", adjust: func(c *flowmind.Config) { c.Logging.Level = "verbose" }, expectErr: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := flowmind.DefaultConfig()
			tc.adjust(cfg)
			err := cfg.Validate()
			if tc.expectErr {
				assert.Error(t, err)
				_, nerr := flowmind.New(flowmind.WithConfig(cfg))
				assert.Error(t, nerr)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	testCases := []struct {
		name      string
		file      string
		content   string
		expectErr bool
		verify    func(t *testing.T, cfg *flowmind.Config)
	}{
		{
			name: "yaml with durations",
			file: "engine.yaml",
			content: `
scheduler:
  workers: 8
suspension:
  defaultTimeout: 30m
  promptChannel: telegram
retry:
  maxAttempts: 3
  delay: 250ms
`,
			verify: func(t *testing.T, cfg *flowmind.Config) {
				assert.Equal(t, 8, cfg.Scheduler.Workers)
				assert.Equal(t, 30*time.Minute, cfg.Suspension.DefaultTimeout)
				assert.Equal(t, time.Second, cfg.Suspension.SweepInterval, "unset fields keep defaults")
				assert.Equal(t, "telegram", cfg.Suspension.PromptChannel)
				assert.Equal(t, 3, cfg.Retry.MaxAttempts)
				assert.Equal(t, 250*time.Millisecond, cfg.Retry.Delay)
				assert.Equal(t, time.Minute, cfg.Retry.MaxDelay)
			},
		},
		{
			name:    "json",
			file:    "engine.json",
			content: `{"scheduler":{"workers":2},"logging":{"level":"debug"}}`,
			verify: func(t *testing.T, cfg *flowmind.Config) {
				assert.Equal(t, 2, cfg.Scheduler.Workers)
				assert.Equal(t, "debug", cfg.Logging.Level)
			},
		},
		{
			name:      "invalid values",
			file:      "invalid.yaml",
			content:   "scheduler:\n  workers: -1\n",
			expectErr: true,
		},
		{
			name:      "missing",
			file:      "missing.yaml",
			expectErr: true,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			location := filepath.Join(dir, tc.file)
			if tc.content != "" {
				require.NoError(t, os.WriteFile(location, []byte(tc.content), 0644))
			}
			cfg, err := flowmind.LoadConfig(context.Background(), location)
			if tc.expectErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			tc.verify(t, cfg)
		})
	}
}

func TestRuntime_Run(t *testing.T) {
	ctx := context.Background()
	store := smemory.New()
	recorder := notify.NewRecorder()
	sink := logger.NewMemorySink(logger.LevelDebug)
	srv, err := flowmind.New(
		flowmind.WithConfig(testConfig()),
		flowmind.WithInvoker(greeter()),
		flowmind.WithStorage(store),
		flowmind.WithNotifier(recorder),
		flowmind.WithSink(sink),
	)
	require.NoError(t, err)
	rt := srv.Runtime()
	require.NoError(t, rt.Start(ctx))
	defer rt.Shutdown(ctx)

	definition, err := rt.UpsertDefinition(ctx, "onboarding.yaml", []byte(onboardingYAML))
	require.NoError(t, err)
	run, err := rt.StartExecution(ctx, definition, map[string]interface{}{"topic": "go"})
	require.NoError(t, err)

	request := awaitPending(t, rt, run.ID())
	assert.Equal(t, "ask", request.StepID)
	assert.Equal(t, "Name for go?", request.Prompt)
	require.Eventually(t, func() bool { return len(recorder.Messages("ops")) == 1 }, time.Second, time.Millisecond)
	assert.True(t, strings.Contains(recorder.Messages("ops")[0].Text, request.ID))

	require.NoError(t, rt.Resolve(ctx, request.ID, "Ada"))
	result, err := run.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusSucceeded, result.Status)
	assert.EqualValues(t, 3, result.TokensUsed)
	assert.Equal(t, "hi", result.Result("greet").Extracted["greeting"])
	assert.Equal(t, "Ada", result.Result("ask").Text())

	value, err := store.Get(ctx, "profiles", "name")
	require.NoError(t, err)
	assert.Equal(t, "Ada", value)
	entries := sink.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, "saved Ada", entries[0].Message)

	err = rt.Resolve(ctx, request.ID, "again")
	assert.True(t, errors.Is(err, types.ErrAlreadyResolved))
}

func TestRuntime_Cancel(t *testing.T) {
	ctx := context.Background()
	srv, err := flowmind.New(flowmind.WithConfig(testConfig()), flowmind.WithInvoker(greeter()))
	require.NoError(t, err)
	rt := srv.Runtime()

	definition, err := rt.DecodeDefinition([]byte(onboardingYAML))
	require.NoError(t, err)
	run, err := rt.StartExecution(ctx, definition, nil)
	require.NoError(t, err)
	request := awaitPending(t, rt, run.ID())

	_, ok := rt.Execution(run.ID())
	assert.True(t, ok)
	require.NoError(t, rt.Cancel(run.ID()))
	result, err := run.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusCancelled, result.Status)
	assert.Equal(t, execution.StepStatusCancelled, result.Result("ask").Status)

	pending, err := rt.ListPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)
	assert.True(t, errors.Is(rt.Resolve(ctx, request.ID, "late"), types.ErrAlreadyResolved))
	assert.True(t, errors.Is(rt.Cancel(run.ID()), types.ErrNotFound))
}

func TestRuntime_UpsertDefinition(t *testing.T) {
	ctx := context.Background()
	srv, err := flowmind.New(flowmind.WithConfig(testConfig()), flowmind.WithInvoker(greeter()))
	require.NoError(t, err)
	rt := srv.Runtime()

	v1, err := rt.UpsertDefinition(ctx, "onboarding.yaml", []byte(onboardingYAML))
	require.NoError(t, err)
	run, err := rt.StartExecution(ctx, v1, nil)
	require.NoError(t, err)
	awaitPending(t, rt, run.ID())

	v2, err := rt.UpsertDefinition(ctx, "onboarding.yaml", []byte(strings.Replace(onboardingYAML, "version: v1", "version: v2", 1)))
	require.NoError(t, err)
	current, ok := rt.Definition("onboarding")
	require.True(t, ok)
	assert.Same(t, v2, current)
	assert.Equal(t, "v1", run.Definition().Version, "running execution keeps its definition")

	_, err = rt.UpsertDefinition(ctx, "broken.yaml", []byte("steps: ["))
	assert.Error(t, err)

	require.NoError(t, rt.Cancel(run.ID()))
	_, err = run.Wait(ctx)
	assert.NoError(t, err)
}

func TestRuntime_RunDefinition(t *testing.T) {
	ctx := context.Background()
	srv, err := flowmind.New(flowmind.WithConfig(testConfig()), flowmind.WithInvoker(greeter()))
	require.NoError(t, err)
	rt := srv.Runtime()

	_, err = rt.RunDefinition(ctx, "missing", nil)
	assert.True(t, errors.Is(err, types.ErrNotFound))

	_, err = rt.UpsertDefinition(ctx, "single.yaml", []byte("id: single\nsteps:\n  - id: a\n    kind: agent-call\n"))
	require.NoError(t, err)
	result, err := rt.RunDefinition(ctx, "single", nil)
	require.NoError(t, err)
	assert.Equal(t, execution.StatusSucceeded, result.Status)
	assert.Len(t, result.Steps, 1)
}
