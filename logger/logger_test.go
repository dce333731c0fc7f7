package logger

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFromString(t *testing.T) {
	testCases := []struct {
		input    string
		expected LogLevel
	}{
		{"debug", LevelDebug},
		{"INFO", LevelInfo},
		{"warning", LevelWarn},
		{"WaRn", LevelWarn},
		{"critical", LevelError},
		{"", DefaultLogLevel},
		{"verbose", DefaultLogLevel},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			assert.Equal(t, tc.expected, LevelFromString(tc.input))
		})
	}
}

func TestCtx(t *testing.T) {
	assert.Same(t, DefaultLogger, Ctx(context.Background()))
	custom := NewWithWriter(&bytes.Buffer{}, LevelDebug)
	ctx := WithLogger(context.Background(), custom)
	assert.Same(t, custom, Ctx(ctx))
}

func TestSlogger(t *testing.T) {
	buffer := &bytes.Buffer{}
	log := NewWithWriter(buffer, LevelInfo)
	log.Debug("hidden")
	log.With("execution", "e1").Info("step finished", "step", "a")
	output := buffer.String()
	assert.NotContains(t, output, "hidden")
	assert.Contains(t, output, "step finished")
	assert.Contains(t, output, "execution=e1")
	assert.Contains(t, output, "caller=logger/logger_test.go")
}

func TestMemorySink(t *testing.T) {
	ctx := context.Background()
	sink := NewMemorySink(LevelInfo)
	require.NoError(t, sink.Write(ctx, LevelDebug, []string{"verbose"}, "dropped"))
	require.NoError(t, sink.Write(ctx, LevelInfo, []string{"production", "critical-path"}, "started"))
	require.NoError(t, sink.Write(ctx, LevelError, []string{"production"}, "failed"))

	testCases := []struct {
		name   string
		tags   []string
		expect []string
	}{
		{name: "all", expect: []string{"started", "failed"}},
		{name: "single tag", tags: []string{"production"}, expect: []string{"started", "failed"}},
		{name: "every tag", tags: []string{"production", "critical-path"}, expect: []string{"started"}},
		{name: "unknown", tags: []string{"verbose"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var actual []string
			for _, entry := range sink.Entries(tc.tags...) {
				actual = append(actual, entry.Message)
			}
			assert.Equal(t, tc.expect, actual)
		})
	}
	assert.Equal(t, []string{"critical-path", "production"}, sink.Tags())
}

func TestMultiSink(t *testing.T) {
	buffer := &bytes.Buffer{}
	memory := NewMemorySink(LevelDebug)
	sink := MultiSink{NewSink(NewWithWriter(buffer, LevelDebug)), memory}
	assert.NoError(t, sink.Write(context.Background(), LevelWarn, []string{"audit"}, "approval pending"))
	assert.Contains(t, buffer.String(), "approval pending")
	assert.Len(t, memory.Entries("audit"), 1)
}
