package tracing

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracingFile(t *testing.T) {
	fileName := filepath.Join(t.TempDir(), "spans.json")
	require.NoError(t, Init("flowmind", "0.0.1", fileName))

	ctx, run := StartSpan(context.Background(), "execution demo", "INTERNAL")
	run.WithAttributes(map[string]string{"execution.id": "demo/1"})
	_, step := StartSpan(ctx, "step a", "CLIENT")
	step.AddEvent("retry", map[string]string{"attempt": "2"})
	EndSpan(step, errors.New("boom"))
	EndSpan(run, nil)

	data, err := os.ReadFile(fileName)
	require.NoError(t, err)
	assert.Contains(t, string(data), "execution demo")
	assert.Contains(t, string(data), "step a")
	assert.Contains(t, string(data), "demo/1")
}

func TestNilSpan(t *testing.T) {
	var span *Span
	assert.Nil(t, span.WithAttributes(map[string]string{"k": "v"}))
	span.SetStatus(nil)
	EndSpan(span, nil)
}
