package suspension_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/flowmind/service/suspension"
	"github.com/viant/flowmind/service/suspension/memory"
)

func TestWaitForResolution(t *testing.T) {
	testCases := []struct {
		name        string
		resolveIn   time.Duration
		timeout     time.Duration
		expectError bool
	}{
		{name: "resolved before timeout", resolveIn: 10 * time.Millisecond, timeout: 500 * time.Millisecond},
		{name: "timeout", resolveIn: 200 * time.Millisecond, timeout: 30 * time.Millisecond, expectError: true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			svc := memory.New()
			id, err := svc.Register(ctx, "e1", "ask", time.Minute)
			require.NoError(t, err)
			go func() {
				time.Sleep(tc.resolveIn)
				_ = svc.Resolve(ctx, id, "answer")
			}()
			request, err := suspension.WaitForResolution(ctx, svc, id, tc.timeout)
			if tc.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, suspension.StateResolved, request.State)
			assert.Equal(t, "answer", request.Value)
		})
	}
}

func TestAutoExpire(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := memory.New()
	id, err := svc.Register(ctx, "e1", "ask", time.Millisecond)
	require.NoError(t, err)

	stop := suspension.AutoExpire(ctx, svc, 5*time.Millisecond)
	defer stop()

	request, err := suspension.WaitForResolution(ctx, svc, id, time.Second)
	require.NoError(t, err)
	assert.Equal(t, suspension.StateExpired, request.State)
	assert.Equal(t, suspension.ReasonTimeout, request.Reason)
	stop()
}

func TestAutoApprove(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	svc := memory.New()
	approval, _ := svc.Register(ctx, "e1", "approve", time.Minute, suspension.WithKind(suspension.KindApproval))
	input, _ := svc.Register(ctx, "e1", "input", time.Minute)

	stop := suspension.AutoApprove(ctx, svc, 5*time.Millisecond)
	defer stop()

	request, err := suspension.WaitForResolution(ctx, svc, approval, time.Second)
	require.NoError(t, err)
	assert.Equal(t, true, request.Value)

	pending, err := svc.ListPending(ctx)
	assert.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, input, pending[0].ID)
}
