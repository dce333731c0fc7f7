package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/flowmind/service/messaging"
)

type stepTask struct {
	StepID string
	Order  int
}

func TestQueue_PublishConsume(t *testing.T) {
	queue := NewQueue[stepTask](DefaultConfig())
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		require.NoError(t, queue.Publish(ctx, &stepTask{StepID: fmt.Sprintf("s%d", i), Order: i}))
	}
	assert.Equal(t, 3, queue.Size())
	for i := 0; i < 3; i++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err)
		assert.Equal(t, i, message.T().Order, "fifo order")
		assert.NoError(t, message.Ack())
		assert.Error(t, message.Ack(), "double ack")
	}
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_Retries(t *testing.T) {
	config := DefaultConfig()
	config.MaxRetries = 2
	config.RetryDelay = 5 * time.Millisecond
	queue := NewQueue[stepTask](config)
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, queue.Publish(ctx, &stepTask{StepID: "flaky"}))
	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		message, err := queue.Consume(ctx)
		require.NoError(t, err, "attempt %d", attempt)
		assert.Equal(t, "flaky", message.T().StepID)
		assert.NoError(t, message.Nack(fmt.Errorf("attempt %d", attempt)))
	}
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 0, queue.Size())
	assert.Equal(t, 1, queue.DLQSize())
}

func TestQueue_DropWhenFull(t *testing.T) {
	testCases := []struct {
		name         string
		dropWhenFull bool
		expectErr    error
	}{
		{name: "drop", dropWhenFull: true, expectErr: messaging.ErrQueueFull},
		{name: "block until ctx done", dropWhenFull: false, expectErr: context.DeadlineExceeded},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			queue := NewQueue[stepTask](Config{QueueBuffer: 1, DropWhenFull: tc.dropWhenFull})
			ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
			defer cancel()
			require.NoError(t, queue.Publish(ctx, &stepTask{StepID: "a"}))
			err := queue.Publish(ctx, &stepTask{StepID: "b"})
			assert.ErrorIs(t, err, tc.expectErr)
			assert.Equal(t, 1, queue.Size())
		})
	}
}

func TestQueue_Concurrency(t *testing.T) {
	queue := NewQueue[stepTask](DefaultConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	producers, perProducer := 10, 10

	var wg sync.WaitGroup
	var mu sync.Mutex
	consumed := 0
	for i := 0; i < producers; i++ {
		wg.Add(2)
		go func(id int) {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				assert.NoError(t, queue.Publish(ctx, &stepTask{StepID: fmt.Sprintf("p%d-%d", id, j)}))
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				message, err := queue.Consume(ctx)
				if !assert.NoError(t, err) {
					return
				}
				assert.NoError(t, message.Ack())
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, producers*perProducer, consumed)
	assert.Equal(t, 0, queue.Size())
}

func TestQueue_ContextCancellation(t *testing.T) {
	queue := NewQueue[stepTask](DefaultConfig())
	cancelled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, queue.Publish(cancelled, &stepTask{}))

	short, cancelShort := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancelShort()
	_, err := queue.Consume(short)
	assert.Error(t, err)

	_, ok := queue.TryConsume()
	assert.False(t, ok)
	assert.NoError(t, queue.Publish(context.Background(), &stepTask{StepID: "x"}))
	message, ok := queue.TryConsume()
	assert.True(t, ok)
	assert.Equal(t, "x", message.T().StepID)
}
