package suspension

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/viant/flowmind/internal/clock"
)

const defaultInterval = 20 * time.Millisecond

// AnswerFunc returns the answer for a pending request, ok=false leaves it open
type AnswerFunc func(r *Request) (value interface{}, ok bool)

// AutoResolve starts a goroutine that polls ListPending and answers every
// request fn accepts. It returns stop(); call it (or cancel ctx) to exit.
func AutoResolve(ctx context.Context, svc Service, fn AnswerFunc, interval time.Duration) (stop func()) {
	return poll(ctx, interval, func() {
		requests, _ := svc.ListPending(ctx)
		for _, r := range requests {
			if value, ok := fn(r); ok {
				_ = svc.Resolve(ctx, r.ID, value)
			}
		}
	})
}

// AutoApprove approves every pending approval request
func AutoApprove(ctx context.Context, svc Service, interval time.Duration) (stop func()) {
	return AutoResolve(ctx, svc, func(r *Request) (interface{}, bool) {
		return true, r.Kind == KindApproval
	}, interval)
}

// AutoExpire periodically sweeps expired requests using clock.Now
func AutoExpire(ctx context.Context, svc Service, interval time.Duration) (stop func()) {
	return poll(ctx, interval, func() {
		_, _ = svc.CheckExpired(ctx, clock.Now())
	})
}

func poll(ctx context.Context, interval time.Duration, fn func()) (stop func()) {
	if interval <= 0 {
		interval = defaultInterval
	}
	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}

// WaitForResolution blocks until the request reaches a terminal state or timeout elapses
func WaitForResolution(ctx context.Context, svc Service, requestID string, timeout time.Duration) (*Request, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	ticker := time.NewTicker(defaultInterval / 4)
	defer ticker.Stop()
	for {
		request, err := svc.Load(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if request.State.IsTerminal() {
			return request, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("request %s still %s: %w", requestID, request.State, ctx.Err())
		case <-ticker.C:
		}
	}
}
