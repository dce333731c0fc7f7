package suspension

import (
	"context"
	"time"

	"github.com/viant/flowmind/service/messaging"
)

// Service manages pending external input requests
type Service interface {
	// Register creates an open request for the execution step, timeout <= 0 uses the service default
	Register(ctx context.Context, executionID, stepID string, timeout time.Duration, options ...RequestOption) (string, error)

	// Resolve answers an open request
	Resolve(ctx context.Context, requestID string, value interface{}) error

	// CheckExpired expires every open request whose deadline is before now
	CheckExpired(ctx context.Context, now time.Time) ([]string, error)

	// CancelExecution expires every open request of the execution with ReasonCancelled
	CancelExecution(ctx context.Context, executionID string) ([]string, error)

	ListPending(ctx context.Context, filters ...PendingFilter) ([]*Request, error)

	Load(ctx context.Context, requestID string) (*Request, error)

	Subscribe(listener Listener)

	Queue() messaging.Queue[Event]
}
