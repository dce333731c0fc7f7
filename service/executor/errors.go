package executor

import "errors"

var (
	ErrNoInvoker    = errors.New("no invoker configured")
	ErrNoStorage    = errors.New("no storage configured")
	ErrNoNotifier   = errors.New("no notifier configured")
	ErrNoSuspension = errors.New("no suspension manager configured")
	ErrNoValidator  = errors.New("no validator configured")
)
