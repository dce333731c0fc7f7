package types

import (
	"errors"
	"fmt"
)

// ErrorKind classifies engine errors so that callers can react without parsing messages.
type ErrorKind string

const (
	KindInvalidDefinition ErrorKind = "InvalidDefinition"
	KindDuplicateRequest  ErrorKind = "DuplicateRequest"
	KindNotFound          ErrorKind = "NotFound"
	KindAlreadyResolved   ErrorKind = "AlreadyResolved"
	KindTimeout           ErrorKind = "Timeout"
	KindInvokerFailure    ErrorKind = "InvokerFailure"
	KindValidationFailure ErrorKind = "ValidationFailure"
	KindCancelled         ErrorKind = "Cancelled"
)

// Sentinel errors, one per kind; any *Error of the same kind matches them with errors.Is.
var (
	ErrInvalidDefinition = &Error{Kind: KindInvalidDefinition}
	ErrDuplicateRequest  = &Error{Kind: KindDuplicateRequest}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrAlreadyResolved   = &Error{Kind: KindAlreadyResolved}
	ErrTimeout           = &Error{Kind: KindTimeout}
	ErrInvokerFailure    = &Error{Kind: KindInvokerFailure}
	ErrValidationFailure = &Error{Kind: KindValidationFailure}
	ErrCancelled         = &Error{Kind: KindCancelled}
)

// Error represents a classified engine error
type Error struct {
	Kind    ErrorKind
	StepID  string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.StepID != "" {
		msg = fmt.Sprintf("step %s: %s", e.StepID, msg)
	}
	if msg == "" {
		return string(e.Kind)
	}
	return string(e.Kind) + ": " + msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error with the same kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// NewError creates a classified error
func NewError(kind ErrorKind, stepID string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, StepID: stepID, Message: fmt.Sprintf(format, args...)}
}

// WrapError wraps err with the supplied kind, nil stays nil
func WrapError(kind ErrorKind, stepID string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, StepID: stepID, Err: err}
}

// KindOf returns the kind of the first *Error found in err chain or empty kind
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
