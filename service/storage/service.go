// Package storage defines the namespaced key-value capability used by storage-op steps.
package storage

import (
	"context"
	"time"

	"github.com/viant/flowmind/internal/clock"
	"github.com/viant/flowmind/model/types"
)

// Service stores values by namespace and key. Implementations must be safe for concurrent use.
type Service interface {
	// Put creates or overwrites a value
	Put(ctx context.Context, namespace, key string, value interface{}, options ...Option) error

	// Get returns a value or a NotFound error
	Get(ctx context.Context, namespace, key string) (interface{}, error)

	// Update overwrites an existing value keeping its expiry, NotFound when missing
	Update(ctx context.Context, namespace, key string, value interface{}) error

	Delete(ctx context.Context, namespace, key string) error

	// List returns sorted live keys of the namespace
	List(ctx context.Context, namespace string) ([]string, error)
}

// Record represents a stored value
type Record struct {
	Namespace string      `json:"namespace"`
	Key       string      `json:"key"`
	Value     interface{} `json:"value"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
	ExpiresAt *time.Time  `json:"expiresAt,omitempty"`
}

// ID returns record identity
func (r *Record) ID() string {
	return RecordID(r.Namespace, r.Key)
}

// IsExpired returns true when record ttl elapsed at now
func (r *Record) IsExpired(now time.Time) bool {
	return r.ExpiresAt != nil && !now.Before(*r.ExpiresAt)
}

// RecordID returns namespace/key identity
func RecordID(namespace, key string) string {
	return namespace + "/" + key
}

// Options represents put options
type Options struct {
	TTL time.Duration
}

// Option customises Put
type Option func(o *Options)

// WithTTL expires the record after ttl
func WithTTL(ttl time.Duration) Option {
	return func(o *Options) { o.TTL = ttl }
}

// NewOptions applies options
func NewOptions(options ...Option) *Options {
	ret := &Options{}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// NewRecord creates a record applying options
func NewRecord(namespace, key string, value interface{}, options ...Option) *Record {
	now := clock.Now()
	ret := &Record{Namespace: namespace, Key: key, Value: value, CreatedAt: now, UpdatedAt: now}
	if opts := NewOptions(options...); opts.TTL > 0 {
		expiresAt := now.Add(opts.TTL)
		ret.ExpiresAt = &expiresAt
	}
	return ret
}

// Validate checks namespace and key
func Validate(namespace, key string) error {
	if namespace == "" {
		return types.NewError(types.KindValidationFailure, "", "storage namespace is required")
	}
	if key == "" {
		return types.NewError(types.KindValidationFailure, "", "storage key is required")
	}
	return nil
}

// NotFound returns classified missing record error
func NotFound(namespace, key string) error {
	return types.NewError(types.KindNotFound, "", "%s not found", RecordID(namespace, key))
}
