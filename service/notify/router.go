package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gobwas/glob"
	"github.com/viant/flowmind/model/types"
)

type route struct {
	pattern     string
	matcher     glob.Glob
	minSeverity Severity
	service     Service
}

// Router dispatches a message to every service whose channel pattern matches.
// Patterns are globs separated by '.', e.g. "ops.*" or "alerts.**".
type Router struct {
	mux      sync.RWMutex
	routes   []*route
	fallback Service
}

// RouteOption customises a route
type RouteOption func(r *route)

// WithMinSeverity drops messages below severity for the route
func WithMinSeverity(severity Severity) RouteOption {
	return func(r *route) { r.minSeverity = severity }
}

// NewRouter creates an empty router
func NewRouter() *Router {
	return &Router{}
}

// Route registers service for channels matching pattern
func (r *Router) Route(pattern string, service Service, options ...RouteOption) error {
	matcher, err := glob.Compile(pattern, '.')
	if err != nil {
		return fmt.Errorf("invalid channel pattern %q: %w", pattern, err)
	}
	aRoute := &route{pattern: pattern, matcher: matcher, minSeverity: SeverityInfo, service: service}
	for _, option := range options {
		option(aRoute)
	}
	r.mux.Lock()
	r.routes = append(r.routes, aRoute)
	r.mux.Unlock()
	return nil
}

// WithFallback sets service receiving messages no route matched
func (r *Router) WithFallback(service Service) *Router {
	r.fallback = service
	return r
}

// Send delivers to every matching route, without a match and fallback it returns NotFound
func (r *Router) Send(ctx context.Context, channel string, severity Severity, message string) error {
	r.mux.RLock()
	var targets []Service
	matched := false
	for _, candidate := range r.routes {
		if !candidate.matcher.Match(channel) {
			continue
		}
		matched = true
		if severity.AtLeast(candidate.minSeverity) {
			targets = append(targets, candidate.service)
		}
	}
	fallback := r.fallback
	r.mux.RUnlock()
	if !matched {
		if fallback == nil {
			return types.NewError(types.KindNotFound, "", "no notification route for channel %q", channel)
		}
		targets = append(targets, fallback)
	}
	var errs []error
	for _, target := range targets {
		if err := target.Send(ctx, channel, severity, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var _ Service = (*Router)(nil)
