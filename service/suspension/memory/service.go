// Package memory implements an in-process suspension.Service.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/viant/flowmind/internal/clock"
	"github.com/viant/flowmind/internal/idgen"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/service/dao"
	"github.com/viant/flowmind/service/dao/criteria"
	"github.com/viant/flowmind/service/dao/store"
	"github.com/viant/flowmind/service/messaging"
	qmem "github.com/viant/flowmind/service/messaging/memory"
	"github.com/viant/flowmind/service/suspension"
)

type service struct {
	config *Config
	// mux guards every request transition, listeners run while it is held
	mux       sync.Mutex
	requests  dao.Service[string, suspension.Request]
	open      map[string]string
	listeners []suspension.Listener
	events    messaging.Queue[suspension.Event]
}

func requestKey(r *suspension.Request) string { return r.ID }

func requestFields(r *suspension.Request) criteria.Fields {
	return func(name string) (string, bool) {
		switch name {
		case "State":
			return string(r.State), true
		case "ExecutionID":
			return r.ExecutionID, true
		case "StepID":
			return r.StepID, true
		}
		return "", false
	}
}

func stepKey(executionID, stepID string) string { return executionID + "#" + stepID }

// New creates an in-memory suspension service
func New(options ...Option) suspension.Service {
	ret := &service{
		config: DefaultConfig(),
		open:   map[string]string{},
	}
	for _, option := range options {
		option(ret)
	}
	if ret.requests == nil {
		ret.requests = store.NewMemoryStore[string, suspension.Request](requestKey).
			WithMatcher(func(r *suspension.Request, parameters []*dao.Parameter) bool {
				return criteria.Match(requestFields(r), parameters)
			})
	}
	if ret.events == nil {
		queueConfig := qmem.DefaultConfig()
		queueConfig.QueueBuffer = ret.config.EventBuffer
		queueConfig.DropWhenFull = true
		ret.events = qmem.NewQueue[suspension.Event](queueConfig)
	}
	return ret
}

func (s *service) Register(ctx context.Context, executionID, stepID string, timeout time.Duration, options ...suspension.RequestOption) (string, error) {
	if executionID == "" || stepID == "" {
		return "", fmt.Errorf("execution id and step id are required")
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	key := stepKey(executionID, stepID)
	if id, ok := s.open[key]; ok {
		return "", types.NewError(types.KindDuplicateRequest, stepID, "step already has open request %s", id)
	}
	if timeout <= 0 {
		timeout = s.config.DefaultTimeout
	}
	now := clock.Now()
	request := &suspension.Request{
		ExecutionID: executionID,
		StepID:      stepID,
		Kind:        suspension.KindInput,
		RequestedAt: now,
		Timeout:     timeout,
		Deadline:    now.Add(timeout),
		State:       suspension.StateOpen,
	}
	for _, option := range options {
		option(request)
	}
	if request.ID == "" {
		request.ID = idgen.New()
	}
	if existing, _ := s.requests.Load(ctx, request.ID); existing != nil {
		return "", types.NewError(types.KindDuplicateRequest, stepID, "request %s already exists", request.ID)
	}
	if err := s.requests.Save(ctx, request.Clone()); err != nil {
		return "", fmt.Errorf("failed to save request %s: %w", request.ID, err)
	}
	s.open[key] = request.ID
	s.publish(ctx, suspension.TopicRequestCreated, request)
	return request.ID, nil
}

func (s *service) Resolve(ctx context.Context, requestID string, value interface{}) error {
	s.mux.Lock()
	defer s.mux.Unlock()
	request, err := s.load(ctx, requestID)
	if err != nil {
		return err
	}
	if request.State != suspension.StateOpen {
		return types.NewError(types.KindAlreadyResolved, request.StepID, "request %s is %s", requestID, request.State)
	}
	normalized, err := normalize(request, value)
	if err != nil {
		return err
	}
	now := clock.Now()
	request.State = suspension.StateResolved
	request.Value = normalized
	request.ResolvedAt = &now
	return s.complete(ctx, request, suspension.TopicRequestResolved)
}

func (s *service) CheckExpired(ctx context.Context, now time.Time) ([]string, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.expire(ctx, suspension.ReasonTimeout, func(r *suspension.Request) bool {
		return !r.Deadline.IsZero() && now.After(r.Deadline)
	})
}

func (s *service) CancelExecution(ctx context.Context, executionID string) ([]string, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	return s.expire(ctx, suspension.ReasonCancelled, func(r *suspension.Request) bool {
		return r.ExecutionID == executionID
	})
}

func (s *service) expire(ctx context.Context, reason string, predicate func(r *suspension.Request) bool) ([]string, error) {
	candidates, err := s.requests.List(ctx, dao.NewParameter("State", string(suspension.StateOpen)))
	if err != nil {
		return nil, err
	}
	sortRequests(candidates)
	var expired []string
	for _, candidate := range candidates {
		if candidate.State != suspension.StateOpen || !predicate(candidate) {
			continue
		}
		request := candidate.Clone()
		now := clock.Now()
		request.State = suspension.StateExpired
		request.Reason = reason
		request.ResolvedAt = &now
		if err := s.complete(ctx, request, suspension.TopicRequestExpired); err != nil {
			return expired, err
		}
		expired = append(expired, request.ID)
	}
	return expired, nil
}

// complete persists terminal request and notifies listeners, caller holds mux
func (s *service) complete(ctx context.Context, request *suspension.Request, topic string) error {
	if err := s.requests.Save(ctx, request.Clone()); err != nil {
		return fmt.Errorf("failed to save request %s: %w", request.ID, err)
	}
	delete(s.open, stepKey(request.ExecutionID, request.StepID))
	for _, listener := range s.listeners {
		listener(ctx, request.Clone())
	}
	s.publish(ctx, topic, request)
	return nil
}

func (s *service) publish(ctx context.Context, topic string, request *suspension.Request) {
	_ = s.events.Publish(ctx, &suspension.Event{
		Topic:   topic,
		Data:    request.Clone(),
		Headers: map[string]string{"executionId": request.ExecutionID, "stepId": request.StepID},
	})
}

func (s *service) ListPending(ctx context.Context, filters ...suspension.PendingFilter) ([]*suspension.Request, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	candidates, err := s.requests.List(ctx, dao.NewParameter("State", string(suspension.StateOpen)))
	if err != nil {
		return nil, err
	}
	var ret []*suspension.Request
	for _, candidate := range candidates {
		if candidate.State == suspension.StateOpen && suspension.Matches(candidate, filters...) {
			ret = append(ret, candidate.Clone())
		}
	}
	sortRequests(ret)
	return ret, nil
}

func (s *service) Load(ctx context.Context, requestID string) (*suspension.Request, error) {
	s.mux.Lock()
	defer s.mux.Unlock()
	request, err := s.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return request, nil
}

func (s *service) load(ctx context.Context, requestID string) (*suspension.Request, error) {
	request, err := s.requests.Load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, types.NewError(types.KindNotFound, "", "request %s not found", requestID)
	}
	return request.Clone(), nil
}

func (s *service) Subscribe(listener suspension.Listener) {
	if listener == nil {
		return
	}
	s.mux.Lock()
	defer s.mux.Unlock()
	s.listeners = append(s.listeners, listener)
}

func (s *service) Queue() messaging.Queue[suspension.Event] { return s.events }

func sortRequests(requests []*suspension.Request) {
	sort.Slice(requests, func(i, j int) bool {
		if !requests[i].RequestedAt.Equal(requests[j].RequestedAt) {
			return requests[i].RequestedAt.Before(requests[j].RequestedAt)
		}
		return requests[i].ID < requests[j].ID
	})
}

// normalize validates answer against request kind
func normalize(request *suspension.Request, value interface{}) (interface{}, error) {
	switch request.Kind {
	case suspension.KindChoice:
		text := strings.TrimSpace(fmt.Sprint(value))
		for _, choice := range request.Choices {
			if strings.EqualFold(choice, text) {
				return choice, nil
			}
		}
		return nil, types.NewError(types.KindValidationFailure, request.StepID, "%q is not one of %v", text, request.Choices)
	case suspension.KindApproval:
		switch actual := value.(type) {
		case bool:
			return actual, nil
		case string:
			switch strings.ToLower(strings.TrimSpace(actual)) {
			case "yes", "y", "approve", "approved", "ok":
				return true, nil
			case "no", "n", "reject", "rejected":
				return false, nil
			}
			if flag, err := strconv.ParseBool(strings.TrimSpace(actual)); err == nil {
				return flag, nil
			}
		}
		return nil, types.NewError(types.KindValidationFailure, request.StepID, "approval answer %v is not a yes/no value", value)
	}
	return value, nil
}

var _ suspension.Service = (*service)(nil)
