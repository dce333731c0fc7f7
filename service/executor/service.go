package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/viant/flowmind/internal/idgen"
	"github.com/viant/flowmind/internal/typed"
	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/model/graph"
	"github.com/viant/flowmind/model/types"
	"github.com/viant/flowmind/runtime/evaluator"
	"github.com/viant/flowmind/runtime/execution"
	"github.com/viant/flowmind/service/invoker"
	"github.com/viant/flowmind/service/notify"
	"github.com/viant/flowmind/service/parser"
	"github.com/viant/flowmind/service/storage"
	"github.com/viant/flowmind/service/suspension"
	"github.com/viant/flowmind/service/validation"
)

// Listener is invoked once a step run completes, regardless of its outcome.
type Listener func(step *graph.Step, result *execution.StepResult)

// Service executes steps, it implements scheduler.Runner
type Service struct {
	config     *Config
	invoker    invoker.Service
	parser     *parser.Parser
	suspension suspension.Service
	storage    storage.Service
	notifier   notify.Service
	sink       logger.Sink
	validator  validation.Service
	listener   Listener
}

// Run executes step and returns its outcome. Human-input steps return a waiting result.
func (s *Service) Run(ctx context.Context, anExecution *execution.Execution, step *graph.Step) *execution.StepResult {
	result := execution.NewStepResult(step.ID, step.Kind)
	variables := anExecution.Variables()
	var err error
	switch step.Kind {
	case graph.KindAgentCall:
		err = s.invoke(ctx, anExecution, step, variables, result)
	case graph.KindHumanInput:
		err = s.await(ctx, anExecution, step, variables, result)
	case graph.KindStorageOp:
		err = s.store(ctx, step, variables, result)
	case graph.KindNotify:
		err = s.notify(ctx, step, variables, result)
	case graph.KindLog:
		err = s.log(ctx, step, variables, result)
	case graph.KindValidate:
		err = s.validate(anExecution, step, variables, result)
	default:
		err = types.NewError(types.KindInvalidDefinition, step.ID, "unsupported step kind %q", step.Kind)
	}
	if err != nil {
		result.Fail(err)
		logger.Ctx(ctx).Debug("step failed", "execution", anExecution.ID, "step", step.ID, "error", err)
	} else if result.Status == execution.StepStatusPending {
		result.Status = execution.StepStatusSucceeded
	}
	if s.listener != nil {
		s.listener(step, result)
	}
	return result
}

func (s *Service) invoke(ctx context.Context, anExecution *execution.Execution, step *graph.Step, variables map[string]interface{}, result *execution.StepResult) error {
	if s.invoker == nil {
		return types.WrapError(types.KindInvokerFailure, step.ID, ErrNoInvoker)
	}
	timeout, err := parseDuration(step.Timeout)
	if err != nil {
		return types.NewError(types.KindInvalidDefinition, step.ID, "invalid timeout %q", step.Timeout)
	}
	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	response, err := s.invoker.Invoke(callCtx, &invoker.Request{
		ExecutionID: anExecution.ID,
		StepID:      step.ID,
		Config:      step.Config,
		Inputs:      variables,
	})
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
		return types.NewError(types.KindTimeout, step.ID, "invocation exceeded %v", timeout)
	}
	if err != nil {
		return types.WrapError(types.KindInvokerFailure, step.ID, err)
	}
	if response == nil {
		return types.NewError(types.KindInvokerFailure, step.ID, "empty response")
	}
	result.TokensUsed = response.TokensUsed
	if !response.Success {
		message := response.Error
		if message == "" {
			message = "invocation unsuccessful"
		}
		return types.NewError(types.KindInvokerFailure, step.ID, "%s", message)
	}
	result.SetOutput(response.Text)
	if extracted := s.parser.Extract(response.Text); len(extracted) > 0 {
		result.Extracted = extracted
	}
	return nil
}

func (s *Service) await(ctx context.Context, anExecution *execution.Execution, step *graph.Step, variables map[string]interface{}, result *execution.StepResult) error {
	if s.suspension == nil {
		return types.WrapError(types.KindInvokerFailure, step.ID, ErrNoSuspension)
	}
	config := &humanInputConfig{}
	if err := decode(step, variables, config); err != nil {
		return err
	}
	timeoutText := ""
	if config.Timeout != nil {
		timeoutText = fmt.Sprint(config.Timeout)
	}
	if timeoutText == "" {
		timeoutText = step.Timeout
	}
	timeout, err := parseDuration(timeoutText)
	if err != nil {
		return types.NewError(types.KindInvalidDefinition, step.ID, "invalid timeout %q", timeoutText)
	}
	if timeout == 0 {
		timeout = s.config.InputTimeout
	}
	channel := config.Channel
	if channel == "" {
		channel = s.config.PromptChannel
	}
	requestID := idgen.New()
	if !anExecution.Await(step.ID, requestID) {
		result.Status = execution.StepStatusCancelled
		result.ErrorKind = types.KindCancelled
		return nil
	}
	options := []suspension.RequestOption{
		suspension.WithRequestID(requestID),
		suspension.WithPrompt(config.Prompt),
		suspension.WithChannel(channel),
	}
	if config.Kind != "" {
		options = append(options, suspension.WithKind(suspension.Kind(config.Kind)))
	}
	if len(config.Choices) > 0 {
		options = append(options, suspension.WithChoices(config.Choices...))
	}
	if config.Fallback != nil {
		options = append(options, suspension.WithFallback(config.Fallback))
	}
	if _, err = s.suspension.Register(ctx, anExecution.ID, step.ID, timeout, options...); err != nil {
		return err
	}
	if anExecution.IsCancelled() {
		// cancelled between Await and Register
		_, _ = s.suspension.CancelExecution(context.WithoutCancel(ctx), anExecution.ID)
	}
	result.Status = execution.StepStatusWaiting
	result.RequestID = requestID
	if s.notifier != nil && channel != "" {
		message := fmt.Sprintf("%s\nreply: /answer %s <value>", config.Prompt, requestID)
		if err = s.notifier.Send(ctx, channel, notify.SeverityInfo, message); err != nil {
			logger.Ctx(ctx).Warn("failed to deliver prompt", "step", step.ID, "request", requestID, "error", err)
		}
	}
	return nil
}

func (s *Service) store(ctx context.Context, step *graph.Step, variables map[string]interface{}, result *execution.StepResult) error {
	if s.storage == nil {
		return types.WrapError(types.KindInvokerFailure, step.ID, ErrNoStorage)
	}
	config := &storageConfig{}
	if err := decode(step, variables, config); err != nil {
		return err
	}
	op := strings.ToLower(config.Operation)
	var value interface{}
	var err error
	switch op {
	case OpPut:
		var options []storage.Option
		ttl, perr := parseDuration(config.TTL)
		if perr != nil {
			return types.NewError(types.KindInvalidDefinition, step.ID, "invalid ttl %q", config.TTL)
		}
		if ttl > 0 {
			options = append(options, storage.WithTTL(ttl))
		}
		err = s.storage.Put(ctx, config.Namespace, config.Key, config.Value, options...)
		value = config.Value
	case OpUpdate:
		err = s.storage.Update(ctx, config.Namespace, config.Key, config.Value)
		value = config.Value
	case OpGet:
		value, err = s.storage.Get(ctx, config.Namespace, config.Key)
	case OpDelete:
		err = s.storage.Delete(ctx, config.Namespace, config.Key)
	case OpList:
		var keys []string
		keys, err = s.storage.List(ctx, config.Namespace)
		items := make([]interface{}, len(keys))
		for i, key := range keys {
			items[i] = key
		}
		value = items
	default:
		return types.NewError(types.KindInvalidDefinition, step.ID, "unsupported storage operation %q", config.Operation)
	}
	if err != nil {
		if types.KindOf(err) != "" {
			return err
		}
		return types.WrapError(types.KindInvokerFailure, step.ID, err)
	}
	if value == nil {
		result.SetOutput("")
		return nil
	}
	text, err := stringify(value)
	if err != nil {
		return types.WrapError(types.KindInvokerFailure, step.ID, err)
	}
	result.SetOutput(text)
	key := "value"
	if op == OpList {
		key = "keys"
	}
	result.Extracted = map[string]interface{}{key: value}
	return nil
}

func (s *Service) notify(ctx context.Context, step *graph.Step, variables map[string]interface{}, result *execution.StepResult) error {
	config := &notifyConfig{}
	if err := decode(step, variables, config); err != nil {
		return err
	}
	result.SetOutput(config.Message)
	var err error
	if s.notifier == nil {
		err = ErrNoNotifier
	} else {
		err = s.notifier.Send(ctx, config.Channel, notify.ParseSeverity(config.Severity), config.Message)
	}
	if err == nil {
		return nil
	}
	if config.Required {
		return types.WrapError(types.KindInvokerFailure, step.ID, err)
	}
	result.Error = err.Error()
	logger.Ctx(ctx).Warn("notification not delivered", "step", step.ID, "channel", config.Channel, "error", err)
	return nil
}

func (s *Service) log(ctx context.Context, step *graph.Step, variables map[string]interface{}, result *execution.StepResult) error {
	config := &logConfig{}
	if err := decode(step, variables, config); err != nil {
		return err
	}
	result.SetOutput(config.Message)
	sink := s.sink
	if sink == nil {
		sink = logger.NewSink(nil)
	}
	level := logger.LevelInfo
	if config.Level != "" {
		level = logger.LevelFromString(config.Level)
	}
	if err := sink.Write(ctx, level, config.Tags, config.Message); err != nil {
		result.Error = err.Error()
	}
	return nil
}

func (s *Service) validate(anExecution *execution.Execution, step *graph.Step, variables map[string]interface{}, result *execution.StepResult) error {
	if s.validator == nil {
		return types.WrapError(types.KindInvokerFailure, step.ID, ErrNoValidator)
	}
	config := &validateConfig{}
	if err := decode(step, variables, config); err != nil {
		return err
	}
	value := config.Value
	if len(value) == 0 && config.Source != "" {
		source := anExecution.Result(config.Source)
		if source == nil {
			return types.NewError(types.KindNotFound, step.ID, "source step %v not found", config.Source)
		}
		value = source.Extracted
	}
	var violations []*validation.Violation
	data := value
	if checker, ok := s.validator.(interface {
		Check(schema validation.Schema, value map[string]interface{}) *validation.Result
	}); ok {
		checked := checker.Check(config.Schema, value)
		violations, data = checked.Violations, checked.Data
	} else {
		violations = s.validator.Validate(config.Schema, value)
	}
	if len(violations) > 0 {
		messages := make([]string, len(violations))
		items := make([]interface{}, len(violations))
		for i, v := range violations {
			messages[i] = v.String()
			items[i] = map[string]interface{}{"field": v.Field, "rule": v.Rule, "message": v.Message}
		}
		result.Extracted = map[string]interface{}{"violations": items}
		return types.NewError(types.KindValidationFailure, step.ID, "%s", strings.Join(messages, "; "))
	}
	if len(data) > 0 {
		result.Extracted = data
	}
	text, err := stringify(data)
	if err == nil {
		result.SetOutput(text)
	}
	return nil
}

// decode expands step config templates and decodes it into dest
func decode(step *graph.Step, variables map[string]interface{}, dest interface{}) error {
	expanded, _ := evaluator.ExpandValue(step.Config, variables).(map[string]interface{})
	if err := typed.Decode(expanded, dest); err != nil {
		return types.WrapError(types.KindInvalidDefinition, step.ID, fmt.Errorf("invalid %v config: %w", step.Kind, err))
	}
	return nil
}

// parseDuration accepts duration strings or a bare number of seconds
func parseDuration(text string) (time.Duration, error) {
	return graph.ParseDuration(text)
}

func stringify(value interface{}) (string, error) {
	if text, ok := value.(string); ok {
		return text, nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// New creates an executor
func New(options ...Option) *Service {
	ret := &Service{config: DefaultConfig(), parser: parser.New()}
	for _, option := range options {
		option(ret)
	}
	return ret
}
