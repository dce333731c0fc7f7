// Package openai implements invoker.Service with the OpenAI chat completions API.
package openai

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/viant/flowmind/internal/typed"
	"github.com/viant/flowmind/runtime/evaluator"
	"github.com/viant/flowmind/service/invoker"
	"github.com/viant/scy"
)

const (
	DefaultModel     = "gpt-4o-mini"
	DefaultMaxTokens = 1024
	apiKeyEnv        = "OPENAI_API_KEY"
)

// Config represents per step configuration of an agent-call
type Config struct {
	Model       string   `json:"model,omitempty"`
	System      string   `json:"system,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	MaxTokens   int      `json:"maxTokens,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// Service invokes chat completions
type Service struct {
	client        openai.Client
	model         string
	maxTokens     int
	apiKey        string
	secretURL     string
	secretKey     string
	clientOptions []option.RequestOption
	complete      completer
}

type completer func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error)

// Option customises service
type Option func(s *Service)

// WithAPIKey sets API key
func WithAPIKey(key string) Option {
	return func(s *Service) { s.apiKey = key }
}

// WithSecret resolves API key from scy secret resource
func WithSecret(URL, key string) Option {
	return func(s *Service) {
		s.secretURL = URL
		s.secretKey = key
	}
}

// WithBaseURL sets API base URL
func WithBaseURL(URL string) Option {
	return func(s *Service) { s.clientOptions = append(s.clientOptions, option.WithBaseURL(URL)) }
}

// WithModel sets default model
func WithModel(model string) Option {
	return func(s *Service) { s.model = model }
}

// WithMaxTokens sets default completion token limit
func WithMaxTokens(maxTokens int) Option {
	return func(s *Service) { s.maxTokens = maxTokens }
}

// WithClientOptions appends openai request options
func WithClientOptions(opts ...option.RequestOption) Option {
	return func(s *Service) { s.clientOptions = append(s.clientOptions, opts...) }
}

// New creates an openai backed invoker
func New(ctx context.Context, options ...Option) (*Service, error) {
	ret := &Service{model: DefaultModel, maxTokens: DefaultMaxTokens}
	for _, opt := range options {
		opt(ret)
	}
	if ret.apiKey == "" && ret.secretURL != "" {
		resource := scy.NewResource(nil, ret.secretURL, ret.secretKey)
		secret, err := scy.New().Load(ctx, resource)
		if err != nil {
			return nil, fmt.Errorf("failed to load openai secret from %s: %w", ret.secretURL, err)
		}
		ret.apiKey = strings.TrimSpace(secret.String())
	}
	if ret.apiKey == "" {
		ret.apiKey = os.Getenv(apiKeyEnv)
	}
	if ret.apiKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}
	clientOptions := append([]option.RequestOption{option.WithAPIKey(ret.apiKey)}, ret.clientOptions...)
	ret.client = openai.NewClient(clientOptions...)
	ret.complete = func(ctx context.Context, params openai.ChatCompletionNewParams) (*openai.ChatCompletion, error) {
		return ret.client.Chat.Completions.New(ctx, params)
	}
	return ret, nil
}

// Invoke sends the step prompt and returns the first choice
func (s *Service) Invoke(ctx context.Context, request *invoker.Request) (*invoker.Response, error) {
	params, err := s.params(request)
	if err != nil {
		return nil, err
	}
	completion, err := s.complete(ctx, params)
	if err != nil {
		return &invoker.Response{Success: false, Error: err.Error()}, nil
	}
	if len(completion.Choices) == 0 {
		return &invoker.Response{Success: false, Error: "no completion choices returned", TokensUsed: int(completion.Usage.TotalTokens)}, nil
	}
	return &invoker.Response{
		Text:       completion.Choices[0].Message.Content,
		Success:    true,
		TokensUsed: int(completion.Usage.TotalTokens),
	}, nil
}

func (s *Service) params(request *invoker.Request) (openai.ChatCompletionNewParams, error) {
	config := &Config{}
	if err := typed.Decode(request.Config, config); err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	prompt := evaluator.Expand(config.Prompt, request.Inputs)
	if strings.TrimSpace(prompt) == "" {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("step %s: prompt is required", request.StepID)
	}
	model := config.Model
	if model == "" {
		model = s.model
	}
	maxTokens := config.MaxTokens
	if maxTokens == 0 {
		maxTokens = s.maxTokens
	}
	var messages []openai.ChatCompletionMessageParamUnion
	if config.System != "" {
		messages = append(messages, openai.SystemMessage(evaluator.Expand(config.System, request.Inputs)))
	}
	messages = append(messages, openai.UserMessage(prompt))
	params := openai.ChatCompletionNewParams{
		Model:     openai.ChatModel(model),
		Messages:  messages,
		MaxTokens: openai.Int(int64(maxTokens)),
	}
	if config.Temperature != nil {
		params.Temperature = openai.Float(*config.Temperature)
	}
	return params, nil
}

var _ invoker.Service = (*Service)(nil)
