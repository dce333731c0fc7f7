// Package telegram delivers notifications through a Telegram bot and turns
// replies into suspension resolutions.
package telegram

import (
	"context"
	"fmt"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/viant/flowmind/logger"
	"github.com/viant/flowmind/service/notify"
	"github.com/viant/flowmind/service/suspension"
)

type sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

// Service implements notify.Service and acts as an external resolution channel
type Service struct {
	bot          *bot.Bot
	sender       sender
	chatID       int64
	allowedUsers map[int64]bool
	suspension   suspension.Service
}

// Option customises service
type Option func(s *Service)

// WithSuspension enables /answer handling
func WithSuspension(svc suspension.Service) Option {
	return func(s *Service) { s.suspension = svc }
}

// WithAllowedUsers restricts who may resolve requests
func WithAllowedUsers(userIDs ...int64) Option {
	return func(s *Service) {
		for _, id := range userIDs {
			s.allowedUsers[id] = true
		}
	}
}

// New creates a bot backed service sending to chatID
func New(token string, chatID int64, options ...Option) (*Service, error) {
	ret := newService(nil, chatID, options...)
	tgBot, err := bot.New(token, bot.WithDefaultHandler(ret.handleUpdate))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}
	ret.bot = tgBot
	ret.sender = tgBot
	return ret, nil
}

func newService(sender sender, chatID int64, options ...Option) *Service {
	ret := &Service{sender: sender, chatID: chatID, allowedUsers: map[int64]bool{}}
	for _, option := range options {
		option(ret)
	}
	return ret
}

// Start begins long polling, it blocks until ctx is done
func (s *Service) Start(ctx context.Context) {
	if s.bot == nil {
		<-ctx.Done()
		return
	}
	s.bot.Start(ctx)
}

// Send posts message to the configured chat
func (s *Service) Send(ctx context.Context, channel string, severity notify.Severity, message string) error {
	_, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID: s.chatID,
		Text:   format(channel, severity, message),
	})
	if err != nil {
		return fmt.Errorf("failed to send telegram message: %w", err)
	}
	return nil
}

func format(channel string, severity notify.Severity, message string) string {
	prefix := ""
	switch severity {
	case notify.SeverityWarning:
		prefix = "⚠️ "
	case notify.SeverityError, notify.SeverityCritical:
		prefix = "❌ "
	}
	if channel == "" {
		return prefix + message
	}
	return fmt.Sprintf("%s[%s] %s", prefix, channel, message)
}

func (s *Service) handleUpdate(ctx context.Context, _ *bot.Bot, update *models.Update) {
	if update == nil || update.Message == nil {
		return
	}
	message := update.Message
	userID := int64(0)
	if message.From != nil {
		userID = message.From.ID
	}
	s.handleText(ctx, message.Chat.ID, userID, message.Text)
}

func (s *Service) handleText(ctx context.Context, chatID, userID int64, text string) {
	if s.suspension == nil || !strings.HasPrefix(strings.TrimSpace(text), "/") {
		return
	}
	if len(s.allowedUsers) > 0 && !s.allowedUsers[userID] {
		logger.Ctx(ctx).Warn("unauthorized telegram answer", "user", userID)
		return
	}
	answer, ok := ParseAnswer(text)
	if !ok {
		s.reply(ctx, chatID, "usage: /answer <requestId> <value>, /approve <requestId>, /reject <requestId>")
		return
	}
	if err := s.suspension.Resolve(ctx, answer.RequestID, answer.Value); err != nil {
		s.reply(ctx, chatID, fmt.Sprintf("❌ %v", err))
		return
	}
	s.reply(ctx, chatID, fmt.Sprintf("✅ %s resolved", answer.RequestID))
}

func (s *Service) reply(ctx context.Context, chatID int64, text string) {
	if _, err := s.sender.SendMessage(ctx, &bot.SendMessageParams{ChatID: chatID, Text: text}); err != nil {
		logger.Ctx(ctx).Warn("failed to reply on telegram", "error", err)
	}
}

var _ notify.Service = (*Service)(nil)
