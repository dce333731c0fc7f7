package telegram

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/flowmind/service/notify"
	"github.com/viant/flowmind/service/suspension"
	"github.com/viant/flowmind/service/suspension/memory"
)

type fakeSender struct {
	mux  sync.Mutex
	sent []*bot.SendMessageParams
}

func (f *fakeSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	f.mux.Lock()
	defer f.mux.Unlock()
	f.sent = append(f.sent, params)
	return &models.Message{Text: params.Text}, nil
}

func (f *fakeSender) last() string {
	f.mux.Lock()
	defer f.mux.Unlock()
	if len(f.sent) == 0 {
		return ""
	}
	return f.sent[len(f.sent)-1].Text
}

func TestParseAnswer(t *testing.T) {
	testCases := []struct {
		input  string
		expect *Answer
	}{
		{input: "/answer req-1 Max Mustermann", expect: &Answer{RequestID: "req-1", Value: "Max Mustermann"}},
		{input: "  /answer@flow_bot   abc   42 ", expect: &Answer{RequestID: "abc", Value: "42"}},
		{input: "/approve r2", expect: &Answer{RequestID: "r2", Value: "yes"}},
		{input: "/REJECT r3", expect: &Answer{RequestID: "r3", Value: "no"}},
		{input: "/answer r4"},
		{input: "/answer"},
		{input: "/start"},
		{input: "answer r1 x"},
		{input: ""},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			actual, ok := ParseAnswer(tc.input)
			if tc.expect == nil {
				assert.False(t, ok)
				return
			}
			require.True(t, ok)
			assert.Equal(t, tc.expect, actual)
		})
	}
}

func TestService_Send(t *testing.T) {
	sender := &fakeSender{}
	svc := newService(sender, 7)
	require.NoError(t, svc.Send(context.Background(), "ops", notify.SeverityError, "disk full"))
	require.Len(t, sender.sent, 1)
	assert.EqualValues(t, 7, sender.sent[0].ChatID)
	assert.Equal(t, "❌ [ops] disk full", sender.sent[0].Text)
}

func TestService_Resolve(t *testing.T) {
	ctx := context.Background()
	requests := memory.New()
	sender := &fakeSender{}
	svc := newService(sender, 7, WithSuspension(requests), WithAllowedUsers(1))

	id, err := requests.Register(ctx, "e1", "name", time.Minute)
	require.NoError(t, err)

	svc.handleText(ctx, 7, 2, "/answer "+id+" Eve")
	request, _ := requests.Load(ctx, id)
	assert.Equal(t, suspension.StateOpen, request.State, "user not allowed")

	svc.handleText(ctx, 7, 1, "/answer "+id+" Max")
	request, _ = requests.Load(ctx, id)
	assert.Equal(t, suspension.StateResolved, request.State)
	assert.Equal(t, "Max", request.Value)
	assert.Contains(t, sender.last(), "resolved")

	svc.handleText(ctx, 7, 1, "/answer "+id+" again")
	assert.Contains(t, sender.last(), "AlreadyResolved")

	svc.handleText(ctx, 7, 1, "/answer")
	assert.Contains(t, sender.last(), "usage")

	svc.handleUpdate(ctx, nil, &models.Update{Message: &models.Message{Chat: models.Chat{ID: 7}, From: &models.User{ID: 1}, Text: "/answer missing x"}})
	assert.Contains(t, sender.last(), "NotFound")
}
