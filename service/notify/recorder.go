package notify

import (
	"context"
	"sync"
	"time"

	"github.com/viant/flowmind/internal/clock"
)

// Message represents a delivered notification
type Message struct {
	Channel  string    `json:"channel"`
	Severity Severity  `json:"severity"`
	Text     string    `json:"text"`
	SentAt   time.Time `json:"sentAt"`
}

// Recorder keeps delivered notifications in memory
type Recorder struct {
	mux      sync.RWMutex
	messages []*Message
}

// NewRecorder creates a recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Send(_ context.Context, channel string, severity Severity, message string) error {
	r.mux.Lock()
	defer r.mux.Unlock()
	r.messages = append(r.messages, &Message{Channel: channel, Severity: severity, Text: message, SentAt: clock.Now()})
	return nil
}

// Messages returns delivered messages, channel filters when non empty
func (r *Recorder) Messages(channel string) []*Message {
	r.mux.RLock()
	defer r.mux.RUnlock()
	var ret []*Message
	for _, message := range r.messages {
		if channel == "" || message.Channel == channel {
			ret = append(ret, message)
		}
	}
	return ret
}
