package logger

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/viant/flowmind/internal/clock"
)

// Sink receives log step entries, writes are best effort
type Sink interface {
	Write(ctx context.Context, level LogLevel, tags []string, message string) error
}

// Entry represents a recorded log step entry
type Entry struct {
	Level     LogLevel  `json:"level"`
	Tags      []string  `json:"tags,omitempty"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// LoggerSink forwards entries to a Logger
type LoggerSink struct {
	logger Logger
}

// NewSink creates a sink writing to logger, nil uses the context logger
func NewSink(logger Logger) *LoggerSink {
	return &LoggerSink{logger: logger}
}

func (s *LoggerSink) Write(ctx context.Context, level LogLevel, tags []string, message string) error {
	target := s.logger
	if target == nil {
		target = Ctx(ctx)
	}
	args := []any{}
	if len(tags) > 0 {
		args = append(args, "tags", tags)
	}
	switch {
	case level >= LevelError:
		target.Error(message, args...)
	case level >= LevelWarn:
		target.Warn(message, args...)
	case level >= LevelInfo:
		target.Info(message, args...)
	default:
		target.Debug(message, args...)
	}
	return nil
}

// MemorySink keeps entries at or above MinLevel in memory, it can be queried by tags
type MemorySink struct {
	MinLevel LogLevel
	mux      sync.RWMutex
	entries  []*Entry
}

// NewMemorySink creates an in-memory sink
func NewMemorySink(minLevel LogLevel) *MemorySink {
	return &MemorySink{MinLevel: minLevel}
}

func (s *MemorySink) Write(_ context.Context, level LogLevel, tags []string, message string) error {
	if level < s.MinLevel {
		return nil
	}
	entry := &Entry{Level: level, Tags: append([]string(nil), tags...), Message: message, Timestamp: clock.Now()}
	s.mux.Lock()
	s.entries = append(s.entries, entry)
	s.mux.Unlock()
	return nil
}

// Entries returns entries carrying every tag, in write order
func (s *MemorySink) Entries(tags ...string) []*Entry {
	s.mux.RLock()
	defer s.mux.RUnlock()
	var ret []*Entry
	for _, entry := range s.entries {
		if hasTags(entry.Tags, tags) {
			ret = append(ret, entry)
		}
	}
	return ret
}

// Tags returns distinct tags seen by the sink
func (s *MemorySink) Tags() []string {
	s.mux.RLock()
	defer s.mux.RUnlock()
	seen := map[string]bool{}
	var ret []string
	for _, entry := range s.entries {
		for _, tag := range entry.Tags {
			if !seen[tag] {
				seen[tag] = true
				ret = append(ret, tag)
			}
		}
	}
	sort.Strings(ret)
	return ret
}

func hasTags(actual, expected []string) bool {
	for _, tag := range expected {
		found := false
		for _, candidate := range actual {
			if candidate == tag {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

// MultiSink writes to every sink, the first error is returned after all writes
type MultiSink []Sink

func (m MultiSink) Write(ctx context.Context, level LogLevel, tags []string, message string) error {
	var first error
	for _, sink := range m {
		if err := sink.Write(ctx, level, tags, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
