package orchestrator

import (
	"math"
	"strings"
	"time"

	"github.com/viant/flowmind/model/graph"
)

// shouldRetry returns (retry?, delay) for a step that failed after attempts tries
func (s *Service) shouldRetry(cfg *graph.Retry, attempts int) (bool, time.Duration) {
	defaults := s.config.Retry
	if cfg == nil {
		if attempts >= defaults.MaxAttempts {
			return false, 0
		}
		return true, defaults.Delay
	}
	if strings.ToLower(cfg.Type) == "none" {
		return false, 0
	}
	max := cfg.MaxAttempts
	if max == 0 {
		max = defaults.MaxAttempts
	}
	if attempts >= max {
		return false, 0
	}
	baseDelay := defaults.Delay
	if cfg.Delay != "" {
		if d, err := graph.ParseDuration(cfg.Delay); err == nil {
			baseDelay = d
		}
	}
	switch strings.ToLower(cfg.Type) {
	case "exponential":
		mult := cfg.Multiplier
		if mult <= 1 {
			mult = defaults.Multiplier
		}
		if mult <= 1 {
			mult = 2
		}
		delay := float64(baseDelay) * math.Pow(mult, float64(attempts-1))
		maxDelay := defaults.MaxDelay
		if cfg.MaxDelay != "" {
			if md, err := graph.ParseDuration(cfg.MaxDelay); err == nil {
				maxDelay = md
			}
		}
		if maxDelay > 0 && time.Duration(delay) > maxDelay {
			delay = float64(maxDelay)
		}
		return true, time.Duration(delay)
	default: // fixed
		return true, baseDelay
	}
}
