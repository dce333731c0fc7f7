package graph

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDuration parses a duration string such as "1m30s"; a bare number is taken as seconds.
// Empty text yields zero.
func ParseDuration(text string) (time.Duration, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return 0, nil
	}
	if seconds, err := strconv.ParseFloat(text, 64); err == nil {
		if seconds < 0 {
			return 0, fmt.Errorf("negative duration %q", text)
		}
		return time.Duration(seconds * float64(time.Second)), nil
	}
	ret, err := time.ParseDuration(text)
	if err != nil {
		return 0, err
	}
	if ret < 0 {
		return 0, fmt.Errorf("negative duration %q", text)
	}
	return ret, nil
}
