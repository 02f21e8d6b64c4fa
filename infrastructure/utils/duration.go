package utils

import (
	"fmt"
	"time"

	"github.com/sosodev/duration"
)

// ParseISODuration converts an ISO-8601 duration such as "PT1M30S".
// An empty string is zero, e.g. for upcoming broadcasts.
func ParseISODuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := duration.Parse(s)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", s, err)
	}
	return d.ToTimeDuration(), nil
}
