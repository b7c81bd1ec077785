package utils

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// AbsoluteLayout is the stored post timestamp format: MM/DD/YY, HH:MM.
const AbsoluteLayout = "01/02/06, 15:04"

var ErrUnrecognizedRelativeTime = errors.New("unrecognized relative time")

// ParseRelativeTime resolves texts such as "5 min ago", "1 hr ago" or
// "2 days ago" against now. Matching is by case-sensitive substring, checked
// in the order minutes, hours, days; the amount is the leading token.
func ParseRelativeTime(relative string, now time.Time) (time.Time, error) {
	var unit time.Duration
	switch {
	case strings.Contains(relative, "min ago"):
		unit = time.Minute
	case strings.Contains(relative, "hr ago"):
		unit = time.Hour
	case strings.Contains(relative, "day ago"), strings.Contains(relative, "days ago"):
		unit = 24 * time.Hour
	default:
		return now, fmt.Errorf("%w: %q", ErrUnrecognizedRelativeTime, relative)
	}

	fields := strings.Fields(relative)
	if len(fields) == 0 {
		return now, fmt.Errorf("%w: %q", ErrUnrecognizedRelativeTime, relative)
	}
	n, err := strconv.ParseInt(fields[0], 10, 64)
	if err != nil {
		return now, fmt.Errorf("parse amount in %q: %w", relative, err)
	}
	if limit := int64(math.MaxInt64 / unit); n > limit || n < -limit {
		return now, fmt.Errorf("%w: amount out of range in %q", ErrUnrecognizedRelativeTime, relative)
	}
	return now.Add(-time.Duration(n) * unit), nil
}

// NormalizeRelativeTime formats the absolute time for relative. It never
// fails: anything it cannot parse falls back to now, with a warning on logger
// when one is given.
func NormalizeRelativeTime(relative string, now time.Time, logger *zap.Logger) string {
	t, err := ParseRelativeTime(relative, now)
	if err != nil {
		if logger != nil {
			logger.Warn("using current time for post date", zap.String("date", relative), zap.Error(err))
		}
		return now.Format(AbsoluteLayout)
	}
	return t.Format(AbsoluteLayout)
}
