// Package ttl converts time-to-live values between their on-disk duration
// strings and whole seconds.
//
// Three spellings are accepted by Parse:
//
//	"90"               plain seconds
//	"1m30s", "2h"      Go duration syntax
//	"0:01:30"          clock syntax, optionally prefixed by "N day(s), "
//
// Format always produces Go duration syntax.
package ttl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalid = errors.New("invalid ttl")

// Parse returns the duration described by s, truncated to whole seconds.
func Parse(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalid)
	}

	var d time.Duration
	var err error

	switch {
	case isDigits(s):
		var secs int64
		secs, err = strconv.ParseInt(s, 10, 64)
		d = time.Duration(secs) * time.Second
	case strings.Contains(s, ":"):
		d, err = parseClock(s)
	default:
		d, err = time.ParseDuration(s)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %q: %v", ErrInvalid, s, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalid, s)
	}

	return d.Truncate(time.Second), nil
}

// Format renders d in Go duration syntax at second precision.
func Format(d time.Duration) string {
	return d.Truncate(time.Second).String()
}

// Seconds is the whole-second count of d.
func Seconds(d time.Duration) int64 {
	return int64(d / time.Second)
}

// "[N day[s], ]H:MM:SS[.ffffff]"
func parseClock(s string) (time.Duration, error) {
	var total time.Duration

	if i := strings.Index(s, ","); i >= 0 {
		dayPart := strings.Fields(s[:i])
		if len(dayPart) != 2 || !strings.HasPrefix(dayPart[1], "day") {
			return 0, errors.New("malformed day component")
		}
		days, err := strconv.Atoi(dayPart[0])
		if err != nil {
			return 0, err
		}
		total += time.Duration(days) * 24 * time.Hour
		s = strings.TrimSpace(s[i+1:])
	}

	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, errors.New("expected H:MM:SS")
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, err
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, err
	}
	seconds, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return 0, err
	}

	total += time.Duration(hours)*time.Hour + time.Duration(minutes)*time.Minute
	total += time.Duration(seconds * float64(time.Second))
	return total, nil
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
