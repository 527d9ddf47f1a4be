package ttl

import (
	"errors"
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want time.Duration
	}{
		{"plain seconds", "10", 10 * time.Second},
		{"go duration", "1m30s", 90 * time.Second},
		{"hours", "2h", 2 * time.Hour},
		{"clock", "0:00:10", 10 * time.Second},
		{"clock with fraction", "0:01:05.5", 65 * time.Second},
		{"clock with days", "2 days, 1:00:00", 49 * time.Hour},
		{"clock with one day", "1 day, 0:00:01", 24*time.Hour + time.Second},
		{"sub-second truncates", "1500ms", time.Second},
		{"surrounding space", "  5s ", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.in)
			if err != nil {
				t.Fatalf("Parse(%q) failed: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("Parse(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestParseRejects(t *testing.T) {
	for _, in := range []string{"", "abc", "-5s", "1:2", "x days, 0:00:01", "1 week, 0:00:00"} {
		if _, err := Parse(in); !errors.Is(err, ErrInvalid) {
			t.Errorf("Parse(%q): expected ErrInvalid, got %v", in, err)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, d := range []time.Duration{time.Second, 90 * time.Second, 26 * time.Hour} {
		got, err := Parse(Format(d))
		if err != nil {
			t.Fatalf("Parse(Format(%v)) failed: %v", d, err)
		}
		if got != d {
			t.Errorf("round trip of %v gave %v", d, got)
		}
	}

	if Format(1500*time.Millisecond) != "1s" {
		t.Errorf("Format should truncate to seconds, got %q", Format(1500*time.Millisecond))
	}
}
