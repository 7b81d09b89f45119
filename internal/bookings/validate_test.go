package bookings

import (
	"errors"
	"testing"
	"time"
)

func at(hour, min int) time.Time {
	return time.Date(2026, 3, 10, hour, min, 0, 0, time.UTC)
}

func TestQuarterHour(t *testing.T) {
	cases := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"on the hour", at(10, 0), true},
		{"quarter past", at(10, 15), true},
		{"half past", at(10, 30), true},
		{"quarter to", at(10, 45), true},
		{"seven past", at(10, 7), false},
		{"with seconds", time.Date(2026, 3, 10, 10, 15, 30, 0, time.UTC), false},
		{"with nanos", time.Date(2026, 3, 10, 10, 15, 0, 1, time.UTC), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := QuarterHour(tc.t); got != tc.want {
				t.Errorf("QuarterHour(%v) = %v, want %v", tc.t, got, tc.want)
			}
		})
	}
}

func TestValidateInterval(t *testing.T) {
	cases := []struct {
		name    string
		start   time.Time
		end     time.Time
		wantErr error
	}{
		{"valid hour", at(10, 0), at(11, 0), nil},
		{"valid single slot", at(10, 0), at(10, 15), nil},
		{"off-boundary start", at(10, 7), at(11, 0), ErrNotQuarterHour},
		{"off-boundary end", at(10, 0), at(10, 50), ErrNotQuarterHour},
		{"zero-length", at(10, 0), at(10, 0), ErrInvalidRange},
		{"inverted", at(11, 0), at(10, 0), ErrInvalidRange},
		// Boundary check wins when both fail.
		{"inverted and off-boundary", at(10, 7), at(10, 2), ErrNotQuarterHour},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateInterval(tc.start, tc.end)
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("ValidateInterval(%v, %v) = %v, want %v", tc.start, tc.end, err, tc.wantErr)
			}
		})
	}
}

func TestOverlaps(t *testing.T) {
	cases := []struct {
		name           string
		s1, e1, s2, e2 time.Time
		want           bool
	}{
		{"contained", at(10, 0), at(11, 0), at(10, 30), at(10, 45), true},
		{"partial left", at(9, 50), at(10, 10), at(10, 0), at(11, 0), true},
		{"identical", at(10, 0), at(11, 0), at(10, 0), at(11, 0), true},
		{"back to back", at(10, 0), at(11, 0), at(11, 0), at(11, 15), false},
		{"back to back reversed", at(11, 0), at(11, 15), at(10, 0), at(11, 0), false},
		{"disjoint", at(8, 0), at(9, 0), at(10, 0), at(11, 0), false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Overlaps(tc.s1, tc.e1, tc.s2, tc.e2); got != tc.want {
				t.Errorf("Overlaps = %v, want %v", got, tc.want)
			}
			// Overlap is symmetric.
			if got := Overlaps(tc.s2, tc.e2, tc.s1, tc.e1); got != tc.want {
				t.Errorf("Overlaps (swapped) = %v, want %v", got, tc.want)
			}
		})
	}
}
