package bookings

import (
	"errors"
	"time"
)

var (
	// ErrNotQuarterHour rejects endpoints not on a 15-minute boundary.
	ErrNotQuarterHour = errors.New("booking times must fall on 15-minute boundaries")
	// ErrInvalidRange rejects empty or inverted intervals.
	ErrInvalidRange = errors.New("end_time must be after start_time")
)

// QuarterHour reports whether t lies exactly on a 15-minute boundary.
func QuarterHour(t time.Time) bool {
	return t.Minute()%15 == 0 && t.Second() == 0 && t.Nanosecond() == 0
}

// ValidateInterval checks a proposed booking interval. The boundary check
// runs before the ordering check: it is cheaper and its failure message is
// more actionable.
func ValidateInterval(start, end time.Time) error {
	if !QuarterHour(start) || !QuarterHour(end) {
		return ErrNotQuarterHour
	}
	if !end.After(start) {
		return ErrInvalidRange
	}
	return nil
}

// Overlaps reports whether [s1,e1) and [s2,e2) intersect under half-open
// semantics: a booking ending exactly when another starts is not a conflict.
func Overlaps(s1, e1, s2, e2 time.Time) bool {
	return s1.Before(e2) && s2.Before(e1)
}
