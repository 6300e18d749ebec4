// Package scheduling holds the pure interval rules shared by reservations and
// occupancies: half-open overlap, exclusion of the row being edited, and the
// ordering/future checks applied before any write.
package scheduling

import (
	"errors"
	"time"
)

// Kind tells reservation intervals apart from occupancy intervals.
type Kind string

const (
	KindReservation Kind = "reservation"
	KindOccupancy   Kind = "occupancy"
)

// Interval is the half-open window [Start, End) held by one row on one classroom.
type Interval struct {
	ID          uint64
	Kind        Kind
	ClassroomID uint64
	UserID      uint64
	Start       time.Time
	End         time.Time
}

// Exclusion identifies the row being re-validated so it does not conflict
// with itself. The zero value excludes nothing.
type Exclusion struct {
	Kind Kind
	ID   uint64
}

func (x Exclusion) matches(iv Interval) bool {
	return x.ID != 0 && x.ID == iv.ID && x.Kind == iv.Kind
}

// Overlaps reports whether a and b share any instant. Touching endpoints do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start.Before(b.End) && b.Start.Before(a.End)
}

// FirstConflict returns the earliest existing interval on the candidate's
// classroom that overlaps it, skipping the excluded row.
func FirstConflict(existing []Interval, candidate Interval, exclude Exclusion) (Interval, bool) {
	var (
		found Interval
		ok    bool
	)
	for _, iv := range existing {
		if iv.ClassroomID != candidate.ClassroomID || exclude.matches(iv) {
			continue
		}
		if !Overlaps(iv, candidate) {
			continue
		}
		if !ok || iv.Start.Before(found.Start) {
			found, ok = iv, true
		}
	}
	return found, ok
}

// HasConflict is FirstConflict without the witness.
func HasConflict(existing []Interval, candidate Interval, exclude Exclusion) bool {
	_, ok := FirstConflict(existing, candidate, exclude)
	return ok
}

var (
	ErrMissingWindow  = errors.New("start time and end time are required")
	ErrInvertedWindow = errors.New("start time must be before end time")
	ErrPastStart      = errors.New("start time must be in the future")
)

// ValidateWindow enforces start < end and start >= now.
func ValidateWindow(start, end, now time.Time) error {
	if start.IsZero() || end.IsZero() {
		return ErrMissingWindow
	}
	if !start.Before(end) {
		return ErrInvertedWindow
	}
	if start.Before(now) {
		return ErrPastStart
	}
	return nil
}
