package service

import (
	"errors"
	"time"

	"github.com/iliyamo/unispace/internal/repository"
	"github.com/iliyamo/unispace/internal/scheduling"
)

const (
	msgReserved        = "Classroom is already reserved for the requested time slot"
	msgOccupied        = "Classroom is already occupied for the requested time slot"
	msgUpdateConflict  = "Updated time slot conflicts with an existing reservation"
	msgClassroomAbsent = "Classroom not found"
	msgEmptyPatch      = "At least one field (classroomId, startTime, endTime) must be provided"
)

// IntervalInput is the body of a reservation or occupancy create.
type IntervalInput struct {
	ClassroomID uint64
	Start       *time.Time
	End         *time.Time
}

// IntervalPatch is a partial update; nil fields keep their value.
type IntervalPatch struct {
	ClassroomID *uint64
	Start       *time.Time
	End         *time.Time
}

func (p IntervalPatch) empty() bool {
	return p.ClassroomID == nil && p.Start == nil && p.End == nil
}

func (p IntervalPatch) movesWindow() bool { return p.Start != nil || p.End != nil }

func (p IntervalPatch) apply(classroomID uint64, start, end time.Time) (uint64, time.Time, time.Time) {
	if p.ClassroomID != nil {
		classroomID = *p.ClassroomID
	}
	if p.Start != nil {
		start = storedInstant(*p.Start)
	}
	if p.End != nil {
		end = storedInstant(*p.End)
	}
	return classroomID, start, end
}

func checkWindow(start, end, now time.Time) error {
	switch err := scheduling.ValidateWindow(start, end, now); {
	case err == nil:
		return nil
	case errors.Is(err, scheduling.ErrMissingWindow):
		return invalid("Start time and end time are required")
	case errors.Is(err, scheduling.ErrInvertedWindow):
		return invalidField("endTime", "Start time must be before end time")
	case errors.Is(err, scheduling.ErrPastStart):
		return invalidField("startTime", "Start time must be in the future")
	default:
		return err
	}
}

func deref(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return storedInstant(*t)
}

// storedInstant is t as a DATETIME column keeps it: UTC, whole seconds.
// Validating the stored form keeps start < end true after the write.
func storedInstant(t time.Time) time.Time {
	return t.UTC().Truncate(time.Second)
}

// translateWrite maps repository sentinels from a checked write.
func translateWrite(err error, onOverlap func(*repository.OverlapError) error, missing string) error {
	var oe *repository.OverlapError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &oe):
		return onOverlap(oe)
	case errors.Is(err, repository.ErrClassroomNotFound):
		return notFound(msgClassroomAbsent)
	case errors.Is(err, repository.ErrNotFound):
		return notFound(missing)
	default:
		return err
	}
}

func overlapByKind(oe *repository.OverlapError) error {
	if oe.With.Kind == scheduling.KindOccupancy {
		return conflict(msgOccupied)
	}
	return conflict(msgReserved)
}
