package service

import (
	"context"
	"errors"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
)

const msgOccupancyAbsent = "Occupancy not found"

// OccupancyInput is a create request; Status empty means occupied.
type OccupancyInput struct {
	IntervalInput
	Status string
}

// OccupancyPatch is a partial update. Status alone may change.
type OccupancyPatch struct {
	IntervalPatch
	Status *string
}

type OccupancyService struct {
	store      OccupancyStore
	classrooms ClassroomStore
	now        Clock
}

func NewOccupancyService(store OccupancyStore, classrooms ClassroomStore) *OccupancyService {
	return &OccupancyService{store: store, classrooms: classrooms, now: systemClock}
}

func (s *OccupancyService) WithClock(c Clock) *OccupancyService {
	s.now = c
	return s
}

func (s *OccupancyService) List(ctx context.Context, f model.IntervalFilter) ([]model.Occupancy, error) {
	return s.store.FindMany(ctx, f)
}

// ListByClassroom lists one classroom's occupancies; an unknown classroom
// is NotFound rather than an empty list.
func (s *OccupancyService) ListByClassroom(ctx context.Context, classroomID uint64, f model.IntervalFilter) ([]model.Occupancy, error) {
	ok, err := s.classrooms.Exists(ctx, classroomID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, notFound(msgClassroomAbsent)
	}
	f.ClassroomID = classroomID
	return s.store.FindMany(ctx, f)
}

func (s *OccupancyService) Get(ctx context.Context, id uint64) (model.Occupancy, error) {
	o, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Occupancy{}, notFound(msgOccupancyAbsent)
	}
	return o, err
}

func (s *OccupancyService) Create(ctx context.Context, actor model.Identity, in OccupancyInput) (model.Occupancy, error) {
	if !actor.Can(model.CapOccupancyWrite) {
		return model.Occupancy{}, forbidden("Your role cannot create occupancies")
	}
	if in.ClassroomID == 0 {
		return model.Occupancy{}, invalidField("classroomId", "Valid classroomId is required")
	}
	status, ok := model.ParseOccupancyStatus(in.Status)
	if !ok {
		return model.Occupancy{}, invalidField("status", "Invalid status")
	}
	now := s.now()
	start, end := deref(in.Start), deref(in.End)
	if err := checkWindow(start, end, now); err != nil {
		return model.Occupancy{}, err
	}
	if ok, err := s.classrooms.Exists(ctx, in.ClassroomID); err != nil {
		return model.Occupancy{}, err
	} else if !ok {
		return model.Occupancy{}, notFound(msgClassroomAbsent)
	}

	o := model.Occupancy{
		ClassroomID: in.ClassroomID, UserID: actor.ID, StartTime: start, EndTime: end,
		Status: status, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.store.CreateChecked(ctx, &o); err != nil {
		return model.Occupancy{}, translateWrite(err, overlapByKind, msgOccupancyAbsent)
	}
	return s.reload(ctx, o), nil
}

func (s *OccupancyService) Update(ctx context.Context, actor model.Identity, id uint64, p OccupancyPatch) (model.Occupancy, error) {
	if !actor.Can(model.CapOccupancyWrite) {
		return model.Occupancy{}, forbidden("Your role cannot modify occupancies")
	}
	if p.empty() && p.Status == nil {
		return model.Occupancy{}, invalid("At least one field (classroomId, startTime, endTime, status) must be provided")
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return model.Occupancy{}, err
	}
	if !actor.Owns(cur.UserID) {
		return model.Occupancy{}, forbidden("Forbidden - Unauthorized to modify this occupancy")
	}

	now := s.now()
	next := cur
	next.ClassroomID, next.StartTime, next.EndTime = p.apply(cur.ClassroomID, cur.StartTime, cur.EndTime)
	next.UpdatedAt = now
	if p.Status != nil {
		st, ok := model.ParseOccupancyStatus(*p.Status)
		if !ok {
			return model.Occupancy{}, invalidField("status", "Invalid status")
		}
		next.Status = st
	}
	if p.movesWindow() {
		if err := checkWindow(next.StartTime, next.EndTime, now); err != nil {
			return model.Occupancy{}, err
		}
	}
	if next.ClassroomID != cur.ClassroomID {
		if ok, err := s.classrooms.Exists(ctx, next.ClassroomID); err != nil {
			return model.Occupancy{}, err
		} else if !ok {
			return model.Occupancy{}, notFound(msgClassroomAbsent)
		}
	}
	if err := s.store.UpdateChecked(ctx, cur.ClassroomID, &next); err != nil {
		return model.Occupancy{}, translateWrite(err, overlapByKind, msgOccupancyAbsent)
	}
	return s.reload(ctx, next), nil
}

func (s *OccupancyService) Delete(ctx context.Context, actor model.Identity, id uint64) error {
	if !actor.Can(model.CapOccupancyWrite) {
		return forbidden("Your role cannot delete occupancies")
	}
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !actor.Owns(cur.UserID) {
		return forbidden("Forbidden - Unauthorized to delete this occupancy")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(msgOccupancyAbsent)
		}
		return err
	}
	return nil
}

func (s *OccupancyService) reload(ctx context.Context, written model.Occupancy) model.Occupancy {
	if full, err := s.store.FindByID(ctx, written.ID); err == nil {
		return full
	}
	return written
}
