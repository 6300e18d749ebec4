package service

import (
	"context"
	"errors"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
)

const msgReservationAbsent = "Reservation not found"

// ReservationService drives a reservation through
// none -> reserved -> (updated)* -> deleted | promoted.
type ReservationService struct {
	store      ReservationStore
	users      UserStore
	classrooms ClassroomStore
	promoter   PromotionRunner
	now        Clock
}

func NewReservationService(store ReservationStore, users UserStore, classrooms ClassroomStore, promoter PromotionRunner) *ReservationService {
	return &ReservationService{store: store, users: users, classrooms: classrooms, promoter: promoter, now: systemClock}
}

// WithClock replaces the time source.
func (s *ReservationService) WithClock(c Clock) *ReservationService {
	s.now = c
	return s
}

func (s *ReservationService) Create(ctx context.Context, actor model.Identity, in IntervalInput) (model.Reservation, error) {
	if !actor.Can(model.CapReservationWrite) {
		return model.Reservation{}, forbidden("Your role cannot create reservations")
	}
	if in.ClassroomID == 0 || in.Start == nil || in.End == nil {
		return model.Reservation{}, invalid("classroomId, startTime and endTime are required")
	}
	now := s.now()
	start, end := deref(in.Start), deref(in.End)
	if err := checkWindow(start, end, now); err != nil {
		return model.Reservation{}, err
	}
	if _, err := s.users.GetByID(ctx, actor.ID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Reservation{}, notFound("User not found")
		}
		return model.Reservation{}, err
	}
	if err := s.requireClassroom(ctx, in.ClassroomID); err != nil {
		return model.Reservation{}, err
	}

	res := model.Reservation{
		ClassroomID: in.ClassroomID, UserID: actor.ID,
		StartTime: start, EndTime: end, CreatedAt: now, UpdatedAt: now,
	}
	if err := s.store.CreateChecked(ctx, &res); err != nil {
		return model.Reservation{}, translateWrite(err, overlapByKind, msgReservationAbsent)
	}
	return s.reload(ctx, actor, res), nil
}

func (s *ReservationService) List(ctx context.Context, actor model.Identity, f model.IntervalFilter) ([]model.Reservation, error) {
	rows, err := s.store.FindMany(ctx, f)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i] = redactReservation(actor, rows[i])
	}
	return rows, nil
}

func (s *ReservationService) Get(ctx context.Context, actor model.Identity, id uint64) (model.Reservation, error) {
	r, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Reservation{}, notFound(msgReservationAbsent)
	}
	if err != nil {
		return model.Reservation{}, err
	}
	return redactReservation(actor, r), nil
}

// Update moves a reservation in time and/or to another classroom. Only the
// owner or an admin may do so.
func (s *ReservationService) Update(ctx context.Context, actor model.Identity, id uint64, p IntervalPatch) (model.Reservation, error) {
	if !actor.Can(model.CapReservationWrite) {
		return model.Reservation{}, forbidden("Your role cannot modify reservations")
	}
	if p.empty() {
		return model.Reservation{}, invalid(msgEmptyPatch)
	}
	cur, err := s.Get(ctx, actor, id)
	if err != nil {
		return model.Reservation{}, err
	}
	if !actor.Owns(cur.UserID) {
		return model.Reservation{}, forbidden("You can only modify your own reservations")
	}

	now := s.now()
	next := cur
	next.ClassroomID, next.StartTime, next.EndTime = p.apply(cur.ClassroomID, cur.StartTime, cur.EndTime)
	next.UpdatedAt = now
	if err := checkWindow(next.StartTime, next.EndTime, now); err != nil {
		return model.Reservation{}, err
	}
	if next.ClassroomID != cur.ClassroomID {
		if err := s.requireClassroom(ctx, next.ClassroomID); err != nil {
			return model.Reservation{}, err
		}
	}
	err = s.store.UpdateChecked(ctx, cur.ClassroomID, &next)
	if err != nil {
		return model.Reservation{}, translateWrite(err, func(*repository.OverlapError) error {
			return conflict(msgUpdateConflict)
		}, msgReservationAbsent)
	}
	return s.reload(ctx, actor, next), nil
}

func (s *ReservationService) Delete(ctx context.Context, actor model.Identity, id uint64) error {
	if !actor.Can(model.CapReservationWrite) {
		return forbidden("Your role cannot delete reservations")
	}
	cur, err := s.Get(ctx, actor, id)
	if err != nil {
		return err
	}
	if !actor.Owns(cur.UserID) {
		return forbidden("You can only delete your own reservations")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(msgReservationAbsent)
		}
		return err
	}
	return nil
}

// Convert runs the promotion job synchronously.
func (s *ReservationService) Convert(ctx context.Context, actor model.Identity) (model.PromotionReport, error) {
	if !actor.Can(model.CapReservationConvert) {
		return model.PromotionReport{}, forbidden("Your role cannot convert reservations")
	}
	return s.promoter.Run(ctx)
}

func (s *ReservationService) requireClassroom(ctx context.Context, id uint64) error {
	ok, err := s.classrooms.Exists(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return notFound(msgClassroomAbsent)
	}
	return nil
}

// reload re-reads the row for display fields, falling back to what was
// written if the read fails.
func (s *ReservationService) reload(ctx context.Context, actor model.Identity, written model.Reservation) model.Reservation {
	full, err := s.store.FindByID(ctx, written.ID)
	if err != nil {
		return written
	}
	return redactReservation(actor, full)
}

// redactReservation hides the owner's email from everyone but the owner
// and admins.
func redactReservation(actor model.Identity, r model.Reservation) model.Reservation {
	if !actor.Owns(r.UserID) {
		r.Email = ""
	}
	return r
}
