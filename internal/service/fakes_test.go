package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
	"github.com/iliyamo/unispace/internal/scheduling"
)

var testNow = time.Date(2030, 1, 1, 8, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return testNow }

func hour(h, m int) *time.Time {
	t := time.Date(2030, 1, 1, h, m, 0, 0, time.UTC)
	return &t
}

// memIntervals is an in-memory interval store. One mutex plays the part
// of the classroom row lock.
type memIntervals struct {
	mu    sync.Mutex
	seq   uint64
	res   map[uint64]model.Reservation
	occ   map[uint64]model.Occupancy
	rooms map[uint64]bool
}

func newMemIntervals(rooms ...uint64) *memIntervals {
	m := &memIntervals{res: map[uint64]model.Reservation{}, occ: map[uint64]model.Occupancy{}, rooms: map[uint64]bool{}}
	for _, r := range rooms {
		m.rooms[r] = true
	}
	return m
}

func (m *memIntervals) blocking(classroomID uint64) []scheduling.Interval {
	var out []scheduling.Interval
	for _, r := range m.res {
		if r.ClassroomID == classroomID {
			out = append(out, scheduling.Interval{ID: r.ID, Kind: scheduling.KindReservation, ClassroomID: r.ClassroomID, UserID: r.UserID, Start: r.StartTime, End: r.EndTime})
		}
	}
	for _, o := range m.occ {
		if o.ClassroomID == classroomID && o.Status == model.OccupancyOccupied {
			out = append(out, scheduling.Interval{ID: o.ID, Kind: scheduling.KindOccupancy, ClassroomID: o.ClassroomID, UserID: o.UserID, Start: o.StartTime, End: o.EndTime})
		}
	}
	return out
}

func (m *memIntervals) check(c scheduling.Interval, x scheduling.Exclusion) error {
	if !m.rooms[c.ClassroomID] {
		return repository.ErrClassroomNotFound
	}
	if hit, ok := scheduling.FirstConflict(m.blocking(c.ClassroomID), c, x); ok {
		return &repository.OverlapError{With: hit}
	}
	return nil
}

type memReservations struct{ *memIntervals }

func (m memReservations) FindByID(_ context.Context, id uint64) (model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.res[id]
	if !ok {
		return model.Reservation{}, repository.ErrNotFound
	}
	return r, nil
}

func (m memReservations) FindMany(_ context.Context, f model.IntervalFilter) ([]model.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Reservation{}
	for _, r := range m.res {
		if (f.UserID == 0 || r.UserID == f.UserID) && (f.ClassroomID == 0 || r.ClassroomID == f.ClassroomID) {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m memReservations) CreateChecked(_ context.Context, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := scheduling.Interval{Kind: scheduling.KindReservation, ClassroomID: r.ClassroomID, Start: r.StartTime, End: r.EndTime}
	if err := m.check(c, scheduling.Exclusion{}); err != nil {
		return err
	}
	m.seq++
	r.ID = m.seq
	r.Email = fmt.Sprintf("user%d@campus.test", r.UserID)
	m.res[r.ID] = *r
	return nil
}

func (m memReservations) UpdateChecked(_ context.Context, _ uint64, r *model.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.res[r.ID]
	if !ok {
		return repository.ErrNotFound
	}
	c := scheduling.Interval{ID: r.ID, Kind: scheduling.KindReservation, ClassroomID: r.ClassroomID, Start: r.StartTime, End: r.EndTime}
	if err := m.check(c, scheduling.Exclusion{Kind: scheduling.KindReservation, ID: r.ID}); err != nil {
		return err
	}
	cur.ClassroomID, cur.StartTime, cur.EndTime, cur.UpdatedAt = r.ClassroomID, r.StartTime, r.EndTime, r.UpdatedAt
	m.res[r.ID] = cur
	return nil
}

func (m memReservations) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.res[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.res, id)
	return nil
}

type memOccupancies struct{ *memIntervals }

func (m memOccupancies) FindByID(_ context.Context, id uint64) (model.Occupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.occ[id]
	if !ok {
		return model.Occupancy{}, repository.ErrNotFound
	}
	return o, nil
}

func (m memOccupancies) FindMany(_ context.Context, f model.IntervalFilter) ([]model.Occupancy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []model.Occupancy{}
	for _, o := range m.occ {
		if f.ClassroomID == 0 || o.ClassroomID == f.ClassroomID {
			out = append(out, o)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (m memOccupancies) CreateChecked(_ context.Context, o *model.Occupancy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o.Status == model.OccupancyOccupied {
		c := scheduling.Interval{Kind: scheduling.KindOccupancy, ClassroomID: o.ClassroomID, Start: o.StartTime, End: o.EndTime}
		if err := m.check(c, scheduling.Exclusion{}); err != nil {
			return err
		}
	}
	m.seq++
	o.ID = m.seq
	m.occ[o.ID] = *o
	return nil
}

func (m memOccupancies) UpdateChecked(_ context.Context, _ uint64, o *model.Occupancy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.occ[o.ID]; !ok {
		return repository.ErrNotFound
	}
	if o.Status == model.OccupancyOccupied {
		c := scheduling.Interval{ID: o.ID, Kind: scheduling.KindOccupancy, ClassroomID: o.ClassroomID, Start: o.StartTime, End: o.EndTime}
		if err := m.check(c, scheduling.Exclusion{Kind: scheduling.KindOccupancy, ID: o.ID}); err != nil {
			return err
		}
	}
	m.occ[o.ID] = *o
	return nil
}

func (m memOccupancies) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.occ[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.occ, id)
	return nil
}

// memClassrooms answers Exists from the same room set.
type memClassrooms struct {
	rooms map[uint64]bool
}

func (m *memClassrooms) List(context.Context) ([]model.Classroom, error) { return nil, nil }
func (m *memClassrooms) GetByID(_ context.Context, id uint64) (model.Classroom, error) {
	if !m.rooms[id] {
		return model.Classroom{}, repository.ErrNotFound
	}
	return model.Classroom{ID: id, Name: fmt.Sprintf("Room %d", id)}, nil
}
func (m *memClassrooms) Exists(_ context.Context, id uint64) (bool, error) { return m.rooms[id], nil }
func (m *memClassrooms) Create(context.Context, *model.Classroom) error { return nil }
func (m *memClassrooms) Update(context.Context, model.Classroom) error { return nil }

type mockUsers struct{ mock.Mock }

func (m *mockUsers) Create(ctx context.Context, username, email, password string, role model.Role, cost int) (uint64, error) {
	args := m.Called(ctx, username, email, password, role, cost)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockUsers) GetByUsername(ctx context.Context, username string) (model.User, error) {
	args := m.Called(ctx, username)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) GetByID(ctx context.Context, id uint64) (model.User, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.User), args.Error(1)
}

func (m *mockUsers) Taken(ctx context.Context, username, email string) (bool, bool, error) {
	args := m.Called(ctx, username, email)
	return args.Bool(0), args.Bool(1), args.Error(2)
}

func (m *mockUsers) List(ctx context.Context) ([]model.User, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *mockUsers) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	return m.Called(ctx, id, role).Error(0)
}

type mockTokens struct{ mock.Mock }

func (m *mockTokens) Store(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	return m.Called(ctx, userID, hash, exp).Error(0)
}

func (m *mockTokens) Rotate(ctx context.Context, oldHash, newHash string, exp, now time.Time) (uint64, error) {
	args := m.Called(ctx, oldHash, newHash, exp, now)
	return args.Get(0).(uint64), args.Error(1)
}

func (m *mockTokens) Revoke(ctx context.Context, hash string, now time.Time) error {
	return m.Called(ctx, hash, now).Error(0)
}

func (m *mockTokens) RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error {
	return m.Called(ctx, userID, now).Error(0)
}

type mockNotifications struct{ mock.Mock }

func (m *mockNotifications) Create(ctx context.Context, n *model.Notification) error {
	args := m.Called(ctx, n)
	n.ID = 77
	return args.Error(0)
}

func (m *mockNotifications) FindByID(ctx context.Context, id uint64) (model.Notification, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Notification), args.Error(1)
}

func (m *mockNotifications) List(ctx context.Context, userID uint64, limit, offset int) ([]model.Notification, error) {
	args := m.Called(ctx, userID, limit, offset)
	return args.Get(0).([]model.Notification), args.Error(1)
}

func (m *mockNotifications) MarkRead(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockNotifications) Delete(ctx context.Context, id uint64) error {
	return m.Called(ctx, id).Error(0)
}

type mockPusher struct{ mock.Mock }

func (m *mockPusher) Push(ctx context.Context, userID uint64, n model.Notification) {
	m.Called(ctx, userID, n)
}

type mockPromoter struct{ mock.Mock }

func (m *mockPromoter) Run(ctx context.Context) (model.PromotionReport, error) {
	args := m.Called(ctx)
	return args.Get(0).(model.PromotionReport), args.Error(1)
}
