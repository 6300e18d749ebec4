package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
)

var (
	teacher = model.Identity{ID: 1, Username: "teacher1", Role: model.RoleTeacher}
	rep     = model.Identity{ID: 2, Username: "rep1", Role: model.RoleRepresentative}
	student = model.Identity{ID: 3, Username: "student1", Role: model.RoleStudent}
	admin   = model.Identity{ID: 9, Username: "admin", Role: model.RoleAdmin}
)

type reservationFixture struct {
	svc      *ReservationService
	store    *memIntervals
	users    *mockUsers
	promoter *mockPromoter
}

func newReservationFixture(t *testing.T) reservationFixture {
	t.Helper()
	store := newMemIntervals(101, 201)
	users := &mockUsers{}
	users.On("GetByID", mock.Anything, mock.Anything).Return(model.User{ID: 1}, nil).Maybe()
	promoter := &mockPromoter{}
	svc := NewReservationService(memReservations{store}, users, &memClassrooms{rooms: store.rooms}, promoter).
		WithClock(fixedClock)
	return reservationFixture{svc: svc, store: store, users: users, promoter: promoter}
}

func in(classroom uint64, start, end [2]int) IntervalInput {
	return IntervalInput{ClassroomID: classroom, Start: hour(start[0], start[1]), End: hour(end[0], end[1])}
}

func TestReservationCreate(t *testing.T) {
	f := newReservationFixture(t)

	r, err := f.svc.Create(context.Background(), teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)
	assert.NotZero(t, r.ID)
	assert.Equal(t, teacher.ID, r.UserID)
	assert.Equal(t, *hour(10, 0), r.StartTime)
	assert.Equal(t, testNow, r.CreatedAt)
}

func TestReservationCreateRejectsStudents(t *testing.T) {
	f := newReservationFixture(t)

	_, err := f.svc.Create(context.Background(), student, in(101, [2]int{10, 0}, [2]int{11, 0}))
	var az *AuthorizationError
	require.ErrorAs(t, err, &az)
}

func TestReservationCreateValidation(t *testing.T) {
	f := newReservationFixture(t)
	cases := []struct {
		name string
		in   IntervalInput
		msg  string
	}{
		{"missing end", IntervalInput{ClassroomID: 101, Start: hour(10, 0)}, "classroomId, startTime and endTime are required"},
		{"missing classroom", IntervalInput{Start: hour(10, 0), End: hour(11, 0)}, "classroomId, startTime and endTime are required"},
		{"inverted", in(101, [2]int{11, 0}, [2]int{10, 0}), "Start time must be before end time"},
		{"empty window", in(101, [2]int{10, 0}, [2]int{10, 0}), "Start time must be before end time"},
		{"past", in(101, [2]int{7, 0}, [2]int{9, 0}), "Start time must be in the future"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := f.svc.Create(context.Background(), teacher, tc.in)
			var ve *ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Equal(t, tc.msg, ve.Message)
		})
	}
	assert.Empty(t, f.store.res)
}

func TestReservationWindowIsValidatedAtSecondPrecision(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	at := func(ms int) *time.Time {
		v := hour(10, 0).Add(time.Duration(ms) * time.Millisecond)
		return &v
	}

	_, err := f.svc.Create(ctx, teacher, IntervalInput{ClassroomID: 101, Start: at(200), End: at(400)})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Start time must be before end time", ve.Message)

	r, err := f.svc.Create(ctx, teacher, IntervalInput{ClassroomID: 101, Start: at(900), End: at(3_600_500)})
	require.NoError(t, err)
	assert.Equal(t, *hour(10, 0), r.StartTime)
	assert.Equal(t, *hour(11, 0), r.EndTime)

	_, err = f.svc.Update(ctx, teacher, r.ID, IntervalPatch{End: at(700)})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "Start time must be before end time", ve.Message)
}

func TestReservationCreateUnknownClassroom(t *testing.T) {
	f := newReservationFixture(t)

	_, err := f.svc.Create(context.Background(), teacher, in(999, [2]int{10, 0}, [2]int{11, 0}))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Classroom not found", nf.Message)
}

func TestReservationCreateUnknownUser(t *testing.T) {
	store := newMemIntervals(101)
	users := &mockUsers{}
	users.On("GetByID", mock.Anything, uint64(1)).Return(model.User{}, repository.ErrNotFound)
	svc := NewReservationService(memReservations{store}, users, &memClassrooms{rooms: store.rooms}, nil).WithClock(fixedClock)

	_, err := svc.Create(context.Background(), teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "User not found", nf.Message)
}

func TestReservationCreateConflicts(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()

	_, err := f.svc.Create(ctx, teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)

	_, err = f.svc.Create(ctx, rep, in(101, [2]int{10, 30}, [2]int{11, 30}))
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Classroom is already reserved for the requested time slot", ce.Message)

	// touching the end of an existing booking is allowed
	_, err = f.svc.Create(ctx, rep, in(101, [2]int{11, 0}, [2]int{12, 0}))
	require.NoError(t, err)

	// same window in another classroom is allowed
	_, err = f.svc.Create(ctx, rep, in(201, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)
	assert.Len(t, f.store.res, 3)
}

func TestReservationCreateBlockedByOccupancy(t *testing.T) {
	f := newReservationFixture(t)
	f.store.occ[50] = model.Occupancy{ID: 50, ClassroomID: 101, UserID: 2, StartTime: *hour(9, 0), EndTime: *hour(12, 0), Status: model.OccupancyOccupied}

	_, err := f.svc.Create(context.Background(), teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Classroom is already occupied for the requested time slot", ce.Message)
}

func TestReservationCreateIgnoresReleasedOccupancy(t *testing.T) {
	f := newReservationFixture(t)
	f.store.occ[50] = model.Occupancy{ID: 50, ClassroomID: 101, UserID: 2, StartTime: *hour(9, 0), EndTime: *hour(12, 0), Status: model.OccupancyReleased}

	_, err := f.svc.Create(context.Background(), teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)
}

func TestReservationConcurrentCreatesAdmitOne(t *testing.T) {
	f := newReservationFixture(t)
	const n = 16

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		ok, clash int
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Create(context.Background(), teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
			mu.Lock()
			defer mu.Unlock()
			var ce *ConflictError
			switch {
			case err == nil:
				ok++
			case errors.As(err, &ce):
				clash++
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, ok)
	assert.Equal(t, n-1, clash)
	assert.Len(t, f.store.res, 1)
}

func TestReservationUpdateOwnership(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)

	_, err = f.svc.Update(ctx, rep, r.ID, IntervalPatch{End: hour(11, 30)})
	var az *AuthorizationError
	require.ErrorAs(t, err, &az)
	assert.Equal(t, *hour(11, 0), f.store.res[r.ID].EndTime)

	updated, err := f.svc.Update(ctx, admin, r.ID, IntervalPatch{End: hour(11, 30)})
	require.NoError(t, err)
	assert.Equal(t, *hour(11, 30), updated.EndTime)
}

func TestReservationUpdateExcludesItself(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, teacher, r.ID, IntervalPatch{Start: hour(10, 30), End: hour(11, 30)})
	require.NoError(t, err)
	assert.Equal(t, *hour(10, 30), updated.StartTime)
}

func TestReservationUpdateConflictAndValidation(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, rep, in(201, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)
	mine, err := f.svc.Create(ctx, teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)

	room := uint64(201)
	_, err = f.svc.Update(ctx, teacher, mine.ID, IntervalPatch{ClassroomID: &room})
	var ce *ConflictError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Updated time slot conflicts with an existing reservation", ce.Message)
	assert.Equal(t, uint64(101), f.store.res[mine.ID].ClassroomID)

	_, err = f.svc.Update(ctx, teacher, mine.ID, IntervalPatch{})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "At least one field (classroomId, startTime, endTime) must be provided", ve.Message)

	_, err = f.svc.Update(ctx, teacher, mine.ID, IntervalPatch{End: hour(9, 0)})
	require.ErrorAs(t, err, &ve)

	missing := uint64(999)
	_, err = f.svc.Update(ctx, teacher, mine.ID, IntervalPatch{ClassroomID: &missing})
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	_, err = f.svc.Update(ctx, teacher, 12345, IntervalPatch{End: hour(12, 0)})
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "Reservation not found", nf.Message)
}

func TestReservationDelete(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	r, err := f.svc.Create(ctx, teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)

	var az *AuthorizationError
	require.ErrorAs(t, f.svc.Delete(ctx, rep, r.ID), &az)
	require.NoError(t, f.svc.Delete(ctx, teacher, r.ID))

	var nf *NotFoundError
	require.ErrorAs(t, f.svc.Delete(ctx, teacher, r.ID), &nf)
}

func TestReservationListRedactsEmail(t *testing.T) {
	f := newReservationFixture(t)
	ctx := context.Background()
	_, err := f.svc.Create(ctx, teacher, in(101, [2]int{10, 0}, [2]int{11, 0}))
	require.NoError(t, err)

	rows, err := f.svc.List(ctx, student, model.IntervalFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Empty(t, rows[0].Email)

	rows, err = f.svc.List(ctx, teacher, model.IntervalFilter{})
	require.NoError(t, err)
	assert.Equal(t, "user1@campus.test", rows[0].Email)

	rows, err = f.svc.List(ctx, admin, model.IntervalFilter{})
	require.NoError(t, err)
	assert.NotEmpty(t, rows[0].Email)
}

func TestReservationConvert(t *testing.T) {
	f := newReservationFixture(t)
	f.promoter.On("Run", mock.Anything).Return(model.PromotionReport{Promoted: 2}, nil).Once()

	var az *AuthorizationError
	_, err := f.svc.Convert(context.Background(), teacher)
	require.ErrorAs(t, err, &az)

	report, err := f.svc.Convert(context.Background(), rep)
	require.NoError(t, err)
	assert.Equal(t, 2, report.Promoted)
	f.promoter.AssertExpectations(t)
}
