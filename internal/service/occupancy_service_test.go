package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/unispace/internal/model"
)

func newOccupancyFixture() (*OccupancyService, *memIntervals) {
	store := newMemIntervals(101, 201)
	return NewOccupancyService(memOccupancies{store}, &memClassrooms{rooms: store.rooms}).WithClock(fixedClock), store
}

func TestOccupancyCreateDefaultsToOccupied(t *testing.T) {
	svc, _ := newOccupancyFixture()

	o, err := svc.Create(context.Background(), teacher, OccupancyInput{IntervalInput: in(101, [2]int{10, 0}, [2]int{11, 0})})
	require.NoError(t, err)
	assert.Equal(t, model.OccupancyOccupied, o.Status)
	assert.Equal(t, teacher.ID, o.UserID)
}

func TestOccupancyCreateRules(t *testing.T) {
	svc, store := newOccupancyFixture()
	ctx := context.Background()
	store.res[40] = model.Reservation{ID: 40, ClassroomID: 101, UserID: 2, StartTime: *hour(10, 0), EndTime: *hour(11, 0)}

	var az *AuthorizationError
	_, err := svc.Create(ctx, student, OccupancyInput{IntervalInput: in(101, [2]int{12, 0}, [2]int{13, 0})})
	require.ErrorAs(t, err, &az)

	var ve *ValidationError
	_, err = svc.Create(ctx, teacher, OccupancyInput{IntervalInput: in(101, [2]int{12, 0}, [2]int{13, 0}), Status: "borrowed"})
	require.ErrorAs(t, err, &ve)

	// occupancies are checked against reservations too
	var ce *ConflictError
	_, err = svc.Create(ctx, teacher, OccupancyInput{IntervalInput: in(101, [2]int{10, 30}, [2]int{12, 0})})
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "Classroom is already reserved for the requested time slot", ce.Message)

	var nf *NotFoundError
	_, err = svc.Create(ctx, teacher, OccupancyInput{IntervalInput: in(7, [2]int{10, 0}, [2]int{11, 0})})
	require.ErrorAs(t, err, &nf)
}

func TestOccupancyUpdateStatusOnly(t *testing.T) {
	svc, _ := newOccupancyFixture()
	ctx := context.Background()
	o, err := svc.Create(ctx, rep, OccupancyInput{IntervalInput: in(101, [2]int{10, 0}, [2]int{11, 0})})
	require.NoError(t, err)

	released := "released"
	updated, err := svc.Update(ctx, rep, o.ID, OccupancyPatch{Status: &released})
	require.NoError(t, err)
	assert.Equal(t, model.OccupancyReleased, updated.Status)

	// a released occupancy no longer blocks the room
	_, err = svc.Create(ctx, teacher, OccupancyInput{IntervalInput: in(101, [2]int{10, 0}, [2]int{11, 0})})
	require.NoError(t, err)
}

func TestOccupancyUpdateAndDeleteOwnership(t *testing.T) {
	svc, _ := newOccupancyFixture()
	ctx := context.Background()
	o, err := svc.Create(ctx, rep, OccupancyInput{IntervalInput: in(101, [2]int{10, 0}, [2]int{11, 0})})
	require.NoError(t, err)

	var az *AuthorizationError
	_, err = svc.Update(ctx, teacher, o.ID, OccupancyPatch{IntervalPatch: IntervalPatch{End: hour(12, 0)}})
	require.ErrorAs(t, err, &az)
	require.ErrorAs(t, svc.Delete(ctx, teacher, o.ID), &az)

	updated, err := svc.Update(ctx, rep, o.ID, OccupancyPatch{IntervalPatch: IntervalPatch{End: hour(12, 0)}})
	require.NoError(t, err)
	assert.Equal(t, *hour(12, 0), updated.EndTime)

	require.NoError(t, svc.Delete(ctx, admin, o.ID))
}

func TestOccupancyListByClassroom(t *testing.T) {
	svc, _ := newOccupancyFixture()
	ctx := context.Background()
	_, err := svc.Create(ctx, rep, OccupancyInput{IntervalInput: in(101, [2]int{10, 0}, [2]int{11, 0})})
	require.NoError(t, err)
	_, err = svc.Create(ctx, rep, OccupancyInput{IntervalInput: in(201, [2]int{10, 0}, [2]int{11, 0})})
	require.NoError(t, err)

	rows, err := svc.ListByClassroom(ctx, 201, model.IntervalFilter{})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(201), rows[0].ClassroomID)

	var nf *NotFoundError
	_, err = svc.ListByClassroom(ctx, 5, model.IntervalFilter{})
	require.ErrorAs(t, err, &nf)
}
