package repository

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/scheduling"
)

var (
	lockQ      = regexp.QuoteMeta("SELECT id FROM classrooms WHERE id IN (?) ORDER BY id FOR UPDATE")
	lockTwoQ   = regexp.QuoteMeta("SELECT id FROM classrooms WHERE id IN (?,?) ORDER BY id FOR UPDATE")
	resOverlap = regexp.QuoteMeta("FROM reservations") + `\s+WHERE classroom_id = \? AND start_time < \? AND end_time > \?`
	occOverlap = regexp.QuoteMeta("FROM occupancies") + `\s+WHERE classroom_id = \? AND start_time < \? AND end_time > \? AND status = 'occupied'`
	ivCols     = []string{"id", "classroom_id", "user_id", "start_time", "end_time"}
)

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func at(h, m int) time.Time { return time.Date(2030, 5, 1, h, m, 0, 0, time.UTC) }

func TestReservationCreateCheckedInsertsWhenFree(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQ).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(resOverlap).WithArgs(7, at(11, 0), at(10, 0)).
		// 09:00-10:00 touches the candidate but does not overlap it
		WillReturnRows(sqlmock.NewRows(ivCols).AddRow(3, 7, 1, at(9, 0), at(10, 0)))
	mock.ExpectQuery(occOverlap).WithArgs(7, at(11, 0), at(10, 0)).WillReturnRows(sqlmock.NewRows(ivCols))
	mock.ExpectExec("INSERT INTO reservations").WillReturnResult(sqlmock.NewResult(42, 1))
	mock.ExpectCommit()

	res := &model.Reservation{ClassroomID: 7, UserID: 2, StartTime: at(10, 0), EndTime: at(11, 0)}
	require.NoError(t, repo.CreateChecked(context.Background(), res))
	assert.Equal(t, uint64(42), res.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationCreateCheckedRejectsOverlapWithOccupancy(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQ).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(resOverlap).WillReturnRows(sqlmock.NewRows(ivCols))
	mock.ExpectQuery(occOverlap).WillReturnRows(sqlmock.NewRows(ivCols).AddRow(5, 7, 9, at(10, 30), at(12, 0)))
	mock.ExpectRollback()

	res := &model.Reservation{ClassroomID: 7, UserID: 2, StartTime: at(10, 0), EndTime: at(11, 0)}
	err := repo.CreateChecked(context.Background(), res)
	require.ErrorIs(t, err, ErrOverlap)
	var oe *OverlapError
	require.True(t, errors.As(err, &oe))
	assert.Equal(t, scheduling.KindOccupancy, oe.With.Kind)
	assert.Equal(t, uint64(5), oe.With.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationCreateCheckedMissingClassroom(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQ).WithArgs(99).WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.CreateChecked(context.Background(), &model.Reservation{ClassroomID: 99, StartTime: at(10, 0), EndTime: at(11, 0)})
	require.ErrorIs(t, err, ErrClassroomNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationUpdateCheckedLocksBothClassroomsAndExcludesSelf(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockTwoQ).WithArgs(3, 8).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3).AddRow(8))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id FROM reservations WHERE id = ? FOR UPDATE")).WithArgs(11).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
	// the row being edited shows up in its own overlap query
	mock.ExpectQuery(resOverlap).WillReturnRows(sqlmock.NewRows(ivCols).AddRow(11, 3, 2, at(10, 0), at(11, 0)))
	mock.ExpectQuery(occOverlap).WillReturnRows(sqlmock.NewRows(ivCols))
	mock.ExpectExec("UPDATE reservations SET").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	res := &model.Reservation{ID: 11, ClassroomID: 3, UserID: 2, StartTime: at(10, 30), EndTime: at(11, 30)}
	require.NoError(t, repo.UpdateChecked(context.Background(), 8, res))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationUpdateCheckedVanishedRow(t *testing.T) {
	db, mock := newMock(t)
	repo := NewReservationRepo(db)

	mock.ExpectBegin()
	mock.ExpectQuery(lockQ).WithArgs(3).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))
	mock.ExpectQuery("SELECT id FROM reservations WHERE id").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := repo.UpdateChecked(context.Background(), 3, &model.Reservation{ID: 11, ClassroomID: 3, StartTime: at(10, 0), EndTime: at(11, 0)})
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReservationDeleteNotFound(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectExec("DELETE FROM reservations").WithArgs(5).WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, NewReservationRepo(db).Delete(context.Background(), 5), ErrNotFound)
}

func TestListDueSkipsFailedIDs(t *testing.T) {
	db, mock := newMock(t)
	now := at(12, 0)
	cols := []string{"id", "classroom_id", "user_id", "start_time", "end_time", "created_at", "updated_at"}
	mock.ExpectQuery(`start_time <= \? AND id NOT IN \(\?,\?\) ORDER BY start_time ASC, id ASC LIMIT \?`).
		WithArgs(now, 4, 6, 10).
		WillReturnRows(sqlmock.NewRows(cols).AddRow(7, 1, 2, at(9, 0), at(10, 0), at(8, 0), at(8, 0)))

	due, err := NewReservationRepo(db).ListDue(context.Background(), now, 10, []uint64{4, 6})
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, uint64(7), due[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func expectPromoteLocked(mock sqlmock.Sqlmock) {
	mock.ExpectQuery(regexp.QuoteMeta("SELECT classroom_id FROM reservations WHERE id = ?")).WithArgs(21).
		WillReturnRows(sqlmock.NewRows([]string{"classroom_id"}).AddRow(7))
	mock.ExpectBegin()
	mock.ExpectQuery(lockQ).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ? FOR UPDATE")).WithArgs(21).
		WillReturnRows(sqlmock.NewRows(ivCols).AddRow(21, 7, 2, at(9, 0), at(10, 0)))
}

func TestPromoteInsertsOccupancyAndDeletesReservation(t *testing.T) {
	db, mock := newMock(t)
	expectPromoteLocked(mock)
	mock.ExpectQuery("SELECT id FROM occupancies").WithArgs(7, 2, at(9, 0), at(10, 0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO occupancies").
		WithArgs(7, 2, at(9, 0), at(10, 0), "occupied", at(12, 0), at(12, 0)).
		WillReturnResult(sqlmock.NewResult(30, 1))
	mock.ExpectExec("DELETE FROM reservations WHERE id").WithArgs(21).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, occ, err := NewReservationRepo(db).Promote(context.Background(), 21, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, Promoted, outcome)
	assert.Equal(t, uint64(30), occ.ID)
	assert.Equal(t, model.OccupancyOccupied, occ.Status)
	assert.Equal(t, at(9, 0), occ.StartTime)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteDeduplicatesExistingOccupancy(t *testing.T) {
	db, mock := newMock(t)
	expectPromoteLocked(mock)
	mock.ExpectQuery("SELECT id FROM occupancies").WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(30))
	mock.ExpectExec("DELETE FROM reservations WHERE id").WithArgs(21).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	outcome, _, err := NewReservationRepo(db).Promote(context.Background(), 21, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, PromoteDeduplicated, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteAlreadyGoneIsSkipped(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT classroom_id FROM reservations").WithArgs(21).
		WillReturnRows(sqlmock.NewRows([]string{"classroom_id"}))

	outcome, _, err := NewReservationRepo(db).Promote(context.Background(), 21, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, PromoteSkipped, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteGoneAfterLockIsSkipped(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery("SELECT classroom_id FROM reservations").WithArgs(21).
		WillReturnRows(sqlmock.NewRows([]string{"classroom_id"}).AddRow(7))
	mock.ExpectBegin()
	mock.ExpectQuery(lockQ).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery("FOR UPDATE").WithArgs(21).WillReturnRows(sqlmock.NewRows(ivCols))
	mock.ExpectCommit()

	outcome, _, err := NewReservationRepo(db).Promote(context.Background(), 21, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, PromoteSkipped, outcome)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteRescheduledIntoFutureIsSkipped(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT classroom_id FROM reservations WHERE id = ?")).WithArgs(21).
		WillReturnRows(sqlmock.NewRows([]string{"classroom_id"}).AddRow(7))
	mock.ExpectBegin()
	mock.ExpectQuery(lockQ).WithArgs(7).WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ? FOR UPDATE")).WithArgs(21).
		WillReturnRows(sqlmock.NewRows(ivCols).AddRow(21, 7, 2, at(15, 0), at(16, 0)))
	mock.ExpectCommit()

	outcome, occ, err := NewReservationRepo(db).Promote(context.Background(), 21, at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, PromoteSkipped, outcome)
	assert.Zero(t, occ.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPromoteInsertFailureRollsBack(t *testing.T) {
	db, mock := newMock(t)
	expectPromoteLocked(mock)
	mock.ExpectQuery("SELECT id FROM occupancies").WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectExec("INSERT INTO occupancies").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, _, err := NewReservationRepo(db).Promote(context.Background(), 21, at(12, 0))
	require.EqualError(t, err, "disk full")
	require.NoError(t, mock.ExpectationsWereMet())
}

var pendingCols = []string{"user_id", "status", "start_time", "notified_at", "name", "username"}

func TestCreateForOccupancyInsertsAndStamps(t *testing.T) {
	db, mock := newMock(t)
	now := at(12, 0)
	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE o.id = \? FOR UPDATE`).WithArgs(30).
		WillReturnRows(sqlmock.NewRows(pendingCols).AddRow(2, "occupied", at(11, 0), nil, "Room 101", "rep1"))
	mock.ExpectExec("INSERT INTO notifications").
		WithArgs(2, 30, "Your occupancy for classroom Room 101 has started.", now).
		WillReturnResult(sqlmock.NewResult(50, 1))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE occupancies SET notified_at = ? WHERE id = ?")).WithArgs(now, 30).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	n, created, err := NewNotificationRepo(db).CreateForOccupancy(context.Background(), 30, now)
	require.NoError(t, err)
	require.True(t, created)
	assert.Equal(t, uint64(50), n.ID)
	assert.Equal(t, uint64(2), n.UserID)
	require.NotNil(t, n.OccupancyID)
	assert.Equal(t, uint64(30), *n.OccupancyID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateForOccupancyAlreadyNotified(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(30).
		WillReturnRows(sqlmock.NewRows(pendingCols).AddRow(2, "occupied", at(11, 0), at(11, 5), "Room 101", "rep1"))
	mock.ExpectCommit()

	_, created, err := NewNotificationRepo(db).CreateForOccupancy(context.Background(), 30, at(12, 0))
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateForOccupancyUniqueViolationIsNotAnError(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FOR UPDATE").WithArgs(30).
		WillReturnRows(sqlmock.NewRows(pendingCols).AddRow(2, "occupied", at(11, 0), nil, "Room 101", "rep1"))
	mock.ExpectExec("INSERT INTO notifications").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry '30' for key 'uq_notifications_occupancy'"})
	mock.ExpectRollback()

	_, created, err := NewNotificationRepo(db).CreateForOccupancy(context.Background(), 30, at(12, 0))
	require.NoError(t, err)
	assert.False(t, created)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestIntervalWhere(t *testing.T) {
	from := at(8, 0)
	tail, args := intervalWhere("r", model.IntervalFilter{UserID: 2, From: &from, Limit: 20, Offset: 40})
	assert.Equal(t, " WHERE r.user_id = ? AND r.start_time >= ? ORDER BY r.start_time ASC, r.id ASC LIMIT ? OFFSET ?", tail)
	assert.Equal(t, []any{uint64(2), from, 20, 40}, args)

	tail, args = intervalWhere("o", model.IntervalFilter{})
	assert.Equal(t, " ORDER BY o.start_time ASC, o.id ASC", tail)
	assert.Empty(t, args)
}

func TestUserCreateMapsDuplicateKeys(t *testing.T) {
	db, mock := newMock(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'a@b.c' for key 'users.uq_users_email'"})
	_, err := repo.Create(context.Background(), "alice", "a@b.c", "password123", model.RoleStudent, 4)
	require.ErrorIs(t, err, ErrEmailTaken)
	require.ErrorIs(t, err, ErrDuplicate)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry 'alice' for key 'users.uq_users_username'"})
	_, err = repo.Create(context.Background(), "alice", "x@b.c", "password123", model.RoleStudent, 4)
	require.ErrorIs(t, err, ErrUsernameTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRotateRejectsRevoked(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").WithArgs("old").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).AddRow(2, at(23, 0), at(1, 0)))
	mock.ExpectRollback()

	_, err := NewTokenRepo(db).Rotate(context.Background(), "old", "new", at(23, 0), at(12, 0))
	require.ErrorIs(t, err, ErrTokenInvalid)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestTokenRotate(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectQuery("FROM refresh_tokens WHERE token_hash").WithArgs("old").
		WillReturnRows(sqlmock.NewRows([]string{"user_id", "expires_at", "revoked_at"}).AddRow(2, at(23, 0), nil))
	mock.ExpectExec("UPDATE refresh_tokens SET revoked_at").WithArgs(at(12, 0), "old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO refresh_tokens").WithArgs(2, "new", at(23, 0)).WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	uid, err := NewTokenRepo(db).Rotate(context.Background(), "old", "new", at(23, 0), at(12, 0))
	require.NoError(t, err)
	assert.Equal(t, uint64(2), uid)
	require.NoError(t, mock.ExpectationsWereMet())
}
