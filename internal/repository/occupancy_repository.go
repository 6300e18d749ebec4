package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/scheduling"
)

// OccupancyRepo stores occupancies. Only rows with status occupied block
// other bookings; released and cancelled rows are history.
type OccupancyRepo struct {
	db *sql.DB
}

func NewOccupancyRepo(db *sql.DB) *OccupancyRepo { return &OccupancyRepo{db: db} }

const occupancySelect = `SELECT o.id, o.classroom_id, o.user_id, o.start_time, o.end_time, o.status,
	o.notified_at, o.created_at, o.updated_at, u.username, c.name
	FROM occupancies o
	JOIN users u ON u.id = o.user_id
	JOIN classrooms c ON c.id = o.classroom_id`

func scanOccupancy(s rowScanner) (model.Occupancy, error) {
	var (
		o        model.Occupancy
		status   string
		notified sql.NullTime
	)
	err := s.Scan(&o.ID, &o.ClassroomID, &o.UserID, &o.StartTime, &o.EndTime, &status,
		&notified, &o.CreatedAt, &o.UpdatedAt, &o.Username, &o.ClassroomName)
	if err != nil {
		return o, err
	}
	o.Status = model.OccupancyStatus(status)
	if notified.Valid {
		t := notified.Time
		o.NotifiedAt = &t
	}
	return o, nil
}

func (r *OccupancyRepo) FindByID(ctx context.Context, id uint64) (model.Occupancy, error) {
	o, err := scanOccupancy(r.db.QueryRowContext(ctx, occupancySelect+" WHERE o.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Occupancy{}, ErrNotFound
	}
	return o, err
}

// FindMany lists occupancies ordered by start time.
func (r *OccupancyRepo) FindMany(ctx context.Context, f model.IntervalFilter) ([]model.Occupancy, error) {
	tail, args := intervalWhere("o", f)
	rows, err := r.db.QueryContext(ctx, occupancySelect+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Occupancy, 0)
	for rows.Next() {
		o, err := scanOccupancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// CreateChecked inserts an occupancy. When its status is occupied the
// window is first checked against every blocking interval on the classroom.
func (r *OccupancyRepo) CreateChecked(ctx context.Context, o *model.Occupancy) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockClassroomsTx(ctx, tx, o.ClassroomID); err != nil {
			return err
		}
		if o.Status == model.OccupancyOccupied {
			candidate := scheduling.Interval{
				Kind: scheduling.KindOccupancy, ClassroomID: o.ClassroomID,
				UserID: o.UserID, Start: o.StartTime, End: o.EndTime,
			}
			if err := ensureFreeTx(ctx, tx, candidate, scheduling.Exclusion{}); err != nil {
				return err
			}
		}
		out, err := tx.ExecContext(ctx,
			`INSERT INTO occupancies (classroom_id, user_id, start_time, end_time, status, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			o.ClassroomID, o.UserID, o.StartTime.UTC(), o.EndTime.UTC(), string(o.Status),
			o.CreatedAt.UTC(), o.UpdatedAt.UTC())
		if err != nil {
			return err
		}
		id, err := out.LastInsertId()
		if err != nil {
			return err
		}
		o.ID = uint64(id)
		return nil
	})
}

// UpdateChecked rewrites classroom, window and status of occupancy o.ID,
// excluding the row itself from the conflict check.
func (r *OccupancyRepo) UpdateChecked(ctx context.Context, previousClassroomID uint64, o *model.Occupancy) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockClassroomsTx(ctx, tx, previousClassroomID, o.ClassroomID); err != nil {
			return err
		}
		var id uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM occupancies WHERE id = ? FOR UPDATE", o.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if o.Status == model.OccupancyOccupied {
			candidate := scheduling.Interval{
				ID: o.ID, Kind: scheduling.KindOccupancy, ClassroomID: o.ClassroomID,
				UserID: o.UserID, Start: o.StartTime, End: o.EndTime,
			}
			exclude := scheduling.Exclusion{Kind: scheduling.KindOccupancy, ID: o.ID}
			if err := ensureFreeTx(ctx, tx, candidate, exclude); err != nil {
				return err
			}
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE occupancies SET classroom_id = ?, start_time = ?, end_time = ?, status = ?, updated_at = ? WHERE id = ?",
			o.ClassroomID, o.StartTime.UTC(), o.EndTime.UTC(), string(o.Status), o.UpdatedAt.UTC(), o.ID)
		return err
	})
}

func (r *OccupancyRepo) Delete(ctx context.Context, id uint64) error {
	out, err := r.db.ExecContext(ctx, "DELETE FROM occupancies WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListPendingNotification returns occupied rows that have started by now
// and were never notified, oldest first.
func (r *OccupancyRepo) ListPendingNotification(ctx context.Context, now time.Time, limit int, skip []uint64) ([]model.Occupancy, error) {
	q := occupancySelect + " WHERE o.status = 'occupied' AND o.notified_at IS NULL AND o.start_time <= ?"
	args := []any{now.UTC()}
	if len(skip) > 0 {
		q += " AND o.id NOT IN (" + placeholders(len(skip)) + ")"
		for _, id := range skip {
			args = append(args, id)
		}
	}
	q += " ORDER BY o.start_time ASC, o.id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Occupancy
	for rows.Next() {
		o, err := scanOccupancy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
