package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/scheduling"
)

// ReservationRepo stores reservations. Writes that can introduce an overlap
// go through CreateChecked/UpdateChecked, which hold the classroom lock for
// the whole check-then-write sequence.
type ReservationRepo struct {
	db *sql.DB
}

// NewReservationRepo returns a ReservationRepo bound to db.
func NewReservationRepo(db *sql.DB) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationSelect = `SELECT r.id, r.classroom_id, r.user_id, r.start_time, r.end_time,
	r.created_at, r.updated_at, u.username, u.email, c.name
	FROM reservations r
	JOIN users u ON u.id = r.user_id
	JOIN classrooms c ON c.id = r.classroom_id`

func scanReservation(s rowScanner) (model.Reservation, error) {
	var r model.Reservation
	err := s.Scan(&r.ID, &r.ClassroomID, &r.UserID, &r.StartTime, &r.EndTime,
		&r.CreatedAt, &r.UpdatedAt, &r.Username, &r.Email, &r.ClassroomName)
	return r, err
}

// intervalWhere renders the WHERE/LIMIT tail shared by reservation and
// occupancy listings. alias is the table alias of the interval table.
func intervalWhere(alias string, f model.IntervalFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if f.UserID != 0 {
		conds = append(conds, alias+".user_id = ?")
		args = append(args, f.UserID)
	}
	if f.ClassroomID != 0 {
		conds = append(conds, alias+".classroom_id = ?")
		args = append(args, f.ClassroomID)
	}
	if f.From != nil {
		conds = append(conds, alias+".start_time >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		conds = append(conds, alias+".end_time <= ?")
		args = append(args, f.To.UTC())
	}
	var b strings.Builder
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	b.WriteString(" ORDER BY " + alias + ".start_time ASC, " + alias + ".id ASC")
	if f.Limit > 0 {
		b.WriteString(" LIMIT ? OFFSET ?")
		args = append(args, f.Limit, f.Offset)
	}
	return b.String(), args
}

// FindByID returns one reservation with owner and classroom display data.
func (r *ReservationRepo) FindByID(ctx context.Context, id uint64) (model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, reservationSelect+" WHERE r.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Reservation{}, ErrNotFound
	}
	return res, err
}

// FindMany lists reservations ordered by start time.
func (r *ReservationRepo) FindMany(ctx context.Context, f model.IntervalFilter) ([]model.Reservation, error) {
	tail, args := intervalWhere("r", f)
	rows, err := r.db.QueryContext(ctx, reservationSelect+tail, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Reservation, 0)
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// CreateChecked inserts res after verifying, under the classroom lock, that
// its window is free. It fills res.ID. A collision returns *OverlapError.
func (r *ReservationRepo) CreateChecked(ctx context.Context, res *model.Reservation) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockClassroomsTx(ctx, tx, res.ClassroomID); err != nil {
			return err
		}
		candidate := scheduling.Interval{
			Kind: scheduling.KindReservation, ClassroomID: res.ClassroomID,
			UserID: res.UserID, Start: res.StartTime, End: res.EndTime,
		}
		if err := ensureFreeTx(ctx, tx, candidate, scheduling.Exclusion{}); err != nil {
			return err
		}
		out, err := tx.ExecContext(ctx,
			`INSERT INTO reservations (classroom_id, user_id, start_time, end_time, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			res.ClassroomID, res.UserID, res.StartTime.UTC(), res.EndTime.UTC(), res.CreatedAt.UTC(), res.UpdatedAt.UTC())
		if err != nil {
			return err
		}
		id, err := out.LastInsertId()
		if err != nil {
			return err
		}
		res.ID = uint64(id)
		return nil
	})
}

// UpdateChecked moves reservation res.ID to the classroom and window in res.
// Both the previous and the new classroom are locked; the reservation itself
// is excluded from the conflict check. ErrNotFound means the row vanished
// (deleted or promoted) since the caller read it.
func (r *ReservationRepo) UpdateChecked(ctx context.Context, previousClassroomID uint64, res *model.Reservation) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockClassroomsTx(ctx, tx, previousClassroomID, res.ClassroomID); err != nil {
			return err
		}
		var id uint64
		err := tx.QueryRowContext(ctx, "SELECT id FROM reservations WHERE id = ? FOR UPDATE", res.ID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		candidate := scheduling.Interval{
			ID: res.ID, Kind: scheduling.KindReservation, ClassroomID: res.ClassroomID,
			UserID: res.UserID, Start: res.StartTime, End: res.EndTime,
		}
		exclude := scheduling.Exclusion{Kind: scheduling.KindReservation, ID: res.ID}
		if err := ensureFreeTx(ctx, tx, candidate, exclude); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"UPDATE reservations SET classroom_id = ?, start_time = ?, end_time = ?, updated_at = ? WHERE id = ?",
			res.ClassroomID, res.StartTime.UTC(), res.EndTime.UTC(), res.UpdatedAt.UTC(), res.ID)
		return err
	})
}

// Delete removes a reservation.
func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	out, err := r.db.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListDue returns up to limit reservations whose start time is at or before
// now, oldest first. Ids in skip are left out.
func (r *ReservationRepo) ListDue(ctx context.Context, now time.Time, limit int, skip []uint64) ([]model.Reservation, error) {
	q := `SELECT id, classroom_id, user_id, start_time, end_time, created_at, updated_at
		FROM reservations WHERE start_time <= ?`
	args := []any{now.UTC()}
	if len(skip) > 0 {
		q += " AND id NOT IN (" + placeholders(len(skip)) + ")"
		for _, id := range skip {
			args = append(args, id)
		}
	}
	q += " ORDER BY start_time ASC, id ASC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		var res model.Reservation
		if err := rows.Scan(&res.ID, &res.ClassroomID, &res.UserID, &res.StartTime, &res.EndTime,
			&res.CreatedAt, &res.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// PromoteOutcome says what Promote did with one reservation.
type PromoteOutcome int

const (
	// PromoteSkipped: the reservation was gone or had moved classroom
	// before the lock was taken. Nothing changed.
	PromoteSkipped PromoteOutcome = iota
	// Promoted: a new occupancy was inserted and the reservation removed.
	Promoted
	// PromoteDeduplicated: an identical occupancy already existed, so only
	// the reservation was removed.
	PromoteDeduplicated
)

func (o PromoteOutcome) String() string {
	switch o {
	case Promoted:
		return "promoted"
	case PromoteDeduplicated:
		return "deduplicated"
	default:
		return "skipped"
	}
}

// Promote converts reservation id into an occupancy in one transaction.
// Running it twice for the same reservation yields exactly one occupancy.
func (r *ReservationRepo) Promote(ctx context.Context, id uint64, now time.Time) (PromoteOutcome, model.Occupancy, error) {
	var classroomID uint64
	err := r.db.QueryRowContext(ctx, "SELECT classroom_id FROM reservations WHERE id = ?", id).Scan(&classroomID)
	if errors.Is(err, sql.ErrNoRows) {
		return PromoteSkipped, model.Occupancy{}, nil
	}
	if err != nil {
		return PromoteSkipped, model.Occupancy{}, err
	}

	outcome := PromoteSkipped
	var occ model.Occupancy
	err = inTx(ctx, r.db, func(tx *sql.Tx) error {
		if err := lockClassroomsTx(ctx, tx, classroomID); err != nil {
			return err
		}
		var res model.Reservation
		err := tx.QueryRowContext(ctx,
			"SELECT id, classroom_id, user_id, start_time, end_time FROM reservations WHERE id = ? FOR UPDATE", id).
			Scan(&res.ID, &res.ClassroomID, &res.UserID, &res.StartTime, &res.EndTime)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if res.ClassroomID != classroomID {
			// moved between the read and the lock; the next run picks it up
			return nil
		}
		if res.StartTime.After(now) {
			// rescheduled into the future after ListDue saw it
			return nil
		}

		var existing uint64
		err = tx.QueryRowContext(ctx,
			`SELECT id FROM occupancies
			 WHERE classroom_id = ? AND user_id = ? AND start_time = ? AND end_time = ? LIMIT 1`,
			res.ClassroomID, res.UserID, res.StartTime.UTC(), res.EndTime.UTC()).Scan(&existing)
		switch {
		case err == nil:
			outcome = PromoteDeduplicated
		case errors.Is(err, sql.ErrNoRows):
			out, err := tx.ExecContext(ctx,
				`INSERT INTO occupancies (classroom_id, user_id, start_time, end_time, status, created_at, updated_at)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				res.ClassroomID, res.UserID, res.StartTime.UTC(), res.EndTime.UTC(),
				string(model.OccupancyOccupied), now.UTC(), now.UTC())
			if err != nil {
				return err
			}
			newID, err := out.LastInsertId()
			if err != nil {
				return err
			}
			occ = model.Occupancy{
				ID: uint64(newID), ClassroomID: res.ClassroomID, UserID: res.UserID,
				StartTime: res.StartTime, EndTime: res.EndTime, Status: model.OccupancyOccupied,
				CreatedAt: now.UTC(), UpdatedAt: now.UTC(),
			}
			outcome = Promoted
		default:
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM reservations WHERE id = ?", res.ID); err != nil {
			return err
		}
		return nil
	})
	if errors.Is(err, ErrClassroomNotFound) {
		return PromoteSkipped, model.Occupancy{}, nil
	}
	if err != nil {
		return PromoteSkipped, model.Occupancy{}, err
	}
	return outcome, occ, nil
}
