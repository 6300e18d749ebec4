package repository

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/iliyamo/unispace/internal/scheduling"
)

// lockClassroomsTx takes exclusive row locks on the given classrooms in
// ascending id order. Every writer of reservations or occupancies goes
// through here first, which serializes check-then-write per classroom.
func lockClassroomsTx(ctx context.Context, tx *sql.Tx, ids ...uint64) error {
	uniq := make([]uint64, 0, len(ids))
	seen := make(map[uint64]bool, len(ids))
	for _, id := range ids {
		if id != 0 && !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	if len(uniq) == 0 {
		return ErrClassroomNotFound
	}
	sort.Slice(uniq, func(i, j int) bool { return uniq[i] < uniq[j] })

	args := make([]any, len(uniq))
	for i, id := range uniq {
		args[i] = id
	}
	rows, err := tx.QueryContext(ctx,
		"SELECT id FROM classrooms WHERE id IN ("+placeholders(len(uniq))+") ORDER BY id FOR UPDATE", args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	found := 0
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		found++
	}
	if err := rows.Err(); err != nil {
		return err
	}
	if found != len(uniq) {
		return ErrClassroomNotFound
	}
	return nil
}

// overlappingTx returns every blocking interval on the classroom whose
// window intersects [start, end): reservations, and occupancies that are
// still occupied. The SQL predicate is the same half-open test as
// scheduling.Overlaps.
func overlappingTx(ctx context.Context, tx *sql.Tx, classroomID uint64, start, end time.Time) ([]scheduling.Interval, error) {
	var out []scheduling.Interval

	const resQ = `SELECT id, classroom_id, user_id, start_time, end_time FROM reservations
		WHERE classroom_id = ? AND start_time < ? AND end_time > ?`
	if err := collectIntervals(ctx, tx, &out, scheduling.KindReservation, resQ, classroomID, end.UTC(), start.UTC()); err != nil {
		return nil, err
	}

	const occQ = `SELECT id, classroom_id, user_id, start_time, end_time FROM occupancies
		WHERE classroom_id = ? AND start_time < ? AND end_time > ? AND status = 'occupied'`
	if err := collectIntervals(ctx, tx, &out, scheduling.KindOccupancy, occQ, classroomID, end.UTC(), start.UTC()); err != nil {
		return nil, err
	}
	return out, nil
}

func collectIntervals(ctx context.Context, tx *sql.Tx, out *[]scheduling.Interval, kind scheduling.Kind, q string, args ...any) error {
	rows, err := tx.QueryContext(ctx, q, args...)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		iv := scheduling.Interval{Kind: kind}
		if err := rows.Scan(&iv.ID, &iv.ClassroomID, &iv.UserID, &iv.Start, &iv.End); err != nil {
			return err
		}
		*out = append(*out, iv)
	}
	return rows.Err()
}

// ensureFreeTx fails with *OverlapError when candidate collides with any
// blocking interval other than the excluded row. Callers must already hold
// the classroom lock.
func ensureFreeTx(ctx context.Context, tx *sql.Tx, candidate scheduling.Interval, exclude scheduling.Exclusion) error {
	existing, err := overlappingTx(ctx, tx, candidate.ClassroomID, candidate.Start, candidate.End)
	if err != nil {
		return err
	}
	if hit, ok := scheduling.FirstConflict(existing, candidate, exclude); ok {
		return &OverlapError{With: hit}
	}
	return nil
}
