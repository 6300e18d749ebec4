package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/unispace/internal/model"
)

// NotificationRepo stores user notifications.
type NotificationRepo struct {
	db *sql.DB
}

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{db: db} }

const notificationSelect = `SELECT n.id, n.user_id, n.occupancy_id, n.message, n.is_read, n.created_at, u.username
	FROM notifications n JOIN users u ON u.id = n.user_id`

func scanNotification(s rowScanner) (model.Notification, error) {
	var (
		n     model.Notification
		occID sql.NullInt64
	)
	if err := s.Scan(&n.ID, &n.UserID, &occID, &n.Message, &n.IsRead, &n.CreatedAt, &n.Username); err != nil {
		return n, err
	}
	if occID.Valid {
		id := uint64(occID.Int64)
		n.OccupancyID = &id
	}
	return n, nil
}

// Create inserts a free-form notification and fills n.ID.
func (r *NotificationRepo) Create(ctx context.Context, n *model.Notification) error {
	out, err := r.db.ExecContext(ctx,
		"INSERT INTO notifications (user_id, message, is_read, created_at) VALUES (?, ?, ?, ?)",
		n.UserID, n.Message, n.IsRead, n.CreatedAt.UTC())
	if err != nil {
		return err
	}
	id, err := out.LastInsertId()
	if err != nil {
		return err
	}
	n.ID = uint64(id)
	return nil
}

func (r *NotificationRepo) FindByID(ctx context.Context, id uint64) (model.Notification, error) {
	n, err := scanNotification(r.db.QueryRowContext(ctx, notificationSelect+" WHERE n.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Notification{}, ErrNotFound
	}
	return n, err
}

// List returns notifications newest first; userID 0 lists everyone's.
func (r *NotificationRepo) List(ctx context.Context, userID uint64, limit, offset int) ([]model.Notification, error) {
	q := notificationSelect
	var args []any
	if userID != 0 {
		q += " WHERE n.user_id = ?"
		args = append(args, userID)
	}
	q += " ORDER BY n.created_at DESC, n.id DESC"
	if limit > 0 {
		q += " LIMIT ? OFFSET ?"
		args = append(args, limit, offset)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (r *NotificationRepo) MarkRead(ctx context.Context, id uint64) error {
	out, err := r.db.ExecContext(ctx, "UPDATE notifications SET is_read = TRUE WHERE id = ?", id)
	if err != nil {
		return err
	}
	// MySQL reports 0 affected rows when is_read was already TRUE.
	if n, _ := out.RowsAffected(); n == 0 {
		var exists uint64
		err := r.db.QueryRowContext(ctx, "SELECT id FROM notifications WHERE id = ?", id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return err
	}
	return nil
}

func (r *NotificationRepo) Delete(ctx context.Context, id uint64) error {
	out, err := r.db.ExecContext(ctx, "DELETE FROM notifications WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := out.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// CreateForOccupancy records the "occupancy started" notification for one
// occupancy. The occupancy row is locked and re-checked, the notification
// inserted and the occupancy stamped notified in a single transaction, so
// concurrent dispatchers create at most one notification per occupancy.
// created is false when there was nothing to do.
func (r *NotificationRepo) CreateForOccupancy(ctx context.Context, occupancyID uint64, now time.Time) (n model.Notification, created bool, err error) {
	err = inTx(ctx, r.db, func(tx *sql.Tx) error {
		var (
			userID    uint64
			status    string
			start     time.Time
			notified  sql.NullTime
			classroom string
			username  string
		)
		err := tx.QueryRowContext(ctx,
			`SELECT o.user_id, o.status, o.start_time, o.notified_at, c.name, u.username
			 FROM occupancies o
			 JOIN classrooms c ON c.id = o.classroom_id
			 JOIN users u ON u.id = o.user_id
			 WHERE o.id = ? FOR UPDATE`, occupancyID).
			Scan(&userID, &status, &start, &notified, &classroom, &username)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return err
		}
		if notified.Valid || model.OccupancyStatus(status) != model.OccupancyOccupied || start.After(now) {
			return nil
		}

		n = model.Notification{
			UserID: userID, OccupancyID: &occupancyID, Username: username,
			Message: model.OccupancyStartedMessage(classroom), CreatedAt: now.UTC(),
		}
		out, err := tx.ExecContext(ctx,
			"INSERT INTO notifications (user_id, occupancy_id, message, is_read, created_at) VALUES (?, ?, ?, FALSE, ?)",
			n.UserID, occupancyID, n.Message, n.CreatedAt)
		if err != nil {
			return err
		}
		id, err := out.LastInsertId()
		if err != nil {
			return err
		}
		n.ID = uint64(id)
		if _, err := tx.ExecContext(ctx,
			"UPDATE occupancies SET notified_at = ? WHERE id = ?", now.UTC(), occupancyID); err != nil {
			return err
		}
		created = true
		return nil
	})
	if isDuplicate(err) {
		return model.Notification{}, false, nil
	}
	if err != nil || !created {
		return model.Notification{}, false, err
	}
	return n, true, nil
}
