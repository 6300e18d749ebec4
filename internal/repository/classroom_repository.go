package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/unispace/internal/model"
)

// ErrPlacementInvalid means the floor or building of a new classroom
// does not exist.
var ErrPlacementInvalid = errors.New("floor or building not found")

type ClassroomRepo struct{ db *sql.DB }

func NewClassroomRepo(db *sql.DB) *ClassroomRepo { return &ClassroomRepo{db: db} }

const classroomSelect = `SELECT c.id, c.name, c.floor_id, c.building_id, c.capacity, f.name, b.name, c.created_at
	FROM classrooms c
	JOIN floors f ON f.id = c.floor_id
	JOIN buildings b ON b.id = c.building_id`

func scanClassroom(s rowScanner) (model.Classroom, error) {
	var (
		c        model.Classroom
		capacity sql.NullInt64
	)
	err := s.Scan(&c.ID, &c.Name, &c.FloorID, &c.BuildingID, &capacity, &c.FloorName, &c.BuildingName, &c.CreatedAt)
	if err == nil && capacity.Valid {
		v := uint32(capacity.Int64)
		c.Capacity = &v
	}
	return c, err
}

func (r *ClassroomRepo) List(ctx context.Context) ([]model.Classroom, error) {
	rows, err := r.db.QueryContext(ctx, classroomSelect+" ORDER BY c.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Classroom, 0)
	for rows.Next() {
		c, err := scanClassroom(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *ClassroomRepo) GetByID(ctx context.Context, id uint64) (model.Classroom, error) {
	c, err := scanClassroom(r.db.QueryRowContext(ctx, classroomSelect+" WHERE c.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Classroom{}, ErrNotFound
	}
	return c, err
}

func (r *ClassroomRepo) Exists(ctx context.Context, id uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM classrooms WHERE id = ?", id).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// Create inserts a classroom after checking its floor and building exist.
func (r *ClassroomRepo) Create(ctx context.Context, c *model.Classroom) error {
	return inTx(ctx, r.db, func(tx *sql.Tx) error {
		var n int
		err := tx.QueryRowContext(ctx,
			"SELECT COUNT(*) FROM buildings WHERE id = ? AND floor_id = ?", c.BuildingID, c.FloorID).Scan(&n)
		if err != nil {
			return err
		}
		if n == 0 {
			return ErrPlacementInvalid
		}
		res, err := tx.ExecContext(ctx,
			"INSERT INTO classrooms (name, floor_id, building_id, capacity) VALUES (?, ?, ?, ?)",
			c.Name, c.FloorID, c.BuildingID, c.Capacity)
		if err != nil {
			return err
		}
		id, err := res.LastInsertId()
		if err != nil {
			return err
		}
		c.ID = uint64(id)
		return nil
	})
}

// Update changes name and capacity.
func (r *ClassroomRepo) Update(ctx context.Context, c model.Classroom) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE classrooms SET name = ?, capacity = ? WHERE id = ?", c.Name, c.Capacity, c.ID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		if ok, err := r.Exists(ctx, c.ID); err != nil {
			return err
		} else if !ok {
			return ErrNotFound
		}
	}
	return nil
}

// CreateFloor and CreateBuilding are used by the seed command.
func (r *ClassroomRepo) CreateFloor(ctx context.Context, name string) (uint64, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO floors (name) VALUES (?)", name)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

func (r *ClassroomRepo) CreateBuilding(ctx context.Context, name string, floorID uint64) (uint64, error) {
	res, err := r.db.ExecContext(ctx, "INSERT INTO buildings (name, floor_id) VALUES (?, ?)", name, floorID)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}
