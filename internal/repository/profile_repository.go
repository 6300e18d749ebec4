package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/unispace/internal/model"
)

type ProfileRepo struct{ db *sql.DB }

func NewProfileRepo(db *sql.DB) *ProfileRepo { return &ProfileRepo{db: db} }

const profileSelect = `SELECT p.id, p.user_id, p.first_name, p.last_name, p.phone, p.address,
	u.email, p.created_at, p.updated_at
	FROM profiles p JOIN users u ON u.id = p.user_id`

func scanProfile(s rowScanner) (model.Profile, error) {
	var (
		p              model.Profile
		phone, address sql.NullString
	)
	err := s.Scan(&p.ID, &p.UserID, &p.FirstName, &p.LastName, &phone, &address, &p.Email, &p.CreatedAt, &p.UpdatedAt)
	if phone.Valid {
		p.Phone = &phone.String
	}
	if address.Valid {
		p.Address = &address.String
	}
	return p, err
}

func (r *ProfileRepo) List(ctx context.Context) ([]model.Profile, error) {
	rows, err := r.db.QueryContext(ctx, profileSelect+" ORDER BY p.id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Profile, 0)
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *ProfileRepo) GetByID(ctx context.Context, id uint64) (model.Profile, error) {
	p, err := scanProfile(r.db.QueryRowContext(ctx, profileSelect+" WHERE p.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.Profile{}, ErrNotFound
	}
	return p, err
}

// Create inserts a profile; a second profile for the same user is ErrDuplicate.
func (r *ProfileRepo) Create(ctx context.Context, p *model.Profile) error {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO profiles (user_id, first_name, last_name, phone, address) VALUES (?, ?, ?, ?, ?)",
		p.UserID, p.FirstName, p.LastName, p.Phone, p.Address)
	if isDuplicate(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	p.ID = uint64(id)
	return nil
}

func (r *ProfileRepo) Update(ctx context.Context, p model.Profile) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE profiles SET first_name = ?, last_name = ?, phone = ?, address = ? WHERE id = ?",
		p.FirstName, p.LastName, p.Phone, p.Address, p.ID)
	return err
}

func (r *ProfileRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM profiles WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
