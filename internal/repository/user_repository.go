package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/utils"
)

var (
	ErrUsernameTaken = fmt.Errorf("username %w", ErrDuplicate)
	ErrEmailTaken    = fmt.Errorf("email %w", ErrDuplicate)
)

type UserRepo struct{ DB *sql.DB }

func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{DB: db} }

const userColumns = "id, username, email, password_hash, role, created_at, updated_at"

func scanUser(s rowScanner) (model.User, error) {
	var (
		u    model.User
		role string
	)
	err := s.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &role, &u.CreatedAt, &u.UpdatedAt)
	u.Role = model.Role(role)
	return u, err
}

func normalizeEmail(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

// Create hashes password and inserts the user, returning its id.
func (r *UserRepo) Create(ctx context.Context, username, email, password string, role model.Role, cost int) (uint64, error) {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return 0, err
	}
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO users (username, email, password_hash, role) VALUES (?,?,?,?)",
		strings.TrimSpace(username), normalizeEmail(email), hash, string(role))
	if err != nil {
		return 0, duplicateField(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	return uint64(id), nil
}

// duplicateField maps a 1062 on users to the field that collided.
func duplicateField(err error) error {
	var me *mysql.MySQLError
	if !errors.As(err, &me) || me.Number != mysqlDupEntry {
		return err
	}
	if strings.Contains(me.Message, "email") {
		return ErrEmailTaken
	}
	return ErrUsernameTaken
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE username=? LIMIT 1", strings.TrimSpace(username)))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.DB.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id=? LIMIT 1", id))
	if errors.Is(err, sql.ErrNoRows) {
		return model.User{}, ErrNotFound
	}
	return u, err
}

// Taken reports which of username/email already belong to some user.
func (r *UserRepo) Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT username, email FROM users WHERE username=? OR email=?",
		strings.TrimSpace(username), normalizeEmail(email))
	if err != nil {
		return false, false, err
	}
	defer rows.Close()
	for rows.Next() {
		var u, e string
		if err := rows.Scan(&u, &e); err != nil {
			return false, false, err
		}
		usernameTaken = usernameTaken || u == strings.TrimSpace(username)
		emailTaken = emailTaken || e == normalizeEmail(email)
	}
	return usernameTaken, emailTaken, rows.Err()
}

func (r *UserRepo) List(ctx context.Context) ([]model.User, error) {
	rows, err := r.DB.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY id")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.User, 0)
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *UserRepo) UpdateRole(ctx context.Context, id uint64, role model.Role) error {
	res, err := r.DB.ExecContext(ctx, "UPDATE users SET role=? WHERE id=?", string(role), id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		// unchanged role also reports 0 rows
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
