package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"
)

// ErrTokenInvalid covers unknown, revoked and expired refresh tokens.
var ErrTokenInvalid = errors.New("refresh token invalid")

// TokenRepo keeps hashed refresh tokens; raw values never reach the database.
type TokenRepo struct{ DB *sql.DB }

func NewTokenRepo(db *sql.DB) *TokenRepo { return &TokenRepo{DB: db} }

func (r *TokenRepo) Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
		userID, tokenHash, exp.UTC())
	return err
}

// Rotate revokes oldHash and stores newHash for the same user atomically,
// returning that user. The old row is locked so a token can be spent once.
func (r *TokenRepo) Rotate(ctx context.Context, oldHash, newHash string, exp, now time.Time) (uint64, error) {
	var userID uint64
	err := inTx(ctx, r.DB, func(tx *sql.Tx) error {
		var (
			expiresAt time.Time
			revokedAt sql.NullTime
		)
		err := tx.QueryRowContext(ctx,
			"SELECT user_id, expires_at, revoked_at FROM refresh_tokens WHERE token_hash=? FOR UPDATE",
			oldHash).Scan(&userID, &expiresAt, &revokedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrTokenInvalid
		}
		if err != nil {
			return err
		}
		if revokedAt.Valid || !now.Before(expiresAt) {
			return ErrTokenInvalid
		}
		if _, err := tx.ExecContext(ctx,
			"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=?", now.UTC(), oldHash); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx,
			"INSERT INTO refresh_tokens (user_id, token_hash, expires_at) VALUES (?,?,?)",
			userID, newHash, exp.UTC())
		return err
	})
	if err != nil {
		return 0, err
	}
	return userID, nil
}

func (r *TokenRepo) Revoke(ctx context.Context, tokenHash string, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE token_hash=? AND revoked_at IS NULL",
		now.UTC(), tokenHash)
	return err
}

// RevokeAllForUser is used when an admin changes a user's role.
func (r *TokenRepo) RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_tokens SET revoked_at=? WHERE user_id=? AND revoked_at IS NULL",
		now.UTC(), userID)
	return err
}
