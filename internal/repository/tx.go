package repository

import (
	"context"
	"database/sql"
	"strings"
)

// writeTxOptions makes every statement after the classroom lock read the
// latest committed rows, so a conflict query never runs on a stale snapshot.
var writeTxOptions = &sql.TxOptions{Isolation: sql.LevelReadCommitted}

// inTx runs fn in a transaction, committing on nil and rolling back on any
// error or panic.
func inTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) error {
	tx, err := db.BeginTx(ctx, writeTxOptions)
	if err != nil {
		return err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	committed = true
	return nil
}

// placeholders returns "?,?,?" for n > 0.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

type rowScanner interface {
	Scan(dest ...any) error
}
