// Package repository is the MySQL persistence layer. Repositories own their
// transactions: every check-then-write sequence runs inside one transaction
// that first locks the classroom row it touches.
package repository

import (
	"errors"
	"fmt"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/unispace/internal/scheduling"
)

// ErrNotFound is returned when the addressed row does not exist.
var ErrNotFound = errors.New("not found")

// ErrClassroomNotFound is returned when a write references a classroom id
// that does not exist.
var ErrClassroomNotFound = errors.New("classroom not found")

// ErrDuplicate signals a unique-key violation (username, email, one profile
// per user, one notification per occupancy).
var ErrDuplicate = errors.New("duplicate")

// ErrOverlap is the sentinel matched by *OverlapError.
var ErrOverlap = errors.New("interval overlaps an existing booking")

// OverlapError carries the interval that blocked a write.
type OverlapError struct {
	With scheduling.Interval
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("%s: %s %d [%s, %s)", ErrOverlap, e.With.Kind, e.With.ID,
		e.With.Start.Format("2006-01-02T15:04"), e.With.End.Format("2006-01-02T15:04"))
}

func (e *OverlapError) Is(target error) bool { return target == ErrOverlap }

const mysqlDupEntry = 1062

func isDuplicate(err error) bool {
	var me *mysql.MySQLError
	return errors.As(err, &me) && me.Number == mysqlDupEntry
}
