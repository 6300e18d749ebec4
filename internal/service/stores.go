package service

import (
	"context"
	"time"

	"github.com/iliyamo/unispace/internal/model"
)

// Clock returns the current instant; tests replace it.
type Clock func() time.Time

func systemClock() time.Time { return time.Now().UTC() }

type ReservationStore interface {
	FindByID(ctx context.Context, id uint64) (model.Reservation, error)
	FindMany(ctx context.Context, f model.IntervalFilter) ([]model.Reservation, error)
	CreateChecked(ctx context.Context, r *model.Reservation) error
	UpdateChecked(ctx context.Context, previousClassroomID uint64, r *model.Reservation) error
	Delete(ctx context.Context, id uint64) error
}

type OccupancyStore interface {
	FindByID(ctx context.Context, id uint64) (model.Occupancy, error)
	FindMany(ctx context.Context, f model.IntervalFilter) ([]model.Occupancy, error)
	CreateChecked(ctx context.Context, o *model.Occupancy) error
	UpdateChecked(ctx context.Context, previousClassroomID uint64, o *model.Occupancy) error
	Delete(ctx context.Context, id uint64) error
}

type NotificationStore interface {
	Create(ctx context.Context, n *model.Notification) error
	FindByID(ctx context.Context, id uint64) (model.Notification, error)
	List(ctx context.Context, userID uint64, limit, offset int) ([]model.Notification, error)
	MarkRead(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

type UserStore interface {
	Create(ctx context.Context, username, email, password string, role model.Role, cost int) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	Taken(ctx context.Context, username, email string) (usernameTaken, emailTaken bool, err error)
	List(ctx context.Context) ([]model.User, error)
	UpdateRole(ctx context.Context, id uint64, role model.Role) error
}

type TokenStore interface {
	Store(ctx context.Context, userID uint64, tokenHash string, exp time.Time) error
	Rotate(ctx context.Context, oldHash, newHash string, exp, now time.Time) (uint64, error)
	Revoke(ctx context.Context, tokenHash string, now time.Time) error
	RevokeAllForUser(ctx context.Context, userID uint64, now time.Time) error
}

type ClassroomStore interface {
	List(ctx context.Context) ([]model.Classroom, error)
	GetByID(ctx context.Context, id uint64) (model.Classroom, error)
	Exists(ctx context.Context, id uint64) (bool, error)
	Create(ctx context.Context, c *model.Classroom) error
	Update(ctx context.Context, c model.Classroom) error
}

type ProfileStore interface {
	List(ctx context.Context) ([]model.Profile, error)
	GetByID(ctx context.Context, id uint64) (model.Profile, error)
	Create(ctx context.Context, p *model.Profile) error
	Update(ctx context.Context, p model.Profile) error
	Delete(ctx context.Context, id uint64) error
}

// PromotionRunner runs the reservation-to-occupancy promotion once.
type PromotionRunner interface {
	Run(ctx context.Context) (model.PromotionReport, error)
}

// Pusher delivers a notification to the live sessions of its user.
type Pusher interface {
	Push(ctx context.Context, userID uint64, n model.Notification)
}
