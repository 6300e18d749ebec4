package handler

import (
	"context"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/service"
)

// The interfaces below are the slices of the service layer each handler
// needs; *service.XService values satisfy them.

type AuthService interface {
	Signup(ctx context.Context, caller *model.Identity, in service.SignupInput) (model.User, error)
	CreateUser(ctx context.Context, actor model.Identity, in service.SignupInput) (model.User, error)
	Login(ctx context.Context, username, password string) (service.Session, error)
	Refresh(ctx context.Context, raw string) (service.Session, error)
	Logout(ctx context.Context, raw string) error
	Me(ctx context.Context, actor model.Identity) (model.User, error)
	ListUsers(ctx context.Context, actor model.Identity) ([]model.User, error)
	GetUser(ctx context.Context, actor model.Identity, id uint64) (model.User, error)
	UpdateRole(ctx context.Context, actor model.Identity, id uint64, role string) (model.User, error)
}

type ReservationService interface {
	Create(ctx context.Context, actor model.Identity, in service.IntervalInput) (model.Reservation, error)
	List(ctx context.Context, actor model.Identity, f model.IntervalFilter) ([]model.Reservation, error)
	Get(ctx context.Context, actor model.Identity, id uint64) (model.Reservation, error)
	Update(ctx context.Context, actor model.Identity, id uint64, p service.IntervalPatch) (model.Reservation, error)
	Delete(ctx context.Context, actor model.Identity, id uint64) error
	Convert(ctx context.Context, actor model.Identity) (model.PromotionReport, error)
}

type OccupancyService interface {
	List(ctx context.Context, f model.IntervalFilter) ([]model.Occupancy, error)
	ListByClassroom(ctx context.Context, classroomID uint64, f model.IntervalFilter) ([]model.Occupancy, error)
	Get(ctx context.Context, id uint64) (model.Occupancy, error)
	Create(ctx context.Context, actor model.Identity, in service.OccupancyInput) (model.Occupancy, error)
	Update(ctx context.Context, actor model.Identity, id uint64, p service.OccupancyPatch) (model.Occupancy, error)
	Delete(ctx context.Context, actor model.Identity, id uint64) error
}

type NotificationService interface {
	Create(ctx context.Context, actor model.Identity, userID uint64, message string) (model.Notification, error)
	List(ctx context.Context, actor model.Identity, limit, offset int) ([]model.Notification, error)
	MarkRead(ctx context.Context, actor model.Identity, id uint64) (model.Notification, error)
	Delete(ctx context.Context, actor model.Identity, id uint64) error
}

type ClassroomService interface {
	List(ctx context.Context) ([]model.Classroom, error)
	Get(ctx context.Context, id uint64) (model.Classroom, error)
	Create(ctx context.Context, actor model.Identity, c model.Classroom) (model.Classroom, error)
	Update(ctx context.Context, actor model.Identity, id uint64, p service.ClassroomPatch) (model.Classroom, error)
}

type ProfileService interface {
	List(ctx context.Context) ([]model.Profile, error)
	Get(ctx context.Context, id uint64) (model.Profile, error)
	Create(ctx context.Context, actor model.Identity, p model.Profile) (model.Profile, error)
	Update(ctx context.Context, actor model.Identity, id uint64, p service.ProfilePatch) (model.Profile, error)
	Delete(ctx context.Context, actor model.Identity, id uint64) error
}

var (
	_ AuthService         = (*service.AuthService)(nil)
	_ ReservationService  = (*service.ReservationService)(nil)
	_ OccupancyService    = (*service.OccupancyService)(nil)
	_ NotificationService = (*service.NotificationService)(nil)
	_ ClassroomService    = (*service.ClassroomService)(nil)
	_ ProfileService      = (*service.ProfileService)(nil)
)
