package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
)

const msgNotificationAbsent = "Notification not found"

type NotificationService struct {
	store  NotificationStore
	users  UserStore
	pusher Pusher
	now    Clock
}

func NewNotificationService(store NotificationStore, users UserStore, pusher Pusher) *NotificationService {
	return &NotificationService{store: store, users: users, pusher: pusher, now: systemClock}
}

func (s *NotificationService) WithClock(c Clock) *NotificationService {
	s.now = c
	return s
}

// Create stores a message for userID and pushes it live after the insert.
func (s *NotificationService) Create(ctx context.Context, actor model.Identity, userID uint64, message string) (model.Notification, error) {
	if !actor.Can(model.CapNotificationCreate) {
		return model.Notification{}, forbidden("Your role cannot send notifications")
	}
	message = strings.TrimSpace(message)
	if userID == 0 || message == "" {
		return model.Notification{}, invalid("userId and message are required")
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Notification{}, notFound("User not found")
	}
	if err != nil {
		return model.Notification{}, err
	}
	n := model.Notification{UserID: userID, Message: message, CreatedAt: s.now(), Username: u.Username}
	if err := s.store.Create(ctx, &n); err != nil {
		return model.Notification{}, err
	}
	if s.pusher != nil {
		s.pusher.Push(ctx, n.UserID, n)
	}
	return n, nil
}

// List returns every notification for admins and the caller's own for
// everyone else, newest first.
func (s *NotificationService) List(ctx context.Context, actor model.Identity, limit, offset int) ([]model.Notification, error) {
	if !actor.Can(model.CapNotificationRead) {
		return nil, forbidden("Your role cannot read notifications")
	}
	scope := actor.ID
	if actor.Can(model.CapOverrideOwnership) {
		scope = 0
	}
	return s.store.List(ctx, scope, limit, offset)
}

func (s *NotificationService) MarkRead(ctx context.Context, actor model.Identity, id uint64) (model.Notification, error) {
	n, err := s.owned(ctx, actor, id)
	if err != nil {
		return model.Notification{}, err
	}
	if err := s.store.MarkRead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Notification{}, notFound(msgNotificationAbsent)
		}
		return model.Notification{}, err
	}
	n.IsRead = true
	return n, nil
}

func (s *NotificationService) Delete(ctx context.Context, actor model.Identity, id uint64) error {
	if _, err := s.owned(ctx, actor, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(msgNotificationAbsent)
		}
		return err
	}
	return nil
}

func (s *NotificationService) owned(ctx context.Context, actor model.Identity, id uint64) (model.Notification, error) {
	n, err := s.store.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Notification{}, notFound(msgNotificationAbsent)
	}
	if err != nil {
		return model.Notification{}, err
	}
	if !actor.Owns(n.UserID) {
		return model.Notification{}, forbidden("Unauthorized to access this notification")
	}
	return n, nil
}
