package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
)

const msgProfileAbsent = "Profile not found"

type ProfileService struct {
	store ProfileStore
	users UserStore
}

func NewProfileService(store ProfileStore, users UserStore) *ProfileService {
	return &ProfileService{store: store, users: users}
}

func (s *ProfileService) List(ctx context.Context) ([]model.Profile, error) {
	return s.store.List(ctx)
}

func (s *ProfileService) Get(ctx context.Context, id uint64) (model.Profile, error) {
	p, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Profile{}, notFound(msgProfileAbsent)
	}
	return p, err
}

// Create adds a profile for p.UserID, which defaults to the caller. Only
// admins may create a profile for someone else.
func (s *ProfileService) Create(ctx context.Context, actor model.Identity, p model.Profile) (model.Profile, error) {
	if p.UserID == 0 {
		p.UserID = actor.ID
	}
	p.FirstName, p.LastName = strings.TrimSpace(p.FirstName), strings.TrimSpace(p.LastName)
	if p.FirstName == "" || p.LastName == "" {
		return model.Profile{}, invalid("Missing required fields")
	}
	if p.UserID != actor.ID && !actor.Can(model.CapProfileAdmin) {
		return model.Profile{}, forbidden("You can only create your own profile")
	}
	if _, err := s.users.GetByID(ctx, p.UserID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Profile{}, notFound("User not found")
		}
		return model.Profile{}, err
	}
	if err := s.store.Create(ctx, &p); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return model.Profile{}, conflict("Profile already exists for this user")
		}
		return model.Profile{}, err
	}
	return s.Get(ctx, p.ID)
}

// ProfilePatch replaces the editable fields that are non-nil.
type ProfilePatch struct {
	FirstName *string
	LastName  *string
	Phone     *string
	Address   *string
}

func (s *ProfileService) Update(ctx context.Context, actor model.Identity, id uint64, patch ProfilePatch) (model.Profile, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return model.Profile{}, err
	}
	if !actor.Owns(p.UserID) {
		return model.Profile{}, forbidden("You can only update your own profile")
	}
	if patch.FirstName != nil {
		p.FirstName = strings.TrimSpace(*patch.FirstName)
	}
	if patch.LastName != nil {
		p.LastName = strings.TrimSpace(*patch.LastName)
	}
	if p.FirstName == "" || p.LastName == "" {
		return model.Profile{}, invalid("firstName and lastName cannot be empty")
	}
	if patch.Phone != nil {
		p.Phone = patch.Phone
	}
	if patch.Address != nil {
		p.Address = patch.Address
	}
	if err := s.store.Update(ctx, p); err != nil {
		return model.Profile{}, err
	}
	return s.Get(ctx, id)
}

func (s *ProfileService) Delete(ctx context.Context, actor model.Identity, id uint64) error {
	if !actor.Can(model.CapProfileAdmin) {
		return forbidden("Forbidden - Admin Only.")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return notFound(msgProfileAbsent)
		}
		return err
	}
	return nil
}
