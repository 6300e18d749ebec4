package service

import (
	"context"
	"errors"
	"strings"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
)

type ClassroomService struct {
	store ClassroomStore
}

func NewClassroomService(store ClassroomStore) *ClassroomService {
	return &ClassroomService{store: store}
}

func (s *ClassroomService) List(ctx context.Context) ([]model.Classroom, error) {
	return s.store.List(ctx)
}

func (s *ClassroomService) Get(ctx context.Context, id uint64) (model.Classroom, error) {
	c, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Classroom{}, notFound(msgClassroomAbsent)
	}
	return c, err
}

func (s *ClassroomService) Create(ctx context.Context, actor model.Identity, c model.Classroom) (model.Classroom, error) {
	if !actor.Can(model.CapClassroomAdmin) {
		return model.Classroom{}, forbidden("Forbidden - Admin Only.")
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" || c.FloorID == 0 || c.BuildingID == 0 {
		return model.Classroom{}, invalid("name, floorId and buildingId are required")
	}
	if err := s.store.Create(ctx, &c); err != nil {
		if errors.Is(err, repository.ErrPlacementInvalid) {
			return model.Classroom{}, notFound("Floor or building not found")
		}
		return model.Classroom{}, err
	}
	return s.Get(ctx, c.ID)
}

// ClassroomPatch changes display data only; placement is fixed.
type ClassroomPatch struct {
	Name     *string
	Capacity *uint32
}

func (s *ClassroomService) Update(ctx context.Context, actor model.Identity, id uint64, p ClassroomPatch) (model.Classroom, error) {
	if !actor.Can(model.CapClassroomAdmin) {
		return model.Classroom{}, forbidden("Forbidden - Admin Only.")
	}
	if p.Name == nil && p.Capacity == nil {
		return model.Classroom{}, invalid("At least one field (name, capacity) must be provided")
	}
	c, err := s.Get(ctx, id)
	if err != nil {
		return model.Classroom{}, err
	}
	if p.Name != nil {
		name := strings.TrimSpace(*p.Name)
		if name == "" {
			return model.Classroom{}, invalidField("name", "name cannot be empty")
		}
		c.Name = name
	}
	if p.Capacity != nil {
		c.Capacity = p.Capacity
	}
	if err := s.store.Update(ctx, c); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.Classroom{}, notFound(msgClassroomAbsent)
		}
		return model.Classroom{}, err
	}
	return c, nil
}
