package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/service"
)

type ClassroomHandler struct {
	svc ClassroomService
}

func NewClassroomHandler(svc ClassroomService) *ClassroomHandler {
	return &ClassroomHandler{svc: svc}
}

type classroomReq struct {
	Name       string  `json:"name" validate:"required,max=100"`
	FloorID    uint64  `json:"floorId" validate:"required"`
	BuildingID uint64  `json:"buildingId" validate:"required"`
	Capacity   *uint32 `json:"capacity" validate:"omitempty,gt=0"`
}

type classroomPatchReq struct {
	Name     *string `json:"name" validate:"omitempty,max=100"`
	Capacity *uint32 `json:"capacity" validate:"omitempty,gt=0"`
}

func (h *ClassroomHandler) List(c echo.Context) error {
	rows, err := h.svc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *ClassroomHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	cl, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}

func (h *ClassroomHandler) Create(c echo.Context) error {
	var req classroomReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	cl, err := h.svc.Create(c.Request().Context(), actor(c), model.Classroom{
		Name: req.Name, FloorID: req.FloorID, BuildingID: req.BuildingID, Capacity: req.Capacity,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, cl)
}

func (h *ClassroomHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req classroomPatchReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	cl, err := h.svc.Update(c.Request().Context(), actor(c), id, service.ClassroomPatch{Name: req.Name, Capacity: req.Capacity})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, cl)
}
