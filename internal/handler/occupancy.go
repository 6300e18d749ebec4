package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/unispace/internal/service"
)

type OccupancyHandler struct {
	svc OccupancyService
}

func NewOccupancyHandler(svc OccupancyService) *OccupancyHandler {
	return &OccupancyHandler{svc: svc}
}

type occupancyReq struct {
	intervalReq
	Status string `json:"status" validate:"omitempty,oneof=occupied released cancelled"`
}

type occupancyPatchReq struct {
	intervalPatchReq
	Status *string `json:"status" validate:"omitempty,oneof=occupied released cancelled"`
}

func (h *OccupancyHandler) List(c echo.Context) error {
	f, err := intervalFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	rows, err := h.svc.List(c.Request().Context(), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

// ListByClassroom: GET /api/occupancy/classroom/:classroomId
func (h *OccupancyHandler) ListByClassroom(c echo.Context) error {
	classroomID, err := pathID(c, "classroomId")
	if err != nil {
		return writeError(c, err)
	}
	f, err := intervalFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	rows, err := h.svc.ListByClassroom(c.Request().Context(), classroomID, f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *OccupancyHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	o, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OccupancyHandler) Create(c echo.Context) error {
	var req occupancyReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	o, err := h.svc.Create(c.Request().Context(), actor(c), service.OccupancyInput{
		IntervalInput: req.input(),
		Status:        req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, o)
}

func (h *OccupancyHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req occupancyPatchReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	o, err := h.svc.Update(c.Request().Context(), actor(c), id, service.OccupancyPatch{
		IntervalPatch: req.patch(),
		Status:        req.Status,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, o)
}

func (h *OccupancyHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), actor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
