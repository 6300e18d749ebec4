package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/unispace/internal/service"
)

type ReservationHandler struct {
	svc ReservationService
}

func NewReservationHandler(svc ReservationService) *ReservationHandler {
	return &ReservationHandler{svc: svc}
}

type intervalReq struct {
	ClassroomID uint64     `json:"classroomId"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
}

func (r intervalReq) input() service.IntervalInput {
	return service.IntervalInput{ClassroomID: r.ClassroomID, Start: r.StartTime, End: r.EndTime}
}

type intervalPatchReq struct {
	ClassroomID *uint64    `json:"classroomId" validate:"omitempty,gt=0"`
	StartTime   *time.Time `json:"startTime"`
	EndTime     *time.Time `json:"endTime"`
}

func (r intervalPatchReq) patch() service.IntervalPatch {
	return service.IntervalPatch{ClassroomID: r.ClassroomID, Start: r.StartTime, End: r.EndTime}
}

func (h *ReservationHandler) List(c echo.Context) error {
	f, err := intervalFilter(c)
	if err != nil {
		return writeError(c, err)
	}
	rows, err := h.svc.List(c.Request().Context(), actor(c), f)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *ReservationHandler) Create(c echo.Context) error {
	var req intervalReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	r, err := h.svc.Create(c.Request().Context(), actor(c), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, r)
}

func (h *ReservationHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	r, err := h.svc.Get(c.Request().Context(), actor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req intervalPatchReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	r, err := h.svc.Update(c.Request().Context(), actor(c), id, req.patch())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, r)
}

func (h *ReservationHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), actor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Convert promotes every due reservation now instead of waiting for the
// next scheduled run.
func (h *ReservationHandler) Convert(c echo.Context) error {
	report, err := h.svc.Convert(c.Request().Context(), actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}
