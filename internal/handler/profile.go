package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/service"
)

type ProfileHandler struct {
	svc ProfileService
}

func NewProfileHandler(svc ProfileService) *ProfileHandler { return &ProfileHandler{svc: svc} }

type profileReq struct {
	UserID    uint64  `json:"userId"`
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
}

type profilePatchReq struct {
	FirstName *string `json:"firstName" validate:"omitempty,max=100"`
	LastName  *string `json:"lastName" validate:"omitempty,max=100"`
	Phone     *string `json:"phone" validate:"omitempty,max=32"`
	Address   *string `json:"address" validate:"omitempty,max=255"`
}

func (h *ProfileHandler) List(c echo.Context) error {
	rows, err := h.svc.List(c.Request().Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *ProfileHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

// Create makes a profile for the caller, or for userId when the caller is an admin.
func (h *ProfileHandler) Create(c echo.Context) error {
	var req profileReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	p, err := h.svc.Create(c.Request().Context(), actor(c), model.Profile{
		UserID: req.UserID, FirstName: req.FirstName, LastName: req.LastName,
		Phone: req.Phone, Address: req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *ProfileHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req profilePatchReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	p, err := h.svc.Update(c.Request().Context(), actor(c), id, service.ProfilePatch{
		FirstName: req.FirstName, LastName: req.LastName, Phone: req.Phone, Address: req.Address,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, p)
}

func (h *ProfileHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), actor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
