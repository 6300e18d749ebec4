package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type NotificationHandler struct {
	svc NotificationService
}

func NewNotificationHandler(svc NotificationService) *NotificationHandler {
	return &NotificationHandler{svc: svc}
}

type notificationReq struct {
	UserID  uint64 `json:"userId" validate:"required"`
	Message string `json:"message" validate:"required,max=1000"`
}

// List returns the caller's notifications, newest first; admins see all.
func (h *NotificationHandler) List(c echo.Context) error {
	limit, offset, err := page(c)
	if err != nil {
		return writeError(c, err)
	}
	rows, err := h.svc.List(c.Request().Context(), actor(c), limit, offset)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, rows)
}

func (h *NotificationHandler) Create(c echo.Context) error {
	var req notificationReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	n, err := h.svc.Create(c.Request().Context(), actor(c), req.UserID, req.Message)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, n)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	n, err := h.svc.MarkRead(c.Request().Context(), actor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, n)
}

func (h *NotificationHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Delete(c.Request().Context(), actor(c), id); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}
