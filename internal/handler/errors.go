// Package handler adapts HTTP requests to the service layer: it binds and
// validates bodies, resolves the caller, and maps service errors to status
// codes.
package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/unispace/internal/middleware"
	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/service"
	"github.com/iliyamo/unispace/internal/utils"
)

// writeError renders err. Typed service errors carry their own message;
// anything else is logged and hidden behind a generic 500.
func writeError(c echo.Context, err error) error {
	var (
		v  *service.ValidationError
		an *service.AuthenticationError
		az *service.AuthorizationError
		nf *service.NotFoundError
		cf *service.ConflictError
	)
	switch {
	case errors.As(err, &v):
		body := echo.Map{"error": v.Message}
		if len(v.Fields) > 0 {
			body["fields"] = v.Fields
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &an):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": an.Message})
	case errors.As(err, &az):
		return c.JSON(http.StatusForbidden, echo.Map{"error": az.Message})
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Message})
	case errors.As(err, &cf):
		return c.JSON(http.StatusConflict, echo.Map{"error": cf.Message})
	}
	utils.Logger.WithError(err).WithFields(logrus.Fields{
		"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
		"method":     c.Request().Method,
		"route":      c.Path(),
	}).Error("request failed")
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
}

// actor is the caller resolved by middleware.JWTAuth. Routes without that
// middleware get the zero Identity, which holds no capabilities.
func actor(c echo.Context) model.Identity {
	id, _ := middleware.IdentityFrom(c)
	return id
}
