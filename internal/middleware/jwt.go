// Package middleware holds the echo middlewares shared by the API routes.
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/service"
	"github.com/iliyamo/unispace/internal/utils"
)

const identityKey = "identity"

// Identifier resolves a bearer token to the caller, reloading the user so
// deleted accounts and stale roles are rejected.
type Identifier interface {
	Identify(ctx context.Context, raw string) (model.Identity, error)
}

func bearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if auth == "" {
		return "", false
	}
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", true
	}
	return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer ")), true
}

// JWTAuth rejects requests without a valid bearer token and stores the
// caller's model.Identity in the context.
func JWTAuth(auth Identifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, present := bearerToken(c)
			if !present {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			return identify(c, auth, raw, next)
		}
	}
}

// OptionalJWTAuth lets anonymous requests through but still rejects a
// token that is present and invalid.
func OptionalJWTAuth(auth Identifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, present := bearerToken(c)
			if !present {
				return next(c)
			}
			return identify(c, auth, raw, next)
		}
	}
}

func identify(c echo.Context, auth Identifier, raw string, next echo.HandlerFunc) error {
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}
	id, err := auth.Identify(c.Request().Context(), raw)
	if err != nil {
		var ae *service.AuthenticationError
		if errors.As(err, &ae) {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": ae.Message})
		}
		utils.Logger.WithError(err).Error("identify caller")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
	}
	SetIdentity(c, id)
	return next(c)
}

func SetIdentity(c echo.Context, id model.Identity) { c.Set(identityKey, id) }

// IdentityFrom returns the caller stored by JWTAuth.
func IdentityFrom(c echo.Context) (model.Identity, bool) {
	id, ok := c.Get(identityKey).(model.Identity)
	return id, ok
}
