package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/unispace/internal/model"
)

// RequireCapability lets the request through only when the caller's role
// grants every listed capability. It must run after JWTAuth.
func RequireCapability(caps ...model.Capability) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id, ok := IdentityFrom(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			for _, cp := range caps {
				if !id.Can(cp) {
					return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
				}
			}
			return next(c)
		}
	}
}
