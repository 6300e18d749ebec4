package middleware

import (
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/unispace/internal/metrics"
	"github.com/iliyamo/unispace/internal/utils"
)

// RequestID reuses an inbound X-Request-ID or assigns a new one and echoes
// it on the response.
func RequestID() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)
			return next(c)
		}
	}
}

// RequestLogger writes one line per request and records its latency.
func RequestLogger(m *metrics.Metrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status
			elapsed := time.Since(start)
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			if m != nil {
				m.HTTPDuration.WithLabelValues(c.Request().Method, route, statusClass(status)).Observe(elapsed.Seconds())
			}

			fields := logrus.Fields{
				"request_id": c.Response().Header().Get(echo.HeaderXRequestID),
				"method":     c.Request().Method,
				"route":      route,
				"status":     status,
				"latency_ms": elapsed.Milliseconds(),
				"ip":         c.RealIP(),
			}
			if id, ok := IdentityFrom(c); ok {
				fields["user_id"] = id.ID
			}
			entry := utils.Logger.WithFields(fields)
			switch {
			case status >= 500:
				entry.Error("request")
			case status >= 400:
				entry.Info("request")
			default:
				entry.Debug("request")
			}
			return nil
		}
	}
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
