package handler

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
)

// HealthHandler reports liveness plus the reachability of MySQL and, when
// configured, Redis.
type HealthHandler struct {
	db  *sql.DB
	rdb *redis.Client
}

func NewHealthHandler(db *sql.DB, rdb *redis.Client) *HealthHandler {
	return &HealthHandler{db: db, rdb: rdb}
}

func (h *HealthHandler) Health(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	body := echo.Map{"status": "ok", "db": "ok", "redis": "disabled"}
	if err := h.db.PingContext(ctx); err != nil {
		status = http.StatusServiceUnavailable
		body["status"], body["db"] = "degraded", err.Error()
	}
	if h.rdb != nil {
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			status = http.StatusServiceUnavailable
			body["status"], body["redis"] = "degraded", err.Error()
		} else {
			body["redis"] = "ok"
		}
	}
	return c.JSON(status, body)
}
