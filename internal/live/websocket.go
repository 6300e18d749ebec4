package live

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/utils"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	maxInbound = 4096
)

// Identifier resolves a raw access token to the caller.
type Identifier interface {
	Identify(ctx context.Context, raw string) (model.Identity, error)
}

// Handler serves GET /api/live. The caller authenticates with a bearer
// header or a token query parameter, since browsers cannot set headers on
// a websocket handshake.
type Handler struct {
	hub      *Hub
	auth     Identifier
	upgrader websocket.Upgrader
}

// NewHandler accepts handshakes from the given origins; "*" or an empty
// list accepts any origin.
func NewHandler(hub *Hub, auth Identifier, origins []string) *Handler {
	return &Handler{
		hub:  hub,
		auth: auth,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(origins),
		},
	}
}

func originChecker(origins []string) func(*http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.TrimRight(o, "/")] = true
	}
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func bearer(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return r.URL.Query().Get("token")
}

func (h *Handler) Serve(c echo.Context) error {
	raw := bearer(c.Request())
	if raw == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
	}
	id, err := h.auth.Identify(c.Request().Context(), raw)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
	}

	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		// Upgrade has already written the error response.
		return nil
	}
	s := NewSession(id.ID)
	leave := h.hub.Join(id.ID, s)
	log := utils.Logger.WithFields(logrus.Fields{"user_id": id.ID, "session": s.ID, "room": Room(id.ID)})
	log.Debug("live session opened")

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.readLoop(conn)
	}()
	h.writeLoop(conn, s, done)

	leave()
	_ = conn.Close()
	<-done
	log.Debug("live session closed")
	return nil
}

// readLoop discards client frames and returns once the peer goes away or
// stops answering pings.
func (h *Handler) readLoop(conn *websocket.Conn) {
	conn.SetReadLimit(maxInbound)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Handler) writeLoop(conn *websocket.Conn, s *Session, done <-chan struct{}) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case payload := <-s.Outbox():
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
