package router

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/iliyamo/unispace/internal/handler"
	"github.com/iliyamo/unispace/internal/live"
	"github.com/iliyamo/unispace/internal/metrics"
	"github.com/iliyamo/unispace/internal/model"
)

type stubIdentifier map[string]model.Identity

func (s stubIdentifier) Identify(_ context.Context, raw string) (model.Identity, error) {
	if id, ok := s[raw]; ok {
		return id, nil
	}
	return model.Identity{}, errors.New("invalid token")
}

func testDeps() Deps {
	ids := stubIdentifier{"student": {ID: 3, Username: "student1", Role: model.RoleStudent}}
	return Deps{
		Auth:          handler.NewAuthHandler(nil),
		Reservations:  handler.NewReservationHandler(nil),
		Occupancy:     handler.NewOccupancyHandler(nil),
		Notifications: handler.NewNotificationHandler(nil),
		Classrooms:    handler.NewClassroomHandler(nil),
		Profiles:      handler.NewProfileHandler(nil),
		Live:          live.NewHandler(live.NewHub(nil), ids, nil),
		Identifier:    ids,
	}
}

func TestRoutesAreMounted(t *testing.T) {
	e := New(metrics.NewDiscard(), []string{"*"})
	RegisterRoutes(e, testDeps())

	mounted := map[string]bool{}
	for _, r := range e.Routes() {
		mounted[r.Method+" "+r.Path] = true
	}
	for _, want := range []string{
		"POST /api/signup", "POST /api/login", "POST /api/login/refresh", "POST /api/logout", "GET /api/me",
		"GET /api/users", "POST /api/users", "GET /api/users/:id", "PATCH /api/users/:id",
		"GET /api/classrooms", "POST /api/classrooms", "GET /api/classrooms/:id", "PATCH /api/classrooms/:id",
		"GET /api/reservations", "POST /api/reservations", "POST /api/reservations/convert",
		"GET /api/reservations/:id", "PATCH /api/reservations/:id", "DELETE /api/reservations/:id",
		"GET /api/occupancy", "POST /api/occupancy", "GET /api/occupancy/classroom/:classroomId",
		"GET /api/occupancy/:id", "PATCH /api/occupancy/:id", "DELETE /api/occupancy/:id",
		"GET /api/notifications", "POST /api/notifications", "PATCH /api/notifications/:id/read", "DELETE /api/notifications/:id",
		"GET /api/profiles", "POST /api/profiles", "GET /api/profiles/:id", "PUT /api/profiles/:id", "DELETE /api/profiles/:id",
		"GET /api/live",
	} {
		assert.True(t, mounted[want], want)
	}
}

func TestCapabilityGates(t *testing.T) {
	e := New(nil, nil)
	RegisterRoutes(e, testDeps())

	cases := []struct {
		method, path, token string
		status              int
	}{
		{http.MethodGet, "/api/reservations", "", http.StatusUnauthorized},
		{http.MethodPost, "/api/reservations", "student", http.StatusForbidden},
		{http.MethodPost, "/api/reservations/convert", "student", http.StatusForbidden},
		{http.MethodPost, "/api/occupancy", "student", http.StatusForbidden},
		{http.MethodPost, "/api/notifications", "student", http.StatusForbidden},
		{http.MethodGet, "/api/users", "student", http.StatusForbidden},
		{http.MethodPost, "/api/classrooms", "student", http.StatusForbidden},
		{http.MethodDelete, "/api/profiles/1", "student", http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		if tc.token != "" {
			req.Header.Set("Authorization", "Bearer "+tc.token)
		}
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, tc.status, rec.Code, tc.method+" "+tc.path)
	}
}
