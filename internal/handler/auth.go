package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/unispace/internal/middleware"
	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/service"
)

type AuthHandler struct {
	svc AuthService
}

func NewAuthHandler(svc AuthService) *AuthHandler { return &AuthHandler{svc: svc} }

// ----- DTOs -----

type signupReq struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=6,max=128"`
	Role     string `json:"role" validate:"omitempty,oneof=STUDENT TEACHER REPRESENTATIVE ADMIN student teacher representative admin"`
}

type loginReq struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

type refreshReq struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

type roleReq struct {
	Role string `json:"role" validate:"required"`
}

type userView struct {
	ID        uint64     `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Role      model.Role `json:"role"`
	CreatedAt time.Time  `json:"createdAt"`
}

func viewUser(u model.User) userView {
	return userView{ID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role, CreatedAt: u.CreatedAt}
}

type sessionResp struct {
	Token            string     `json:"token"`
	ExpiresAt        time.Time  `json:"expiresAt"`
	RefreshToken     string     `json:"refresh_token"`
	RefreshExpiresAt time.Time  `json:"refreshExpiresAt"`
	ID               uint64     `json:"id"`
	Username         string     `json:"username"`
	Role             model.Role `json:"role"`
}

func viewSession(s service.Session) sessionResp {
	return sessionResp{
		Token: s.Access.Token, ExpiresAt: s.Access.Exp,
		RefreshToken: s.Refresh.Raw, RefreshExpiresAt: s.Refresh.Exp,
		ID: s.User.ID, Username: s.User.Username, Role: s.User.Role,
	}
}

func (r signupReq) input() service.SignupInput {
	return service.SignupInput{Username: r.Username, Email: r.Email, Password: r.Password, Role: r.Role}
}

// Signup: POST /api/signup. An admin bearer token is optional and only
// needed to create elevated accounts.
func (h *AuthHandler) Signup(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	var caller *model.Identity
	if id, ok := middleware.IdentityFrom(c); ok {
		caller = &id
	}
	u, err := h.svc.Signup(c.Request().Context(), caller, req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, viewUser(u))
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	s, err := h.svc.Login(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewSession(s))
}

// Refresh rotates the refresh token: the old one is revoked.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	s, err := h.svc.Refresh(c.Request().Context(), req.RefreshToken)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewSession(s))
}

func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	if err := h.svc.Logout(c.Request().Context(), req.RefreshToken); err != nil {
		return writeError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AuthHandler) Me(c echo.Context) error {
	u, err := h.svc.Me(c.Request().Context(), actor(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewUser(u))
}

func (h *AuthHandler) ListUsers(c echo.Context) error {
	users, err := h.svc.ListUsers(c.Request().Context(), actor(c))
	if err != nil {
		return writeError(c, err)
	}
	out := make([]userView, 0, len(users))
	for _, u := range users {
		out = append(out, viewUser(u))
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AuthHandler) GetUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	u, err := h.svc.GetUser(c.Request().Context(), actor(c), id)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewUser(u))
}

// CreateUser: POST /api/users, admin only, any role.
func (h *AuthHandler) CreateUser(c echo.Context) error {
	var req signupReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	u, err := h.svc.CreateUser(c.Request().Context(), actor(c), req.input())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusCreated, viewUser(u))
}

func (h *AuthHandler) UpdateUser(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return writeError(c, err)
	}
	var req roleReq
	if err := bind(c, &req); err != nil {
		return writeError(c, err)
	}
	u, err := h.svc.UpdateRole(c.Request().Context(), actor(c), id, req.Role)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(http.StatusOK, viewUser(u))
}
