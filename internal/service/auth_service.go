package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/unispace/internal/model"
	"github.com/iliyamo/unispace/internal/repository"
	"github.com/iliyamo/unispace/internal/utils"
)

// AuthConfig carries the token and hashing settings.
type AuthConfig struct {
	Secret     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	BcryptCost int
}

// Session is what a successful login or refresh hands back.
type Session struct {
	User    model.User
	Access  utils.AccessToken
	Refresh utils.RefreshToken
}

// SignupInput is an account creation request. Role empty means STUDENT.
type SignupInput struct {
	Username string
	Email    string
	Password string
	Role     string
}

// AuthService owns accounts and tokens.
type AuthService struct {
	cfg    AuthConfig
	users  UserStore
	tokens TokenStore
	now    Clock
}

func NewAuthService(cfg AuthConfig, users UserStore, tokens TokenStore) *AuthService {
	return &AuthService{cfg: cfg, users: users, tokens: tokens, now: systemClock}
}

func (s *AuthService) WithClock(c Clock) *AuthService {
	s.now = c
	return s
}

// Signup creates an account. STUDENT and TEACHER are self-service; an
// elevated role needs caller to hold the assign-elevated-role capability.
// caller is nil for anonymous requests.
func (s *AuthService) Signup(ctx context.Context, caller *model.Identity, in SignupInput) (model.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	if in.Username == "" || in.Email == "" || in.Password == "" {
		return model.User{}, invalid("Username, email, and password are required")
	}
	role := model.RoleStudent
	if in.Role != "" {
		r, ok := model.ParseRole(in.Role)
		if !ok {
			return model.User{}, invalidField("role", "Invalid role")
		}
		role = r
	}
	if role.Elevated() && (caller == nil || !caller.Can(model.CapAssignElevatedRole)) {
		return model.User{}, forbidden("Only an admin can create " + role.String() + " accounts")
	}

	uTaken, eTaken, err := s.users.Taken(ctx, in.Username, in.Email)
	if err != nil {
		return model.User{}, err
	}
	if uTaken {
		return model.User{}, conflict("Username already taken")
	}
	if eTaken {
		return model.User{}, conflict("Email already taken")
	}

	id, err := s.users.Create(ctx, in.Username, in.Email, in.Password, role, s.cfg.BcryptCost)
	switch {
	case errors.Is(err, repository.ErrUsernameTaken):
		return model.User{}, conflict("Username already taken")
	case errors.Is(err, repository.ErrEmailTaken):
		return model.User{}, conflict("Email already taken")
	case err != nil:
		return model.User{}, err
	}
	now := s.now()
	return model.User{ID: id, Username: in.Username, Email: in.Email, Role: role, CreatedAt: now, UpdatedAt: now}, nil
}

// CreateUser is the admin path for creating any role.
func (s *AuthService) CreateUser(ctx context.Context, actor model.Identity, in SignupInput) (model.User, error) {
	if !actor.Can(model.CapUserAdmin) {
		return model.User{}, forbidden("Forbidden - Admin Only.")
	}
	return s.Signup(ctx, &actor, in)
}

func (s *AuthService) Login(ctx context.Context, username, password string) (Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return Session{}, &AuthenticationError{Message: "Password or Username field empty"}
	}
	u, err := s.users.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, &AuthenticationError{Message: "username or password incorrect"}
	}
	if err != nil {
		return Session{}, err
	}
	if !utils.VerifyPassword(u.PasswordHash, password) {
		return Session{}, &AuthenticationError{Message: "username or password incorrect"}
	}
	return s.issue(ctx, u)
}

// Refresh spends a refresh token and returns a new pair.
func (s *AuthService) Refresh(ctx context.Context, raw string) (Session, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Session{}, invalid("refresh_token required")
	}
	next, err := utils.NewRefreshToken(s.cfg.RefreshTTL)
	if err != nil {
		return Session{}, err
	}
	userID, err := s.tokens.Rotate(ctx, utils.HashRefreshRaw(raw), utils.HashRefreshRaw(next.Raw), next.Exp, s.now())
	if errors.Is(err, repository.ErrTokenInvalid) {
		return Session{}, &AuthenticationError{Message: "invalid refresh token"}
	}
	if err != nil {
		return Session{}, err
	}
	u, err := s.users.GetByID(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return Session{}, &AuthenticationError{Message: "Unauthorized - Invalid user"}
	}
	if err != nil {
		return Session{}, err
	}
	access, err := utils.NewAccessToken(s.cfg.Secret, u.ID, u.Username, u.Role.String(), s.cfg.AccessTTL)
	if err != nil {
		return Session{}, err
	}
	return Session{User: u, Access: access, Refresh: next}, nil
}

func (s *AuthService) Logout(ctx context.Context, raw string) error {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return invalid("refresh_token required")
	}
	return s.tokens.Revoke(ctx, utils.HashRefreshRaw(raw), s.now())
}

func (s *AuthService) issue(ctx context.Context, u model.User) (Session, error) {
	access, err := utils.NewAccessToken(s.cfg.Secret, u.ID, u.Username, u.Role.String(), s.cfg.AccessTTL)
	if err != nil {
		return Session{}, err
	}
	refresh, err := utils.NewRefreshToken(s.cfg.RefreshTTL)
	if err != nil {
		return Session{}, err
	}
	if err := s.tokens.Store(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return Session{}, err
	}
	return Session{User: u, Access: access, Refresh: refresh}, nil
}

// Identify resolves a verified access token into the current user. A
// deleted user is an authentication failure, not a 404.
func (s *AuthService) Identify(ctx context.Context, raw string) (model.Identity, error) {
	claims, err := utils.ParseAccessToken(s.cfg.Secret, raw)
	if err != nil {
		return model.Identity{}, &AuthenticationError{Message: "Unauthorized - Invalid token"}
	}
	u, err := s.users.GetByID(ctx, claims.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Identity{}, &AuthenticationError{Message: "Unauthorized - Invalid user"}
	}
	if err != nil {
		return model.Identity{}, err
	}
	return model.Identity{ID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *AuthService) Me(ctx context.Context, actor model.Identity) (model.User, error) {
	u, err := s.users.GetByID(ctx, actor.ID)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, notFound("No such user found")
	}
	return u, err
}

func (s *AuthService) ListUsers(ctx context.Context, actor model.Identity) ([]model.User, error) {
	if !actor.Can(model.CapUserAdmin) {
		return nil, forbidden("Forbidden - Admin Only.")
	}
	return s.users.List(ctx)
}

// GetUser lets anyone look up a user except that only admins may view
// admin accounts.
func (s *AuthService) GetUser(ctx context.Context, actor model.Identity, id uint64) (model.User, error) {
	u, err := s.users.GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return model.User{}, notFound("No such user found")
	}
	if err != nil {
		return model.User{}, err
	}
	if u.Role == model.RoleAdmin && !actor.Can(model.CapUserAdmin) {
		return model.User{}, forbidden("Forbidden")
	}
	return u, nil
}

// UpdateRole changes a user's role and revokes their refresh tokens so the
// new role takes effect on next login.
func (s *AuthService) UpdateRole(ctx context.Context, actor model.Identity, id uint64, role string) (model.User, error) {
	if !actor.Can(model.CapUserAdmin) {
		return model.User{}, forbidden("Forbidden - Admin Only.")
	}
	if role == "" {
		return model.User{}, invalidField("role", "Role is required")
	}
	r, ok := model.ParseRole(role)
	if !ok {
		return model.User{}, invalidField("role", "Invalid role")
	}
	if err := s.users.UpdateRole(ctx, id, r); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return model.User{}, notFound("User not found")
		}
		return model.User{}, err
	}
	if err := s.tokens.RevokeAllForUser(ctx, id, s.now()); err != nil {
		return model.User{}, err
	}
	return s.users.GetByID(ctx, id)
}
