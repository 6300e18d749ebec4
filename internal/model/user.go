package model

import (
	"strings"
	"time"
)

// User mirrors the `users` table. PasswordHash never leaves the service layer.
type User struct {
	ID           uint64    // users.id
	Username     string    // users.username (unique)
	Email        string    // users.email (unique)
	PasswordHash string    // users.password_hash
	Role         Role      // users.role
	CreatedAt    time.Time // users.created_at
	UpdatedAt    time.Time // users.updated_at
}

// Role is the closed set of account roles, in ascending privilege.
type Role string

const (
	RoleStudent        Role = "STUDENT"
	RoleTeacher        Role = "TEACHER"
	RoleRepresentative Role = "REPRESENTATIVE"
	RoleAdmin          Role = "ADMIN"
)

// Roles lists every valid role in ascending privilege.
var Roles = []Role{RoleStudent, RoleTeacher, RoleRepresentative, RoleAdmin}

// ParseRole normalizes s and reports whether it names a known role.
func ParseRole(s string) (Role, bool) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Roles {
		if r == known {
			return r, true
		}
	}
	return "", false
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) String() string { return string(r) }

// Capability names an operation gated by role.
type Capability string

const (
	CapReservationWrite   Capability = "reservation:write"
	CapReservationConvert Capability = "reservation:convert"
	CapOccupancyWrite     Capability = "occupancy:write"
	CapNotificationCreate Capability = "notification:create"
	CapNotificationRead   Capability = "notification:read"
	CapUserAdmin          Capability = "user:admin"
	CapAssignElevatedRole Capability = "user:assign-elevated-role"
	CapClassroomAdmin     Capability = "classroom:admin"
	CapProfileAdmin       Capability = "profile:admin"
	// CapOverrideOwnership lets a role act on rows owned by other users.
	CapOverrideOwnership Capability = "ownership:override"
)

var capabilities = map[Role]map[Capability]bool{
	RoleStudent: {
		CapNotificationRead: true,
	},
	RoleTeacher: {
		CapReservationWrite:   true,
		CapOccupancyWrite:     true,
		CapNotificationCreate: true,
		CapNotificationRead:   true,
	},
	RoleRepresentative: {
		CapReservationWrite:   true,
		CapReservationConvert: true,
		CapOccupancyWrite:     true,
		CapNotificationRead:   true,
	},
	RoleAdmin: {
		CapReservationWrite:   true,
		CapReservationConvert: true,
		CapOccupancyWrite:     true,
		CapNotificationCreate: true,
		CapNotificationRead:   true,
		CapUserAdmin:          true,
		CapAssignElevatedRole: true,
		CapClassroomAdmin:     true,
		CapProfileAdmin:       true,
		CapOverrideOwnership:  true,
	},
}

// Can reports whether the role grants the capability. Unknown roles grant nothing.
func (r Role) Can(c Capability) bool {
	return capabilities[r][c]
}

// Elevated reports whether assigning r requires CapAssignElevatedRole.
func (r Role) Elevated() bool {
	return r == RoleRepresentative || r == RoleAdmin
}

// Identity is the authenticated caller, resolved once per request.
type Identity struct {
	ID       uint64
	Username string
	Role     Role
}

func (i Identity) Can(c Capability) bool { return i.Role.Can(c) }

// Owns reports whether the caller may act on a row owned by ownerID.
func (i Identity) Owns(ownerID uint64) bool {
	return i.ID == ownerID || i.Role.Can(CapOverrideOwnership)
}

// RefreshToken models a row in `refresh_tokens`. Only the SHA-256 of the
// raw token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    uint64
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}
