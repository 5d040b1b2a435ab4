package models

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned when a role string is not one of admin, organizer or user.
var ErrUnknownRole = errors.New("unknown role")

// Role is the authorisation tier of an account. The set is closed: adding a
// role means touching every exhaustive switch over it.
type Role uint8

const (
	roleNone Role = iota
	RoleAdmin
	RoleOrganizer
	RoleUser
)

// Roles lists every valid role in display order.
var Roles = []Role{RoleAdmin, RoleOrganizer, RoleUser}

// ParseRole converts the wire representation ("admin", "organizer", "user").
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "admin":
		return RoleAdmin, nil
	case "organizer":
		return RoleOrganizer, nil
	case "user":
		return RoleUser, nil
	default:
		return roleNone, fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleOrganizer, RoleUser:
		return true
	case roleNone:
		return false
	default:
		return false
	}
}

func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "admin"
	case RoleOrganizer:
		return "organizer"
	case RoleUser:
		return "user"
	case roleNone:
		return ""
	default:
		return fmt.Sprintf("Role(%d)", uint8(r))
	}
}

// HomePath is the screen a freshly authenticated account lands on.
func (r Role) HomePath() string {
	switch r {
	case RoleAdmin:
		return "/admin"
	case RoleOrganizer:
		return "/organizer"
	case RoleUser:
		return "/user"
	case roleNone:
		return "/"
	default:
		return "/"
	}
}

// MarshalText implements encoding.TextMarshaler so roles travel as strings in JSON.
func (r Role) MarshalText() ([]byte, error) {
	if !r.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownRole, uint8(r))
	}
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Role) UnmarshalText(b []byte) error {
	parsed, err := ParseRole(string(b))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// RoleSet is an immutable set of roles used for route grants.
type RoleSet struct {
	bits uint8
}

// NewRoleSet builds a set from the given roles; invalid roles are ignored.
func NewRoleSet(roles ...Role) RoleSet {
	var s RoleSet
	for _, r := range roles {
		if r.Valid() {
			s.bits |= 1 << r
		}
	}
	return s
}

// Contains reports whether r is in the set.
func (s RoleSet) Contains(r Role) bool {
	return r.Valid() && s.bits&(1<<r) != 0
}

// Roles returns the members in display order.
func (s RoleSet) Roles() []Role {
	var out []Role
	for _, r := range Roles {
		if s.Contains(r) {
			out = append(out, r)
		}
	}
	return out
}
