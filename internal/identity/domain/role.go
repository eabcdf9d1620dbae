package domain

import (
	"errors"
	"strings"
)

// Role is the access level of an account. Roles form a total order so that
// authorization checks are "at least" comparisons, never string equality.
type Role int

const (
	RoleEmployee Role = iota + 1
	RoleManager
	RoleAdmin
)

var ErrInvalidRole = errors.New("domain: invalid role")

// ParseRole converts the stored/wire representation into a Role.
func ParseRole(s string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "employee":
		return RoleEmployee, nil
	case "manager":
		return RoleManager, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return 0, ErrInvalidRole
	}
}

func (r Role) String() string {
	switch r {
	case RoleEmployee:
		return "employee"
	case RoleManager:
		return "manager"
	case RoleAdmin:
		return "admin"
	default:
		return "unknown"
	}
}

// Valid reports whether r is one of the defined roles.
func (r Role) Valid() bool {
	return r >= RoleEmployee && r <= RoleAdmin
}

// AtLeast reports whether r grants at least the access of min.
func (r Role) AtLeast(min Role) bool {
	return r >= min
}
