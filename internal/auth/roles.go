package auth

import (
	"fmt"
	"strings"

	"github.com/gatherly/apiserver/types"
)

// Role is a capability tag drawn from the fixed seeded set. Roles are
// compared exactly; no role implies another.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleOrganiser   Role = "organiser"
	RoleParticipant Role = "participant"
)

// ParseRole maps a role name onto the enumerated set.
func ParseRole(name string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case string(RoleAdmin):
		return RoleAdmin, nil
	case string(RoleOrganiser):
		return RoleOrganiser, nil
	case string(RoleParticipant):
		return RoleParticipant, nil
	default:
		return "", fmt.Errorf("unknown role %q", name)
	}
}

// HasRole reports whether the materialized role set contains the required role.
func HasRole(roles []types.Role, required Role) bool {
	for _, role := range roles {
		if parsed, err := ParseRole(role.Name); err == nil && parsed == required {
			return true
		}
	}
	return false
}
