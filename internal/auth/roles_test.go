package auth

import (
	"testing"

	"github.com/gatherly/apiserver/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	for name, want := range map[string]Role{
		"admin":       RoleAdmin,
		"organiser":   RoleOrganiser,
		"participant": RoleParticipant,
		" Organiser ": RoleOrganiser,
	} {
		role, err := ParseRole(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, role)
	}

	_, err := ParseRole("superuser")
	assert.Error(t, err)
}

func TestHasRoleExactMembership(t *testing.T) {
	roles := []types.Role{{ID: 1, Name: "organiser"}}

	assert.True(t, HasRole(roles, RoleOrganiser))
	assert.False(t, HasRole(roles, RoleParticipant))
	assert.False(t, HasRole(roles, RoleAdmin))
}

func TestHasRoleNoImplication(t *testing.T) {
	admin := []types.Role{{ID: 1, Name: "admin"}}

	assert.True(t, HasRole(admin, RoleAdmin))
	assert.False(t, HasRole(admin, RoleOrganiser), "admin must not imply organiser")
	assert.False(t, HasRole(admin, RoleParticipant), "admin must not imply participant")
}

func TestHasRoleEmptySet(t *testing.T) {
	assert.False(t, HasRole(nil, RoleParticipant))
}
