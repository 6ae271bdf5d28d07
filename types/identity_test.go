package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeRole(t *testing.T) {
	cases := map[string]Role{
		"Head Authority": RoleHeadAuthority,
		"authority_head": RoleHeadAuthority,
		"ADMIN":          RoleHeadAuthority,
		"head-authority": RoleHeadAuthority,
		" headAuthority": RoleHeadAuthority,
		"citizen":        RoleCitizen,
		"Citizen":        RoleCitizen,
		"":               RoleCitizen,
		"superuser":      RoleCitizen,
		"head":           RoleCitizen,
		"admin istrator": RoleCitizen,
	}
	for input, want := range cases {
		assert.Equal(t, want, NormalizeRole(input), "input %q", input)
	}
}

func TestNormalizeRole_IsTotal(t *testing.T) {
	inputs := []string{"", " ", "\x00", "ÄDMIN", "h_e_a_d_a_u_t_h_o_r_i_t_y", "🙂"}
	for _, input := range inputs {
		assert.True(t, NormalizeRole(input).Valid(), "input %q", input)
	}
	assert.Equal(t, RoleHeadAuthority, NormalizeRole("h_e_a_d_a_u_t_h_o_r_i_t_y"))
}

func TestRoleCan(t *testing.T) {
	assert.False(t, RoleCitizen.Can(CapManageIssues))
	assert.True(t, RoleHeadAuthority.Can(CapManageIssues))
	assert.False(t, Role("mayor").Can(CapManageIssues))
	assert.False(t, Role("").Can(CapManageIssues))
}

func TestIdentityFromSessionAndMerge(t *testing.T) {
	session := Session{
		AccessToken: "token",
		User: SessionUser{
			ID:    "u1",
			Email: "a@example.com",
			UserMetadata: map[string]any{
				"name": "Asha",
				"role": "Head Authority",
			},
		},
	}

	identity := IdentityFromSession(session)
	assert.Equal(t, Identity{ID: "u1", Email: "a@example.com", Name: "Asha", Role: RoleHeadAuthority}, identity)

	merged := identity.MergeProfile(Profile{ID: "u1", Name: "Asha K", Role: "citizen", Department: "Drainage"})
	assert.Equal(t, "Asha K", merged.Name)
	assert.Equal(t, RoleCitizen, merged.Role)
	assert.Equal(t, "Drainage", merged.Department)
	assert.Equal(t, "a@example.com", merged.Email)

	kept := identity.MergeProfile(Profile{ID: "u1"})
	assert.Equal(t, identity, kept)
}
