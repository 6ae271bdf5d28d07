package types

import "strings"

// Role is the permission class of a signed-in user.
// The set is closed: every value produced by NormalizeRole is one of the
// constants below.
type Role string

// Supported roles.
const (
	// RoleCitizen reports issues and tracks their own reports.
	RoleCitizen Role = "citizen"

	// RoleHeadAuthority manages, reassigns and resolves issues city-wide.
	RoleHeadAuthority Role = "head_authority"
)

// headAuthorityAliases are the separator-free, lower-cased spellings that
// map to RoleHeadAuthority.
var headAuthorityAliases = map[string]struct{}{
	"headauthority": {},
	"authorityhead": {},
	"admin":         {},
}

// NormalizeRole maps a free-text role to a Role. It never fails: unknown,
// empty or malformed input yields RoleCitizen, the least privileged role.
func NormalizeRole(raw string) Role {
	r := strings.ToLower(strings.TrimSpace(raw))
	r = strings.NewReplacer("-", "", "_", "", " ", "").Replace(r)
	if _, ok := headAuthorityAliases[r]; ok {
		return RoleHeadAuthority
	}
	return RoleCitizen
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleCitizen || r == RoleHeadAuthority
}

// Capability is an action a role may be allowed to perform.
type Capability string

// CapManageIssues lets a role change status, reassign and delete issues.
const CapManageIssues Capability = "issues.manage"

var roleCapabilities = map[Role]map[Capability]bool{
	RoleHeadAuthority: {CapManageIssues: true},
}

// Can reports whether the role grants the capability.
func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}

// Identity is the resolved user of a browser session.
type Identity struct {
	// ID is the identity provider's user id.
	ID string `json:"id"`

	// Email is the sign-in email address.
	Email string `json:"email"`

	// Name is the display name.
	Name string `json:"name"`

	// Role is the normalized permission class.
	Role Role `json:"role"`

	// Department is set for authority users attached to a department.
	Department string `json:"department,omitempty"`
}

// HasRole reports whether the identity holds any of the given roles.
func (i Identity) HasRole(roles ...Role) bool {
	for _, role := range roles {
		if i.Role == role {
			return true
		}
	}
	return false
}

// IdentityFromSession builds the optimistic identity from the metadata
// embedded in a provider session.
func IdentityFromSession(s Session) Identity {
	return Identity{
		ID:         s.User.ID,
		Email:      s.User.Email,
		Name:       s.User.MetadataString("name"),
		Role:       NormalizeRole(s.User.MetadataString("role")),
		Department: s.User.MetadataString("department"),
	}
}

// MergeProfile overlays the non-empty fields of a persisted profile on the
// identity. Profile values win over session metadata.
func (i Identity) MergeProfile(p Profile) Identity {
	if p.Email != "" {
		i.Email = p.Email
	}
	if p.Name != "" {
		i.Name = p.Name
	}
	if strings.TrimSpace(p.Role) != "" {
		i.Role = NormalizeRole(p.Role)
	}
	if p.Department != "" {
		i.Department = p.Department
	}
	return i
}
