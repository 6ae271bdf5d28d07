package guard

import (
	"strings"

	"github.com/civiclens/webclient/types"
)

// Route is a screen and the roles allowed to open it.
type Route struct {
	Pattern string
	Allowed []types.Role
}

var (
	citizenOnly   = []types.Role{types.RoleCitizen}
	authorityOnly = []types.Role{types.RoleHeadAuthority}
	signedIn      = []types.Role{types.RoleCitizen, types.RoleHeadAuthority}
)

// Routes is the screen table.
var Routes = []Route{
	{Pattern: LandingPath},
	{Pattern: LoginPath},
	{Pattern: SignupPath},
	{Pattern: TransparencyWallPath},
	{Pattern: "/issues/{id}"},

	{Pattern: CitizenHomePath, Allowed: citizenOnly},
	{Pattern: "/citizen/report", Allowed: citizenOnly},
	{Pattern: "/citizen/my-issues", Allowed: citizenOnly},
	{Pattern: "/help-center", Allowed: citizenOnly},
	{Pattern: "/citizen/issue/{id}", Allowed: signedIn},
	{Pattern: "/settings", Allowed: signedIn},

	{Pattern: AuthorityHomePath, Allowed: authorityOnly},
	{Pattern: "/head-authority/management", Allowed: authorityOnly},
	{Pattern: "/head-authority/departments", Allowed: authorityOnly},
}

// Lookup finds the route matching path. {name} segments match any single
// non-empty segment.
func Lookup(path string) (Route, bool) {
	segments := split(path)
	for _, route := range Routes {
		if match(split(route.Pattern), segments) {
			return route, true
		}
	}
	return Route{}, false
}

func split(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func match(pattern, segments []string) bool {
	if len(pattern) != len(segments) {
		return false
	}
	for i, p := range pattern {
		if strings.HasPrefix(p, "{") && strings.HasSuffix(p, "}") {
			if segments[i] == "" {
				return false
			}
			continue
		}
		if p != segments[i] {
			return false
		}
	}
	return true
}

// NavLink is an entry of the role navigation.
type NavLink struct {
	To    string
	Label string
}

var navLinks = map[types.Role][]NavLink{
	types.RoleCitizen: {
		{To: CitizenHomePath, Label: "Dashboard"},
		{To: "/citizen/report", Label: "Report Issue"},
		{To: "/citizen/my-issues", Label: "My Issues"},
	},
	types.RoleHeadAuthority: {
		{To: AuthorityHomePath, Label: "Global Overview"},
		{To: "/head-authority/management", Label: "Issue Management"},
		{To: "/head-authority/departments", Label: "Departments"},
	},
}

// NavLinks returns the navigation of role.
func NavLinks(role types.Role) []NavLink {
	return navLinks[role]
}
