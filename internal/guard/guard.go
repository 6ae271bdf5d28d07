// Package guard decides whether an identity may open a screen.
package guard

import (
	"net/url"
	"strings"

	"github.com/civiclens/webclient/types"
)

// Screen paths.
const (
	LandingPath          = "/"
	LoginPath            = "/login"
	SignupPath           = "/signup"
	TransparencyWallPath = "/transparency-wall"
	CitizenHomePath      = "/citizen/dashboard"
	AuthorityHomePath    = "/head-authority/dashboard"
)

// Decision is the outcome of Check. Redirect is set when Allow is false.
type Decision struct {
	Allow    bool
	Redirect string
}

// Check gates requested for identity. An empty allowed list is public.
// A nil identity is sent to the login screen with the requested path as
// the post-login target; an identity with the wrong role is sent to its
// own home screen.
func Check(identity *types.Identity, allowed []types.Role, requested string) Decision {
	if len(allowed) == 0 {
		return Decision{Allow: true}
	}
	if identity == nil {
		return Decision{Redirect: LoginRedirect(requested)}
	}
	if identity.HasRole(allowed...) {
		return Decision{Allow: true}
	}
	return Decision{Redirect: HomePath(identity.Role)}
}

// HomePath is the landing screen of a role.
func HomePath(role types.Role) string {
	switch role {
	case types.RoleCitizen:
		return CitizenHomePath
	case types.RoleHeadAuthority:
		return AuthorityHomePath
	default:
		return LandingPath
	}
}

// LoginRedirect builds the login URL remembering next when it is a safe
// return target.
func LoginRedirect(next string) string {
	next = SafeNext(next)
	if next == "" {
		return LoginPath
	}
	return LoginPath + "?" + url.Values{"next": {next}}.Encode()
}

// SafeNext returns next when it is a same-site path of a known screen,
// or "" otherwise.
func SafeNext(next string) string {
	next = strings.TrimSpace(next)
	if next == "" || !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.Contains(next, `\`) {
		return ""
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return ""
	}
	if _, ok := Lookup(u.Path); !ok {
		return ""
	}
	return next
}
