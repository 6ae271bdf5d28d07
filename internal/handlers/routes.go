package handlers

import (
	"net/http"

	"github.com/civiclens/webclient/internal/guard"
	"github.com/civiclens/webclient/internal/session"
	"github.com/civiclens/webclient/types"
	"github.com/go-chi/chi/v5"
)

// Deps are the collaborators of the screen handlers.
type Deps struct {
	Registry *session.Registry
	Sessions *session.Manager
	Issues   IssueServices
	Cookie   CookieOptions
	Resp     *Responder
}

// Mount registers every screen on r. Role-gated screens sit behind the
// route guard; unknown paths go back to the landing screen.
func Mount(r chi.Router, deps Deps) {
	r.Get("/healthz", Healthz)

	r.Group(func(r chi.Router) {
		r.Use(
			Recoverer(deps.Resp),
			SessionCookie(deps.Cookie),
			ResolveIdentity(deps.Registry),
		)

		PublicRouter(r, deps.Issues, deps.Resp)
		AuthRouter(r, deps.Sessions, deps.Cookie, deps.Resp)

		r.Group(func(r chi.Router) {
			r.Use(RequireRoles(types.RoleCitizen))
			CitizenRouter(r, deps.Issues, deps.Resp)
		})
		r.Group(func(r chi.Router) {
			r.Use(RequireRoles(types.RoleCitizen, types.RoleHeadAuthority))
			SignedInRouter(r, deps.Issues, deps.Resp)
		})
		r.Group(func(r chi.Router) {
			r.Use(RequireRoles(types.RoleHeadAuthority))
			AuthorityRouter(r, deps.Issues, deps.Resp)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, guard.LandingPath, http.StatusFound)
	})
}
