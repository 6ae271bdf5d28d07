package handlers

import (
	"net/http"

	"github.com/civiclens/webclient/internal/dashboard"
	"github.com/civiclens/webclient/internal/guard"
	"github.com/civiclens/webclient/internal/views"
	"github.com/civiclens/webclient/types"
	"github.com/go-chi/chi/v5"
)

// LandingView is the view model of the landing screen.
type LandingView struct {
	HomePath string `json:"home_path,omitempty"`
}

// IssueListView is the view model of the filterable issue lists.
type IssueListView struct {
	Issues         []types.Issue          `json:"issues"`
	Filter         dashboard.Filter       `json:"filter"`
	Statuses       []types.Status         `json:"statuses"`
	Counts         dashboard.StatusCounts `json:"counts"`
	Active         int                    `json:"active"`
	ResolutionRate int                    `json:"resolution_rate"`
}

// IssueView is the view model of a single issue.
type IssueView struct {
	Issue     types.Issue    `json:"issue"`
	CanManage bool           `json:"can_manage"`
	Statuses  []types.Status `json:"statuses,omitempty"`
}

func newIssueListView(all []types.Issue, filter dashboard.Filter) IssueListView {
	if filter.Status == "" {
		filter.Status = dashboard.AllStatuses
	}
	counts := dashboard.CountStatuses(all)
	issues := dashboard.Apply(all, filter)
	if issues == nil {
		issues = []types.Issue{}
	}
	return IssueListView{
		Issues:         issues,
		Filter:         filter,
		Statuses:       types.Statuses,
		Counts:         counts,
		Active:         counts.Active(),
		ResolutionRate: counts.ResolutionRate(),
	}
}

func listFilter(r *http.Request) dashboard.Filter {
	q := r.URL.Query()
	return dashboard.Filter{
		Status:     q.Get("status"),
		Query:      q.Get("q"),
		Department: q.Get("dept"),
	}
}

// PublicHandler serves the screens anyone may open.
type PublicHandler struct {
	services IssueServices
	resp     *Responder
}

func NewPublicHandler(svc IssueServices, resp *Responder) *PublicHandler {
	return &PublicHandler{services: svc, resp: resp}
}

// PublicRouter registers the public screens on the given router.
func PublicRouter(r chi.Router, svc IssueServices, resp *Responder) {
	handler := NewPublicHandler(svc, resp)

	r.Get(guard.LandingPath, handler.Landing)
	r.Get(guard.TransparencyWallPath, handler.TransparencyWall)
	r.Get("/issues/{issueID}", handler.PublicIssue)
}

func (h *PublicHandler) Landing(w http.ResponseWriter, r *http.Request) {
	var view LandingView
	if user := identityFromContext(r.Context()); user != nil {
		view.HomePath = guard.HomePath(user.Role)
	}
	h.resp.render(w, r, http.StatusOK, views.Landing, page(r, "", view))
}

// TransparencyWall lists every public issue with city-wide counts.
func (h *PublicHandler) TransparencyWall(w http.ResponseWriter, r *http.Request) {
	issues, err := h.services.issues(r).ListPublic(r.Context())
	if err != nil {
		h.resp.fetchFailed(w, r, err, guard.LandingPath)
		return
	}

	filter := listFilter(r)
	filter.Department = ""
	h.resp.render(w, r, http.StatusOK, views.TransparencyWall, page(r, "Transparency Wall", newIssueListView(issues, filter)))
}

func (h *PublicHandler) PublicIssue(w http.ResponseWriter, r *http.Request) {
	issue, err := h.services.issues(r).Get(r.Context(), chi.URLParam(r, "issueID"))
	if err != nil {
		h.resp.fetchFailed(w, r, err, guard.TransparencyWallPath)
		return
	}
	h.resp.render(w, r, http.StatusOK, views.PublicIssue, page(r, issue.Title, IssueView{Issue: issue}))
}

// Healthz reports that the process is serving.
func Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
