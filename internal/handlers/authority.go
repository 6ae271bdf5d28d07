package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/civiclens/webclient/internal/apiclient"
	"github.com/civiclens/webclient/internal/dashboard"
	"github.com/civiclens/webclient/internal/guard"
	"github.com/civiclens/webclient/internal/services"
	"github.com/civiclens/webclient/internal/views"
	"github.com/civiclens/webclient/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const managementPath = "/head-authority/management"

// AuthorityDashboardView is the view model of the authority dashboard.
type AuthorityDashboardView struct {
	Counts         dashboard.StatusCounts      `json:"counts"`
	Active         int                         `json:"active"`
	ResolutionRate int                         `json:"resolution_rate"`
	HighPriority   int                         `json:"high_priority"`
	Departments    []dashboard.DepartmentStats `json:"departments"`
}

// ManagementView is the view model of the issue management console.
type ManagementView struct {
	Issues          []types.Issue    `json:"issues"`
	Filter          dashboard.Filter `json:"filter"`
	Statuses        []types.Status   `json:"statuses"`
	DepartmentNames []string         `json:"department_names"`
}

// DepartmentsView is the view model of the departments screen.
type DepartmentsView struct {
	Query       string                      `json:"query,omitempty"`
	Departments []dashboard.DepartmentStats `json:"departments"`
}

// BulkDeleteView reports the outcome of a bulk delete.
type BulkDeleteView struct {
	Deleted []string `json:"deleted"`
	Failed  []string `json:"failed,omitempty"`
}

// AuthorityHandler serves the head authority console.
type AuthorityHandler struct {
	services IssueServices
	resp     *Responder
}

func NewAuthorityHandler(svc IssueServices, resp *Responder) *AuthorityHandler {
	return &AuthorityHandler{services: svc, resp: resp}
}

// AuthorityRouter registers the head authority screens and actions.
func AuthorityRouter(r chi.Router, svc IssueServices, resp *Responder) {
	handler := NewAuthorityHandler(svc, resp)

	r.Get(guard.AuthorityHomePath, handler.Dashboard)
	r.Get("/head-authority/departments", handler.Departments)
	r.Route(managementPath, func(r chi.Router) {
		r.Get("/", handler.Management)
		r.Post("/bulk-delete", handler.BulkDelete)
		r.Route("/{issueID}", func(r chi.Router) {
			r.Post("/status", handler.UpdateStatus)
			r.Post("/reassign", handler.Reassign)
			r.Post("/delete", handler.Delete)
		})
	})
}

// Dashboard shows city-wide counts and per-department efficiency.
func (h *AuthorityHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	issues, err := h.services.issues(r).ListForAuthority(r.Context(), apiclient.AuthorityFilters{})
	if err != nil {
		h.resp.fetchFailed(w, r, err, "")
		return
	}

	counts := dashboard.CountStatuses(issues)
	view := AuthorityDashboardView{
		Counts:         counts,
		Active:         counts.Active(),
		ResolutionRate: counts.ResolutionRate(),
		HighPriority:   dashboard.CountPriority(issues, "high"),
		Departments:    dashboard.Departments(issues, types.AnalyticsDepartments()),
	}
	h.resp.render(w, r, http.StatusOK, views.AuthorityDashboard, page(r, "Global Overview", view))
}

// Management lists issues filtered by ?dept, ?status and ?q. ?priority is
// forwarded to the backend.
func (h *AuthorityHandler) Management(w http.ResponseWriter, r *http.Request) {
	filters := apiclient.AuthorityFilters{Priority: strings.TrimSpace(r.URL.Query().Get("priority"))}
	issues, err := h.services.issues(r).ListForAuthority(r.Context(), filters)
	if err != nil {
		h.resp.fetchFailed(w, r, err, guard.AuthorityHomePath)
		return
	}

	filter := listFilter(r)
	if filter.Status == "" {
		filter.Status = dashboard.AllStatuses
	}
	if filter.Department == "" {
		filter.Department = dashboard.AllDepartments
	}
	filtered := dashboard.Apply(issues, filter)
	if filtered == nil {
		filtered = []types.Issue{}
	}

	view := ManagementView{
		Issues:          filtered,
		Filter:          filter,
		Statuses:        types.Statuses,
		DepartmentNames: types.Departments,
	}
	h.resp.render(w, r, http.StatusOK, views.Management, page(r, "Issue Management", view))
}

// UpdateStatus changes an issue's status. A proof photo posted with a
// resolve is uploaded first.
func (h *AuthorityHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeError(w, formStatus(err), err.Error())
		return
	}

	proof, err := formFile(r.MultipartForm, "proof")
	if err != nil && !errors.Is(err, errNoFile) {
		h.resp.errorPage(w, r, http.StatusUnprocessableEntity, ErrorView{Heading: "Upload failed", Message: err.Error(), Back: managementPath})
		return
	}

	issue, err := h.services.issues(r).UpdateStatus(r.Context(), chi.URLParam(r, "issueID"), r.FormValue("status"), proof)
	if err != nil {
		h.mutationFailed(w, r, err)
		return
	}
	h.mutated(w, r, issue)
}

func (h *AuthorityHandler) Reassign(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeError(w, formStatus(err), err.Error())
		return
	}

	issue, err := h.services.issues(r).Reassign(r.Context(), chi.URLParam(r, "issueID"), r.FormValue("department"))
	if err != nil {
		h.mutationFailed(w, r, err)
		return
	}
	h.mutated(w, r, issue)
}

func (h *AuthorityHandler) Delete(w http.ResponseWriter, r *http.Request) {
	issueID := chi.URLParam(r, "issueID")
	if err := h.services.issues(r).Delete(r.Context(), issueID); err != nil {
		h.mutationFailed(w, r, err)
		return
	}
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, BulkDeleteView{Deleted: []string{issueID}})
		return
	}
	http.Redirect(w, r, managementPath, http.StatusSeeOther)
}

// BulkDelete deletes the selected issues one by one. Failed ids are
// reported; the successful deletes stand.
func (h *AuthorityHandler) BulkDelete(w http.ResponseWriter, r *http.Request) {
	if err := parseForm(w, r); err != nil {
		writeError(w, formStatus(err), err.Error())
		return
	}

	ids := r.PostForm["ids"]
	result, err := h.services.issues(r).DeleteMany(r.Context(), ids)
	if errors.Is(err, services.ErrNoIssuesSelected) {
		h.mutationFailed(w, r, err)
		return
	}

	view := BulkDeleteView{Deleted: result.Deleted, Failed: result.FailedIDs(ids)}
	if view.Deleted == nil {
		view.Deleted = []string{}
	}
	if err != nil {
		h.resp.logger.Warn("bulk delete incomplete", zap.Strings("failed", view.Failed), zap.Error(err))
		if wantsJSON(r) {
			writeJSON(w, http.StatusBadGateway, view)
			return
		}
		h.resp.errorPage(w, r, http.StatusBadGateway, ErrorView{
			Heading: "Some issues were not deleted",
			Message: fmt.Sprintf("Deleted %d issue(s). Failed to delete: %s", len(view.Deleted), strings.Join(view.Failed, ", ")),
			Back:    managementPath,
		})
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, view)
		return
	}
	http.Redirect(w, r, managementPath, http.StatusSeeOther)
}

// Departments lists department analytics, narrowed by ?q.
func (h *AuthorityHandler) Departments(w http.ResponseWriter, r *http.Request) {
	issues, err := h.services.issues(r).ListForAuthority(r.Context(), apiclient.AuthorityFilters{})
	if err != nil {
		h.resp.fetchFailed(w, r, err, guard.AuthorityHomePath)
		return
	}

	query := strings.TrimSpace(r.URL.Query().Get("q"))
	names := dashboard.SearchDepartments(types.AnalyticsDepartments(), query)
	view := DepartmentsView{
		Query:       query,
		Departments: dashboard.Departments(issues, names),
	}
	if view.Departments == nil {
		view.Departments = []dashboard.DepartmentStats{}
	}
	h.resp.render(w, r, http.StatusOK, views.Departments, page(r, "Departments", view))
}

// mutated answers a successful change: JSON clients get the updated issue,
// browsers go back to the screen they came from.
func (h *AuthorityHandler) mutated(w http.ResponseWriter, r *http.Request, issue types.Issue) {
	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, issue)
		return
	}
	target := guard.SafeNext(r.FormValue("next"))
	if target == "" {
		target = managementPath
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *AuthorityHandler) mutationFailed(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidStatus),
		errors.Is(err, services.ErrUnknownDepartment),
		errors.Is(err, services.ErrNoIssuesSelected):
		h.resp.errorPage(w, r, http.StatusBadRequest, ErrorView{Heading: "Invalid request", Message: err.Error(), Back: managementPath})
	case errors.Is(err, services.ErrUploadFailed):
		h.resp.logger.Warn("proof upload failed", zap.Error(err))
		h.resp.errorPage(w, r, http.StatusUnprocessableEntity, ErrorView{Heading: "Upload failed", Message: "Failed to upload the proof image. Please try again.", Back: managementPath})
	default:
		h.resp.fetchFailed(w, r, err, managementPath)
	}
}
