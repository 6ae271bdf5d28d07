package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/civiclens/webclient/internal/dashboard"
	"github.com/civiclens/webclient/internal/guard"
	"github.com/civiclens/webclient/internal/services"
	"github.com/civiclens/webclient/internal/views"
	"github.com/civiclens/webclient/types"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const (
	recentIssueCount = 5
	locationTimeout  = 10 * time.Second
)

// CitizenDashboardView is the view model of the citizen dashboard.
type CitizenDashboardView struct {
	Counts dashboard.StatusCounts `json:"counts"`
	Recent []types.Issue          `json:"recent"`
}

// ReportView is the view model of the report form.
type ReportView struct {
	Submission     *services.Submission    `json:"submission,omitempty"`
	Description    string                  `json:"description,omitempty"`
	LocationStatus services.LocationStatus `json:"location_status"`
	Lat            float64                 `json:"lat,omitempty"`
	Lng            float64                 `json:"lng,omitempty"`
	Manual         bool                    `json:"manual"`
	Department     string                  `json:"department,omitempty"`
	IssueType      string                  `json:"issue_type,omitempty"`
	Departments    []string                `json:"departments"`
	IssueTypes     []string                `json:"issue_types"`

	LocationTimeoutMillis int64 `json:"location_timeout_ms"`
}

// HelpTopic is one entry of the help center.
type HelpTopic struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// HelpCenterView is the view model of the help center.
type HelpCenterView struct {
	Topics []HelpTopic `json:"topics"`
}

var helpTopics = []HelpTopic{
	{
		Question: "How do I report an issue?",
		Answer:   "Open Report Issue, take or upload a photo, allow location access and submit. The photo is classified and routed to the right department.",
	},
	{
		Question: "Why is location access required?",
		Answer:   "Departments use the coordinates to find the issue. Reports cannot be submitted without a location fix.",
	},
	{
		Question: "What if the wrong department is detected?",
		Answer:   "Choose the department and issue type yourself. When automatic classification fails the form switches to manual selection.",
	},
	{
		Question: "How do I track my reports?",
		Answer:   "My Issues lists every report with its status: Reported, In Progress or Resolved. Resolved issues show the proof photo.",
	},
}

func newReportView() ReportView {
	return ReportView{
		LocationStatus:        services.LocationLoading,
		IssueType:             types.IssueTypes[0],
		Departments:           types.Departments,
		IssueTypes:            types.IssueTypes,
		LocationTimeoutMillis: locationTimeout.Milliseconds(),
	}
}

// CitizenHandler serves the citizen screens.
type CitizenHandler struct {
	services IssueServices
	resp     *Responder
}

func NewCitizenHandler(svc IssueServices, resp *Responder) *CitizenHandler {
	return &CitizenHandler{services: svc, resp: resp}
}

// CitizenRouter registers the citizen screens. Screens open to both roles
// are registered by SignedInRouter.
func CitizenRouter(r chi.Router, svc IssueServices, resp *Responder) {
	handler := NewCitizenHandler(svc, resp)

	r.Get(guard.CitizenHomePath, handler.Dashboard)
	r.Get("/citizen/report", handler.ReportPage)
	r.Post("/citizen/report", handler.SubmitReport)
	r.Get("/citizen/my-issues", handler.MyIssues)
	r.Get("/help-center", handler.HelpCenter)
}

// SignedInRouter registers the screens shared by citizens and authorities.
func SignedInRouter(r chi.Router, svc IssueServices, resp *Responder) {
	handler := NewCitizenHandler(svc, resp)

	r.Get("/citizen/issue/{issueID}", handler.IssueDetail)
	r.Get("/settings", handler.Settings)
}

func (h *CitizenHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	issues, err := h.services.issues(r).ListMine(r.Context())
	if err != nil {
		h.resp.fetchFailed(w, r, err, "")
		return
	}

	recent := issues
	if len(recent) > recentIssueCount {
		recent = recent[:recentIssueCount]
	}
	if recent == nil {
		recent = []types.Issue{}
	}
	view := CitizenDashboardView{
		Counts: dashboard.CountStatuses(issues),
		Recent: recent,
	}
	h.resp.render(w, r, http.StatusOK, views.CitizenDashboard, page(r, "Dashboard", view))
}

func (h *CitizenHandler) ReportPage(w http.ResponseWriter, r *http.Request) {
	h.resp.render(w, r, http.StatusOK, views.Report, page(r, "Report Issue", newReportView()))
}

// SubmitReport validates, uploads and creates a report. Validation and
// upload failures leave the form editable (422); a rejected create is a
// backend failure (502). Either way the form switches to manual mode once
// a submit has been attempted.
func (h *CitizenHandler) SubmitReport(w http.ResponseWriter, r *http.Request) {
	view := newReportView()
	if err := parseForm(w, r); err != nil {
		h.reportFailed(w, r, formStatus(err), view, err.Error())
		return
	}

	view.Description = strings.TrimSpace(r.FormValue("description"))
	view.LocationStatus = services.ParseLocationStatus(r.FormValue("location_status"))
	view.Manual = parseBool(r.FormValue("manual"))
	view.Department = strings.TrimSpace(r.FormValue("department"))
	if issueType := strings.TrimSpace(r.FormValue("issue_type")); issueType != "" {
		view.IssueType = issueType
	}

	var err error
	if view.Lat, err = parseCoordinate(r.FormValue("lat")); err != nil {
		view.LocationStatus = services.LocationError
	}
	if view.Lng, err = parseCoordinate(r.FormValue("lng")); err != nil {
		view.LocationStatus = services.LocationError
	}
	if !services.ValidCoordinates(view.Lat, view.Lng) {
		view.Lat, view.Lng = 0, 0
		view.LocationStatus = services.LocationError
	}

	image, err := formFile(r.MultipartForm, "image")
	if err != nil && !errors.Is(err, errNoFile) {
		h.reportFailed(w, r, http.StatusUnprocessableEntity, view, err.Error())
		return
	}

	user := identityFromContext(r.Context())
	sub, err := h.services.reports(r).Submit(r.Context(), user.ID, services.Report{
		Image:          image,
		Description:    view.Description,
		LocationStatus: view.LocationStatus,
		Lat:            view.Lat,
		Lng:            view.Lng,
		Manual:         view.Manual,
		Department:     view.Department,
		IssueType:      view.IssueType,
	})
	view.Submission = &sub
	view.Manual = sub.Manual

	status := http.StatusOK
	switch {
	case err == nil:
		if wantsJSON(r) {
			status = http.StatusCreated
		}
		view.Description = ""
	case sub.State == services.StateFailed && sub.ImageURL != "":
		status = http.StatusBadGateway
		h.resp.logger.Warn("report submission failed", zap.String("user_id", user.ID), zap.Error(err))
	default:
		status = http.StatusUnprocessableEntity
	}

	p := page(r, "Report Issue", view)
	p.Error = sub.Error
	h.resp.render(w, r, status, views.Report, p)
}

func (h *CitizenHandler) reportFailed(w http.ResponseWriter, r *http.Request, status int, view ReportView, message string) {
	p := page(r, "Report Issue", view)
	p.Error = message
	h.resp.render(w, r, status, views.Report, p)
}

// MyIssues lists the citizen's reports filtered by ?status and ?q.
func (h *CitizenHandler) MyIssues(w http.ResponseWriter, r *http.Request) {
	issues, err := h.services.issues(r).ListMine(r.Context())
	if err != nil {
		h.resp.fetchFailed(w, r, err, guard.CitizenHomePath)
		return
	}

	filter := listFilter(r)
	filter.Department = ""
	h.resp.render(w, r, http.StatusOK, views.MyIssues, page(r, "My Issues", newIssueListView(issues, filter)))
}

// IssueDetail shows one issue. Authorities also get the status and delete
// controls.
func (h *CitizenHandler) IssueDetail(w http.ResponseWriter, r *http.Request) {
	user := identityFromContext(r.Context())
	back := guard.HomePath(user.Role)

	issue, err := h.services.issues(r).Get(r.Context(), chi.URLParam(r, "issueID"))
	if err != nil {
		h.resp.fetchFailed(w, r, err, back)
		return
	}

	view := IssueView{Issue: issue, CanManage: user.Role.Can(types.CapManageIssues)}
	if view.CanManage {
		view.Statuses = types.Statuses
	}
	h.resp.render(w, r, http.StatusOK, views.IssueDetail, page(r, issue.Title, view))
}

// Settings shows the signed-in identity read-only.
func (h *CitizenHandler) Settings(w http.ResponseWriter, r *http.Request) {
	h.resp.render(w, r, http.StatusOK, views.Settings, page(r, "Settings", nil))
}

func (h *CitizenHandler) HelpCenter(w http.ResponseWriter, r *http.Request) {
	h.resp.render(w, r, http.StatusOK, views.HelpCenter, page(r, "Help Center", HelpCenterView{Topics: helpTopics}))
}
