package handlers

import (
	"bytes"
	"errors"
	"net/http"

	"github.com/civiclens/webclient/internal/apiclient"
	"github.com/civiclens/webclient/internal/guard"
	"github.com/civiclens/webclient/internal/services"
	"github.com/civiclens/webclient/internal/session"
	"github.com/civiclens/webclient/internal/views"
	"go.uber.org/zap"
)

// ErrorView is the view model of the error screen.
type ErrorView struct {
	Heading string `json:"heading"`
	Message string `json:"message"`
	Back    string `json:"back,omitempty"`
}

// Responder writes screens as HTML, or as their view model for clients
// that accept JSON.
type Responder struct {
	views    *views.Renderer
	sessions *session.Manager
	logger   *zap.Logger
}

// NewResponder constructs a Responder. sessions drops browser sessions the
// backend rejects; it may be nil.
func NewResponder(renderer *views.Renderer, sessions *session.Manager, logger *zap.Logger) *Responder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Responder{views: renderer, sessions: sessions, logger: logger}
}

// page fills in the identity and navigation of the request.
func page(r *http.Request, title string, data any) views.Page {
	p := views.Page{Title: title, Data: data}
	if identity := identityFromContext(r.Context()); identity != nil {
		p.Identity = identity
		p.Nav = guard.NavLinks(identity.Role)
	}
	return p
}

func (resp *Responder) render(w http.ResponseWriter, r *http.Request, status int, name string, p views.Page) {
	if wantsJSON(r) {
		if p.Error != "" && p.Data == nil {
			writeError(w, status, p.Error)
			return
		}
		writeJSON(w, status, p)
		return
	}

	var buf bytes.Buffer
	if err := resp.views.Render(&buf, name, p); err != nil {
		resp.logger.Error("render page failed", zap.String("page", name), zap.Error(err))
		resp.fallback(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (resp *Responder) errorPage(w http.ResponseWriter, r *http.Request, status int, view ErrorView) {
	if wantsJSON(r) {
		writeError(w, status, view.Message)
		return
	}
	resp.render(w, r, status, views.Error, page(r, view.Heading, view))
}

// fetchFailed renders a data error as a page-level error state. Missing
// issues are reported as not found; everything else as a bad gateway.
func (resp *Responder) fetchFailed(w http.ResponseWriter, r *http.Request, err error, back string) {
	switch {
	case errors.Is(err, services.ErrIssueNotFound), apiclient.IsNotFound(err):
		resp.errorPage(w, r, http.StatusNotFound, ErrorView{
			Heading: "Issue not found",
			Message: "The issue you are looking for does not exist or was removed.",
			Back:    back,
		})
	case apiclient.StatusCode(err) == http.StatusUnauthorized:
		resp.expire(r)
		redirect(w, r, guard.LoginRedirect(r.URL.RequestURI()))
	default:
		resp.logger.Warn("backend request failed", zap.String("path", r.URL.Path), zap.Error(err))
		resp.errorPage(w, r, http.StatusBadGateway, ErrorView{
			Heading: "Could not load data",
			Message: err.Error(),
			Back:    back,
		})
	}
}

// expire drops the browser session after the backend rejected its token,
// so the login screen no longer sees a signed-in identity.
func (resp *Responder) expire(r *http.Request) {
	sessionID := sessionIDFromContext(r.Context())
	if resp.sessions == nil || sessionID == "" {
		return
	}
	if err := resp.sessions.Expire(r.Context(), sessionID); err != nil {
		resp.logger.Warn("expire rejected session failed", zap.String("session_id", sessionID), zap.Error(err))
	}
}

// fallback renders the recovery screen. It never fails: when the page
// cannot be rendered a plain response with the same two options is sent.
func (resp *Responder) fallback(w http.ResponseWriter, r *http.Request) {
	if wantsJSON(r) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	var buf bytes.Buffer
	if resp.views == nil || resp.views.Render(&buf, views.Fallback, views.Page{Title: "Something went wrong"}) != nil {
		buf.Reset()
		buf.WriteString(`<p>Something went wrong.</p><a href="">Reload Page</a> <a href="/">Back to Safety</a>`)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = buf.WriteTo(w)
}
