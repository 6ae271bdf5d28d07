package handlers

import (
	"net/http"

	"github.com/civiclens/webclient/internal/services"
	"go.uber.org/zap"
)

// BackendFactory returns the issue backend acting for a browser session.
type BackendFactory func(sessionID string) services.IssueBackend

// IssueServices builds the per-request issue use-cases.
type IssueServices struct {
	Backend  BackendFactory
	Uploader services.ImageUploader
	Logger   *zap.Logger
}

func (s IssueServices) issues(r *http.Request) *services.IssueService {
	return services.NewIssueService(s.Backend(sessionIDFromContext(r.Context())), s.Uploader)
}

func (s IssueServices) reports(r *http.Request) *services.ReportService {
	return services.NewReportService(s.Backend(sessionIDFromContext(r.Context())), s.Uploader, s.Logger)
}
