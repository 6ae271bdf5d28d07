package services

import (
	"context"
	"errors"
	"math"
	"strings"

	"github.com/civiclens/webclient/internal/apiclient"
	"github.com/civiclens/webclient/types"
	"go.uber.org/zap"
)

var (
	ErrImageRequired      = errors.New("image required")
	ErrLocationRequired   = errors.New("location required")
	ErrDepartmentRequired = errors.New("department required")
)

const defaultSubmitError = "Failed to submit issue. Please try again."

var validationMessages = map[error]string{
	ErrImageRequired:      "Please capture or upload an image",
	ErrLocationRequired:   "Location access is required to report an issue accurately.",
	ErrDepartmentRequired: "Please select a department",
}

// ErrorMessage renders err for the report form.
func ErrorMessage(err error) string {
	for sentinel, msg := range validationMessages {
		if errors.Is(err, sentinel) {
			return msg
		}
	}
	if err == nil || strings.TrimSpace(err.Error()) == "" {
		return defaultSubmitError
	}
	return err.Error()
}

// LocationStatus is the state of the browser's geolocation request.
type LocationStatus string

const (
	LocationLoading LocationStatus = "loading"
	LocationSuccess LocationStatus = "success"
	LocationError   LocationStatus = "error"
)

// ParseLocationStatus maps a posted value to a status; anything unknown
// is LocationError.
func ParseLocationStatus(s string) LocationStatus {
	switch LocationStatus(strings.ToLower(strings.TrimSpace(s))) {
	case LocationLoading:
		return LocationLoading
	case LocationSuccess:
		return LocationSuccess
	default:
		return LocationError
	}
}

// ValidCoordinates reports whether lat and lng are finite and on the globe.
func ValidCoordinates(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return lat >= -90 && lat <= 90 && lng >= -180 && lng <= 180
}

// SubmissionState is the state of the report form.
type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateSubmitting SubmissionState = "submitting"
	StateSucceeded  SubmissionState = "succeeded"
	StateFailed     SubmissionState = "failed"
)

// Report is a citizen's report as posted by the form.
type Report struct {
	Image          []byte
	Description    string
	LocationStatus LocationStatus
	Lat            float64
	Lng            float64

	// Manual is set when the citizen classifies the issue themselves.
	Manual     bool
	Department string
	IssueType  string
}

// Classification is how the backend (or the citizen) classified a report.
type Classification struct {
	IssueID    string           `json:"issue_id,omitempty"`
	IssueType  string           `json:"issue_type"`
	Department string           `json:"department"`
	Status     types.Status     `json:"status"`
	Manual     bool             `json:"manual"`
	Confidence types.Confidence `json:"confidence,omitempty"`
}

// Submission is the outcome of one submit attempt and the form state to
// render next.
type Submission struct {
	State    SubmissionState `json:"state"`
	Error    string          `json:"error,omitempty"`
	Manual   bool            `json:"manual"`
	AIFailed bool            `json:"ai_failed"`
	ImageURL string          `json:"image_url,omitempty"`
	Result   *Classification `json:"result,omitempty"`
}

// ReportService submits citizen reports.
type ReportService struct {
	backend  IssueBackend
	uploader ImageUploader
	logger   *zap.Logger
}

func NewReportService(backend IssueBackend, uploader ImageUploader, logger *zap.Logger) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{backend: backend, uploader: uploader, logger: logger}
}

// Validate checks the preconditions of a submit, in form order.
func (r Report) Validate() error {
	if len(r.Image) == 0 {
		return ErrImageRequired
	}
	if r.LocationStatus != LocationSuccess || !ValidCoordinates(r.Lat, r.Lng) {
		return ErrLocationRequired
	}
	if r.Manual && strings.TrimSpace(r.Department) == "" {
		return ErrDepartmentRequired
	}
	return nil
}

// Submit uploads the photo and creates the issue. Validation failures
// leave the form idle without touching the network. Any later failure
// moves the form to failed and switches it to manual classification. A
// photo uploaded before a failed create is left in storage.
func (s *ReportService) Submit(ctx context.Context, userID string, report Report) (Submission, error) {
	sub := Submission{State: StateIdle, Manual: report.Manual}
	if err := report.Validate(); err != nil {
		sub.Error = ErrorMessage(err)
		return sub, err
	}

	sub.State = StateSubmitting

	obj, err := s.uploader.UploadIssueImage(ctx, userID, report.Image)
	if err != nil {
		return s.fail(sub, err), err
	}
	sub.ImageURL = obj.URL

	req := apiclient.CreateIssueRequest{
		ImageURL:    obj.URL,
		Description: strings.TrimSpace(report.Description),
		LocationLat: report.Lat,
		LocationLng: report.Lng,
	}
	if report.Manual {
		dept := strings.TrimSpace(report.Department)
		issueType := strings.TrimSpace(report.IssueType)
		req.ManualDepartment = &dept
		req.ManualIssueType = &issueType
	}

	issue, err := s.backend.CreateIssue(ctx, req)
	if err != nil {
		s.logger.Warn("issue create failed after upload",
			zap.String("user_id", userID),
			zap.String("object_key", obj.Key),
			zap.Error(err))
		return s.fail(sub, err), err
	}

	department := issue.Department
	if department == "" {
		department = issue.AssignedAuthority
	}
	result := &Classification{
		IssueID:    issue.ID,
		IssueType:  issue.IssueType,
		Department: department,
		Status:     issue.Status,
		Manual:     report.Manual || issue.IsManual(),
	}
	if issue.AIAnalysis != nil {
		result.Confidence = issue.AIAnalysis.Confidence
	}

	sub.State = StateSucceeded
	sub.Result = result
	return sub, nil
}

func (s *ReportService) fail(sub Submission, err error) Submission {
	sub.State = StateFailed
	sub.Error = ErrorMessage(err)
	sub.Manual = true
	sub.AIFailed = true
	return sub
}
