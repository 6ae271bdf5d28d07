package types

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// PlaceholderImageURL is shown for issues whose photo URL is missing.
const PlaceholderImageURL = "https://images.unsplash.com/photo-1515162816999-a0c47dc192f7?auto=format&fit=crop&q=80&w=1000"

const (
	defaultIssueTitle    = "Civic Issue"
	defaultAuthority     = "Unassigned"
	defaultLocationLabel = "Civic Location"
)

// Status is the lifecycle state of an issue.
type Status string

// Supported status values.
const (
	// StatusReported is the initial state of a new issue.
	StatusReported Status = "reported"

	// StatusInProgress indicates a department is working on the issue.
	StatusInProgress Status = "in_progress"

	// StatusResolved indicates the issue was fixed, normally with proof.
	StatusResolved Status = "resolved"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{StatusReported, StatusInProgress, StatusResolved}

// ParseStatus matches s case-insensitively against the known statuses.
func ParseStatus(s string) (Status, bool) {
	lower := Status(strings.ToLower(strings.TrimSpace(s)))
	for _, status := range Statuses {
		if lower == status {
			return status, true
		}
	}
	return "", false
}

// Is compares two statuses case-insensitively.
func (s Status) Is(other Status) bool {
	return strings.EqualFold(string(s), string(other))
}

// Label returns the human-readable status, e.g. "In Progress".
func (s Status) Label() string {
	if s == "" {
		return "Reported"
	}
	words := strings.Fields(strings.ReplaceAll(strings.ToLower(string(s)), "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// Location is where an issue was reported.
type Location struct {
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
	Address string  `json:"address,omitempty"`
}

// UnmarshalJSON accepts either a location object or a bare address string.
func (l *Location) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	var address string
	if err := json.Unmarshal(data, &address); err == nil {
		*l = Location{Address: address}
		return nil
	}
	type plain Location
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*l = Location(p)
	return nil
}

// Label returns the first comma-separated part of the address.
func (l *Location) Label() string {
	if l == nil {
		return defaultLocationLabel
	}
	head, _, _ := strings.Cut(l.Address, ",")
	head = strings.TrimSpace(head)
	if head == "" {
		return defaultLocationLabel
	}
	return head
}

// Confidence is the classifier's confidence. The backend sends either a
// label ("High") or a number; both are kept as text.
type Confidence string

// UnmarshalJSON accepts strings, numbers and null.
func (c *Confidence) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*c = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*c = Confidence(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*c = Confidence(strconv.FormatFloat(f, 'f', -1, 64))
	return nil
}

// AIAnalysis records how an issue was classified.
type AIAnalysis struct {
	// IsManual is true when the citizen picked department and type.
	IsManual bool `json:"is_manual"`

	// Confidence is the classifier confidence, empty for manual issues.
	Confidence Confidence `json:"confidence,omitempty"`
}

// Issue is a citizen-submitted civic complaint as returned by the backend.
// The client holds transient copies only; see Normalize.
type Issue struct {
	// ID is the backend identifier of the issue.
	ID string `json:"id"`

	// Title is an optional headline; views fall back to IssueType.
	Title string `json:"title,omitempty"`

	// IssueType is the classified or chosen type, e.g. "Pothole".
	IssueType string `json:"issue_type"`

	// Description is the citizen's free-text description.
	Description string `json:"description"`

	// Status is the lifecycle state.
	Status Status `json:"status"`

	// Department is the department the backend routed the issue to.
	Department string `json:"department,omitempty"`

	// AssignedAuthority is the authority currently responsible.
	AssignedAuthority string `json:"assigned_authority,omitempty"`

	// Priority is an optional backend priority ("low", "medium", "high").
	Priority string `json:"priority,omitempty"`

	// Location is where the issue was reported.
	Location *Location `json:"location,omitempty"`

	// ImageURL is the public URL of the citizen's photo.
	ImageURL string `json:"image_url"`

	// ResolvedImageURL is the public URL of the resolution proof.
	ResolvedImageURL string `json:"resolved_image_url,omitempty"`

	// ResolvedAt is when the issue was marked resolved.
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`

	// CreatedAt is when the issue was reported.
	CreatedAt time.Time `json:"created_at"`

	// AIAnalysis records manual vs AI classification.
	AIAnalysis *AIAnalysis `json:"ai_analysis,omitempty"`
}

// UnmarshalJSON also reads the flat location_lat and location_lng columns
// some backend rows carry instead of a location object.
func (i *Issue) UnmarshalJSON(data []byte) error {
	type plain Issue
	var aux struct {
		plain
		LocationLat *float64 `json:"location_lat"`
		LocationLng *float64 `json:"location_lng"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = Issue(aux.plain)
	if aux.LocationLat == nil || aux.LocationLng == nil {
		return nil
	}
	if i.Location == nil {
		i.Location = &Location{}
	}
	if i.Location.Lat == 0 && i.Location.Lng == 0 {
		i.Location.Lat = *aux.LocationLat
		i.Location.Lng = *aux.LocationLng
	}
	return nil
}

// Authority returns the responsible authority for display.
func (i Issue) Authority() string {
	if i.AssignedAuthority != "" {
		return i.AssignedAuthority
	}
	if i.Department != "" {
		return i.Department
	}
	return defaultAuthority
}

// IsManual reports whether the issue was classified by the citizen.
func (i Issue) IsManual() bool {
	return i.AIAnalysis != nil && i.AIAnalysis.IsManual
}

// HasResolutionProof reports whether a resolved issue carries a proof photo.
func (i Issue) HasResolutionProof() bool {
	return i.Status.Is(StatusResolved) && i.ResolvedImageURL != ""
}

// Normalize fills display defaults for fields the backend left empty.
// The status is lower-cased; unknown statuses are kept as sent.
func (i Issue) Normalize(now time.Time) Issue {
	if i.Status == "" {
		i.Status = StatusReported
	} else if parsed, ok := ParseStatus(string(i.Status)); ok {
		i.Status = parsed
	}
	if i.Title == "" {
		i.Title = i.IssueType
	}
	if i.Title == "" {
		i.Title = defaultIssueTitle
	}
	if i.ImageURL == "" {
		i.ImageURL = PlaceholderImageURL
	}
	if i.Priority == "" {
		i.Priority = "medium"
	}
	i.Priority = strings.ToLower(i.Priority)
	if i.CreatedAt.IsZero() {
		i.CreatedAt = now
	}
	return i
}

// NormalizeIssues applies Normalize to every issue. A nil input yields an
// empty, non-nil slice.
func NormalizeIssues(issues []Issue, now time.Time) []Issue {
	out := make([]Issue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Normalize(now))
	}
	return out
}
