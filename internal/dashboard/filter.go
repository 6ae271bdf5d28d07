package dashboard

import (
	"strings"

	"github.com/civiclens/webclient/types"
)

// Filter selectors meaning "no restriction".
const (
	AllStatuses    = "ALL"
	AllDepartments = "All"
)

// Filter narrows an issue list for display.
type Filter struct {
	// Status is AllStatuses, empty, or a status compared case-insensitively.
	Status string `json:"status"`

	// Query is matched case-insensitively against the searchable fields.
	Query string `json:"query"`

	// Department is AllDepartments, empty, or a department bucket name.
	Department string `json:"department"`
}

// Match reports whether issue passes every selector of f.
func (f Filter) Match(issue types.Issue) bool {
	return f.matchStatus(issue) && f.matchDepartment(issue) && f.matchQuery(issue)
}

func (f Filter) matchStatus(issue types.Issue) bool {
	status := strings.TrimSpace(f.Status)
	if status == "" || strings.EqualFold(status, AllStatuses) {
		return true
	}
	return strings.EqualFold(string(issue.Status), status)
}

func (f Filter) matchDepartment(issue types.Issue) bool {
	dept := strings.TrimSpace(f.Department)
	if dept == "" || strings.EqualFold(dept, AllDepartments) {
		return true
	}
	return MatchesDepartment(issue, dept)
}

func (f Filter) matchQuery(issue types.Issue) bool {
	q := strings.ToLower(strings.TrimSpace(f.Query))
	if q == "" {
		return true
	}
	for _, field := range searchFields(issue) {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}

func searchFields(issue types.Issue) []string {
	return []string{
		issue.Title,
		issue.IssueType,
		issue.Description,
		issue.Authority(),
		issue.Location.Label(),
		string(issue.Status),
		issue.ID,
	}
}

// Apply returns the issues that match f, preserving order.
func Apply(issues []types.Issue, f Filter) []types.Issue {
	out := make([]types.Issue, 0, len(issues))
	for _, issue := range issues {
		if f.Match(issue) {
			out = append(out, issue)
		}
	}
	return out
}
