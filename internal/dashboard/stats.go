// Package dashboard derives the summaries shown on dashboards from issue
// lists already fetched from the backend.
package dashboard

import (
	"math"
	"strings"

	"github.com/civiclens/webclient/types"
)

// StatusCounts partitions an issue list by status.
type StatusCounts struct {
	Total      int `json:"total"`
	Reported   int `json:"reported"`
	InProgress int `json:"in_progress"`
	Resolved   int `json:"resolved"`
}

// CountStatuses counts issues by case-insensitive status. Unknown
// statuses count towards Total only.
func CountStatuses(issues []types.Issue) StatusCounts {
	counts := StatusCounts{Total: len(issues)}
	for _, issue := range issues {
		switch {
		case issue.Status.Is(types.StatusReported):
			counts.Reported++
		case issue.Status.Is(types.StatusInProgress):
			counts.InProgress++
		case issue.Status.Is(types.StatusResolved):
			counts.Resolved++
		}
	}
	return counts
}

// Active is the number of reported or in-progress issues.
func (c StatusCounts) Active() int {
	return c.Reported + c.InProgress
}

// ResolutionRate is the resolved share of all issues as a whole
// percentage in [0,100]; 0 for an empty list.
func (c StatusCounts) ResolutionRate() int {
	return Percent(c.Resolved, c.Total)
}

// Percent returns round(part/total*100), or 0 when total is 0.
func Percent(part, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(part) / float64(total) * 100))
}

// CountPriority counts issues whose priority equals priority
// case-insensitively.
func CountPriority(issues []types.Issue, priority string) int {
	n := 0
	for _, issue := range issues {
		if strings.EqualFold(issue.Priority, priority) {
			n++
		}
	}
	return n
}
