package dashboard

import (
	"strings"

	"github.com/civiclens/webclient/types"
)

// DepartmentStats summarizes the issues bucketed under one department.
type DepartmentStats struct {
	Name       string `json:"name"`
	Total      int    `json:"total"`
	Resolved   int    `json:"resolved"`
	Pending    int    `json:"pending"`
	InProgress int    `json:"in_progress"`
	Efficiency int    `json:"efficiency"`
	Manual     int    `json:"manual_reported"`
	AIDetected int    `json:"ai_detected"`
}

// MatchesDepartment reports whether issue belongs to the department
// bucket: its assigned authority or department contains, or is contained
// in, the department name, ignoring case. Empty fields never match.
func MatchesDepartment(issue types.Issue, department string) bool {
	dept := strings.ToLower(strings.TrimSpace(department))
	if dept == "" {
		return false
	}
	for _, field := range []string{issue.AssignedAuthority, issue.Department} {
		f := strings.ToLower(strings.TrimSpace(field))
		if f == "" {
			continue
		}
		if strings.Contains(dept, f) || strings.Contains(f, dept) {
			return true
		}
	}
	return false
}

// Department computes the stats of one department bucket.
func Department(issues []types.Issue, name string) DepartmentStats {
	stats := DepartmentStats{Name: name}
	for _, issue := range issues {
		if !MatchesDepartment(issue, name) {
			continue
		}
		stats.Total++
		switch {
		case issue.Status.Is(types.StatusResolved):
			stats.Resolved++
		case issue.Status.Is(types.StatusReported):
			stats.Pending++
		case issue.Status.Is(types.StatusInProgress):
			stats.InProgress++
		}
		if issue.IsManual() {
			stats.Manual++
		}
	}
	stats.AIDetected = stats.Total - stats.Manual
	stats.Efficiency = Percent(stats.Resolved, stats.Total)
	return stats
}

// Departments computes stats for each named department, in order.
func Departments(issues []types.Issue, names []string) []DepartmentStats {
	out := make([]DepartmentStats, 0, len(names))
	for _, name := range names {
		out = append(out, Department(issues, name))
	}
	return out
}

// SearchDepartments keeps the names containing query, ignoring case.
func SearchDepartments(names []string, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]string, 0, len(names))
	for _, name := range names {
		if q == "" || strings.Contains(strings.ToLower(name), q) {
			out = append(out, name)
		}
	}
	return out
}
