package dashboard

import (
	"testing"

	"github.com/civiclens/webclient/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleIssues() []types.Issue {
	return []types.Issue{
		{ID: "1", Title: "Large pothole on Main St", IssueType: "Pothole", Status: "reported", AssignedAuthority: "Road Maintenance",
			Location: &types.Location{Address: "Main St, Bangalore"}},
		{ID: "2", Title: "Broken streetlight", IssueType: "Damage Streetlight", Status: "IN_PROGRESS", Department: "Streetlight Department",
			AIAnalysis: &types.AIAnalysis{IsManual: true}},
		{ID: "3", Title: "Blocked drain", IssueType: "Water Log", Status: "resolved", Department: "drainage", Priority: "High"},
		{ID: "4", Title: "Garbage dump", IssueType: "Garbage", Status: "Resolved", AssignedAuthority: "Garbage Management", Priority: "high"},
	}
}

func TestCountStatuses(t *testing.T) {
	counts := CountStatuses(sampleIssues())
	assert.Equal(t, StatusCounts{Total: 4, Reported: 1, InProgress: 1, Resolved: 2}, counts)
	assert.Equal(t, 2, counts.Active())
	assert.Equal(t, 50, counts.ResolutionRate())
}

func TestCitizenDashboardScenario(t *testing.T) {
	counts := CountStatuses([]types.Issue{
		{ID: "a", Status: types.StatusReported},
		{ID: "b", Status: types.StatusResolved},
	})
	assert.Equal(t, 2, counts.Total)
	assert.Equal(t, 0, counts.InProgress)
	assert.Equal(t, 1, counts.Resolved)
}

func TestResolutionRateBounds(t *testing.T) {
	assert.Equal(t, 0, CountStatuses(nil).ResolutionRate())

	allResolved := []types.Issue{{Status: "resolved"}, {Status: "RESOLVED"}, {Status: "Resolved"}}
	assert.Equal(t, 100, CountStatuses(allResolved).ResolutionRate())

	for total := 1; total <= 12; total++ {
		for part := 0; part <= total; part++ {
			rate := Percent(part, total)
			assert.GreaterOrEqual(t, rate, 0)
			assert.LessOrEqual(t, rate, 100)
		}
	}
	assert.Equal(t, 33, Percent(1, 3))
	assert.Equal(t, 67, Percent(2, 3))
}

func TestDepartmentBucketingScenario(t *testing.T) {
	issues := []types.Issue{{ID: "1", Status: types.StatusReported, AssignedAuthority: "Road Maintenance"}}
	stats := Departments(issues, []string{"Road Maintenance", "Drainage"})
	require.Len(t, stats, 2)

	assert.Equal(t, 1, stats[0].Total)
	assert.Equal(t, 0, stats[0].Efficiency)
	assert.Equal(t, 1, stats[0].Pending)
	assert.Equal(t, 0, stats[1].Total)
	assert.Equal(t, 0, stats[1].Efficiency)
}

func TestMatchesDepartment(t *testing.T) {
	assert.True(t, MatchesDepartment(types.Issue{Department: "drainage"}, "Drainage"))
	assert.True(t, MatchesDepartment(types.Issue{AssignedAuthority: "Road"}, "Road Maintenance"))
	assert.True(t, MatchesDepartment(types.Issue{AssignedAuthority: "Streetlight Department North"}, "Streetlight Department"))
	assert.False(t, MatchesDepartment(types.Issue{}, "Drainage"))
	assert.False(t, MatchesDepartment(types.Issue{Department: "Drainage"}, ""))
	assert.False(t, MatchesDepartment(types.Issue{Department: "Parks"}, "Drainage"))
}

func TestDepartmentStats(t *testing.T) {
	stats := Department(sampleIssues(), "Streetlight Department")
	assert.Equal(t, DepartmentStats{
		Name: "Streetlight Department", Total: 1, InProgress: 1, Manual: 1, AIDetected: 0, Efficiency: 0,
	}, stats)

	stats = Department(sampleIssues(), "Drainage")
	assert.Equal(t, 1, stats.Resolved)
	assert.Equal(t, 100, stats.Efficiency)
	assert.Equal(t, 1, stats.AIDetected)
}

func TestSearchDepartments(t *testing.T) {
	assert.Equal(t, []string{"Road Maintenance"}, SearchDepartments(types.Departments, "main"))
	assert.Equal(t, []string{"Road Maintenance", "Garbage Management"}, SearchDepartments(types.Departments, "MA"))
	assert.Len(t, SearchDepartments(types.Departments, ""), len(types.Departments))
}

func TestFilterIdentity(t *testing.T) {
	issues := sampleIssues()
	assert.Equal(t, issues, Apply(issues, Filter{Status: AllStatuses}))
	assert.Equal(t, issues, Apply(issues, Filter{Status: AllStatuses, Department: AllDepartments}))
}

func TestFilterCaseInsensitive(t *testing.T) {
	got := Apply(sampleIssues(), Filter{Status: AllStatuses, Query: "pothole"})
	require.Len(t, got, 1)
	assert.Equal(t, "1", got[0].ID)

	got = Apply(sampleIssues(), Filter{Status: "resolved"})
	assert.Len(t, got, 2)

	got = Apply(sampleIssues(), Filter{Query: "main st"})
	require.Len(t, got, 1)

	got = Apply(sampleIssues(), Filter{Query: "in_progress"})
	require.Len(t, got, 1)
	assert.Equal(t, "2", got[0].ID)
}

func TestFilterNoFalsePositives(t *testing.T) {
	filters := []Filter{
		{Status: "resolved", Query: "garbage"},
		{Status: "reported", Query: "drain"},
		{Status: AllStatuses, Query: "4"},
		{Department: "Drainage", Query: "blocked"},
	}
	for _, f := range filters {
		for _, issue := range Apply(sampleIssues(), f) {
			assert.True(t, f.matchStatus(issue))
			assert.True(t, f.matchQuery(issue))
			assert.True(t, f.matchDepartment(issue))
		}
	}
	assert.Empty(t, Apply(sampleIssues(), Filter{Status: "reported", Query: "drain"}))
}

func TestCountPriority(t *testing.T) {
	assert.Equal(t, 2, CountPriority(sampleIssues(), "high"))
}
