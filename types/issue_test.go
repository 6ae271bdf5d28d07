package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueNormalize_Defaults(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	got := Issue{ID: "1"}.Normalize(now)

	assert.Equal(t, StatusReported, got.Status)
	assert.Equal(t, PlaceholderImageURL, got.ImageURL)
	assert.Equal(t, "Civic Issue", got.Title)
	assert.Equal(t, "medium", got.Priority)
	assert.Equal(t, now, got.CreatedAt)
	assert.Equal(t, "Unassigned", got.Authority())
	assert.Equal(t, "Civic Location", got.Location.Label())
}

func TestIssueNormalize_KeepsValues(t *testing.T) {
	created := time.Date(2024, 2, 1, 10, 0, 0, 0, time.UTC)
	issue := Issue{
		ID:         "2",
		IssueType:  "Pothole",
		Status:     "RESOLVED",
		Department: "Road Maintenance",
		ImageURL:   "https://cdn.example.com/a.jpg",
		Priority:   "HIGH",
		CreatedAt:  created,
		Location:   &Location{Address: "Main St, Bangalore"},
	}

	got := issue.Normalize(time.Now())

	assert.Equal(t, StatusResolved, got.Status)
	assert.Equal(t, "Pothole", got.Title)
	assert.Equal(t, "high", got.Priority)
	assert.Equal(t, created, got.CreatedAt)
	assert.Equal(t, "Road Maintenance", got.Authority())
	assert.Equal(t, "Main St", got.Location.Label())
}

func TestIssueDecode_ConfidenceVariants(t *testing.T) {
	body := `[
		{"id":"1","status":"reported","ai_analysis":{"is_manual":false,"confidence":0.92}},
		{"id":"2","status":"in_progress","ai_analysis":{"is_manual":true,"confidence":null}},
		{"id":"3","ai_analysis":{"confidence":"High"}}
	]`

	var issues []Issue
	require.NoError(t, json.Unmarshal([]byte(body), &issues))
	require.Len(t, issues, 3)

	assert.Equal(t, Confidence("0.92"), issues[0].AIAnalysis.Confidence)
	assert.True(t, issues[1].IsManual())
	assert.Equal(t, Confidence(""), issues[1].AIAnalysis.Confidence)
	assert.Equal(t, Confidence("High"), issues[2].AIAnalysis.Confidence)
}

func TestIssueDecode_LocationVariants(t *testing.T) {
	body := `[
		{"location":"Main St, Bangalore"},
		{"id":"2"},
		{"id":"3","location_lat":12.97,"location_lng":77.59},
		{"id":"4","location":{"lat":1.5,"lng":2.5,"address":"MG Road"},"location_lat":9,"location_lng":9},
		{"id":"5","location":"Brigade Rd","location_lat":12.9,"location_lng":77.6},
		{"id":"6","location_lat":12.97}
	]`

	var issues []Issue
	require.NoError(t, json.Unmarshal([]byte(body), &issues))
	require.Len(t, issues, 6)

	require.NotNil(t, issues[0].Location)
	assert.Equal(t, "Main St, Bangalore", issues[0].Location.Address)
	assert.Equal(t, "Main St", issues[0].Location.Label())

	assert.Equal(t, "2", issues[1].ID)
	assert.Nil(t, issues[1].Location)

	assert.Equal(t, &Location{Lat: 12.97, Lng: 77.59}, issues[2].Location)
	assert.Equal(t, &Location{Lat: 1.5, Lng: 2.5, Address: "MG Road"}, issues[3].Location)
	assert.Equal(t, &Location{Lat: 12.9, Lng: 77.6, Address: "Brigade Rd"}, issues[4].Location)
	assert.Nil(t, issues[5].Location)
}

func TestLocationDecode_RejectsOtherTypes(t *testing.T) {
	var issue Issue
	require.Error(t, json.Unmarshal([]byte(`{"location":42}`), &issue))
}

func TestIssueHasResolutionProof(t *testing.T) {
	assert.True(t, Issue{Status: StatusResolved, ResolvedImageURL: "https://cdn/proof.jpg"}.HasResolutionProof())
	assert.True(t, Issue{Status: "RESOLVED", ResolvedImageURL: "https://cdn/proof.jpg"}.HasResolutionProof())
	assert.False(t, Issue{Status: StatusResolved}.HasResolutionProof())
	assert.False(t, Issue{Status: StatusInProgress, ResolvedImageURL: "https://cdn/proof.jpg"}.HasResolutionProof())
}

func TestStatusHelpers(t *testing.T) {
	status, ok := ParseStatus(" In_Progress ")
	require.True(t, ok)
	assert.Equal(t, StatusInProgress, status)

	_, ok = ParseStatus("closed")
	assert.False(t, ok)

	assert.Equal(t, "In Progress", StatusInProgress.Label())
	assert.Equal(t, "Reported", Status("").Label())
	assert.True(t, Status("RESOLVED").Is(StatusResolved))
}

func TestAnalyticsDepartments(t *testing.T) {
	depts := AnalyticsDepartments()
	assert.NotContains(t, depts, HeadAuthorityDepartment)
	assert.Len(t, depts, len(Departments)-1)
}
