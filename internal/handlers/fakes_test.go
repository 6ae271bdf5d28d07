package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/civiclens/webclient/internal/apiclient"
	"github.com/civiclens/webclient/types"
	"github.com/go-chi/chi/v5"
)

// fakeBackend is an in-memory issue backend served over HTTP.
type fakeBackend struct {
	mu         sync.Mutex
	issues     map[string]types.Issue
	created    []apiclient.CreateIssueRequest
	auth       []string
	failCreate bool
	rejectAuth bool
	failDelete map[string]bool
	nextID     int
}

func newFakeBackend(issues ...types.Issue) *fakeBackend {
	b := &fakeBackend{issues: map[string]types.Issue{}, failDelete: map[string]bool{}}
	for _, issue := range issues {
		b.issues[issue.ID] = issue
	}
	return b
}

func (b *fakeBackend) handler() http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			b.mu.Lock()
			b.auth = append(b.auth, r.Header.Get("Authorization"))
			reject := b.rejectAuth
			b.mu.Unlock()
			if reject {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "JWT expired"})
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	r.Post("/issues", b.create)
	r.Get("/issues/my", b.list)
	r.Get("/issues/authority", b.list)
	r.Get("/issues/public", b.list)
	r.Get("/issues/{id}", b.get)
	r.Patch("/issues/{id}/status", b.status)
	r.Patch("/issues/{id}/reassign", b.reassign)
	r.Delete("/issues/{id}", b.delete)
	return r
}

func (b *fakeBackend) lastAuth() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.auth) == 0 {
		return ""
	}
	return b.auth[len(b.auth)-1]
}

func (b *fakeBackend) createdRequests() []apiclient.CreateIssueRequest {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]apiclient.CreateIssueRequest(nil), b.created...)
}

func (b *fakeBackend) issue(id string) (types.Issue, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	issue, ok := b.issues[id]
	return issue, ok
}

func (b *fakeBackend) create(w http.ResponseWriter, r *http.Request) {
	var req apiclient.CreateIssueRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad body")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, req)
	if b.failCreate {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Classification failed", "details": "model offline"})
		return
	}

	b.nextID++
	issue := types.Issue{
		ID:          fmt.Sprintf("new-%d", b.nextID),
		IssueType:   "Pothole",
		Description: req.Description,
		Status:      types.StatusReported,
		Department:  "Road Maintenance",
		ImageURL:    req.ImageURL,
		Location:    &types.Location{Lat: req.LocationLat, Lng: req.LocationLng},
		CreatedAt:   time.Now().UTC(),
		AIAnalysis:  &types.AIAnalysis{Confidence: "High"},
	}
	if req.ManualDepartment != nil {
		issue.Department = *req.ManualDepartment
		issue.IssueType = *req.ManualIssueType
		issue.AIAnalysis = &types.AIAnalysis{IsManual: true}
	}
	b.issues[issue.ID] = issue
	writeJSON(w, http.StatusCreated, issue)
}

func (b *fakeBackend) list(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Issue, 0, len(b.issues))
	for _, issue := range b.issues {
		out = append(out, issue)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	writeJSON(w, http.StatusOK, out)
}

func (b *fakeBackend) get(w http.ResponseWriter, r *http.Request) {
	issue, ok := b.issue(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Issue not found")
		return
	}
	writeJSON(w, http.StatusOK, issue)
}

func (b *fakeBackend) status(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Status           types.Status `json:"status"`
		ResolvedImageURL string       `json:"resolved_image_url"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	issue, ok := b.issues[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Issue not found")
		return
	}
	issue.Status = body.Status
	issue.ResolvedImageURL = body.ResolvedImageURL
	b.issues[issue.ID] = issue
	writeJSON(w, http.StatusOK, issue)
}

func (b *fakeBackend) reassign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		AssignedAuthority string `json:"assigned_authority"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	b.mu.Lock()
	defer b.mu.Unlock()
	issue, ok := b.issues[chi.URLParam(r, "id")]
	if !ok {
		writeError(w, http.StatusNotFound, "Issue not found")
		return
	}
	issue.AssignedAuthority = body.AssignedAuthority
	b.issues[issue.ID] = issue
	writeJSON(w, http.StatusOK, issue)
}

func (b *fakeBackend) delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failDelete[id] {
		writeError(w, http.StatusInternalServerError, "delete failed")
		return
	}
	if _, ok := b.issues[id]; !ok {
		writeError(w, http.StatusNotFound, "Issue not found")
		return
	}
	delete(b.issues, id)
	w.WriteHeader(http.StatusNoContent)
}

// memoryObjects is an in-memory object storage backend.
type memoryObjects struct {
	mu      sync.Mutex
	objects map[string][]byte
}

func newMemoryObjects() *memoryObjects {
	return &memoryObjects{objects: map[string][]byte{}}
}

func (m *memoryObjects) EnsureBucket(context.Context) error { return nil }

func (m *memoryObjects) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[key] = data
	return nil
}

func (m *memoryObjects) PublicURL(key string) string {
	return "http://objects.local/issue-images/" + key
}

func (m *memoryObjects) Bucket() string { return "issue-images" }

func (m *memoryObjects) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.objects))
	for key := range m.objects {
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}

// pngBytes is the smallest payload sniffed as image/png.
var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 32)...)
