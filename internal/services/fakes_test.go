package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/civiclens/webclient/internal/apiclient"
	"github.com/civiclens/webclient/internal/storage"
	"github.com/civiclens/webclient/types"
)

type fakeBackend struct {
	mu      sync.Mutex
	issues  map[string]types.Issue
	calls   []string
	created []apiclient.CreateIssueRequest
	updates []string

	createErr error
	deleteErr map[string]error
}

func newFakeBackend(issues ...types.Issue) *fakeBackend {
	b := &fakeBackend{issues: map[string]types.Issue{}, deleteErr: map[string]error{}}
	for _, issue := range issues {
		b.issues[issue.ID] = issue
	}
	return b
}

func (b *fakeBackend) record(call string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.calls = append(b.calls, call)
}

func (b *fakeBackend) list() []types.Issue {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]types.Issue, 0, len(b.issues))
	for _, issue := range b.issues {
		out = append(out, issue)
	}
	return out
}

func (b *fakeBackend) CreateIssue(_ context.Context, req apiclient.CreateIssueRequest) (types.Issue, error) {
	b.record("create")
	if b.createErr != nil {
		return types.Issue{}, b.createErr
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.created = append(b.created, req)
	issue := types.Issue{
		ID:         fmt.Sprintf("issue-%d", len(b.created)),
		IssueType:  "Pothole",
		Department: "Road Maintenance",
		Status:     types.StatusReported,
		ImageURL:   req.ImageURL,
		AIAnalysis: &types.AIAnalysis{Confidence: "High"},
	}
	if req.ManualDepartment != nil {
		issue.Department = ""
		issue.AssignedAuthority = *req.ManualDepartment
		issue.IssueType = *req.ManualIssueType
		issue.AIAnalysis = &types.AIAnalysis{IsManual: true}
	}
	b.issues[issue.ID] = issue
	return issue, nil
}

func (b *fakeBackend) ListMyIssues(context.Context) ([]types.Issue, error) {
	b.record("my")
	return b.list(), nil
}

func (b *fakeBackend) ListAuthorityIssues(context.Context, apiclient.AuthorityFilters) ([]types.Issue, error) {
	b.record("authority")
	return b.list(), nil
}

func (b *fakeBackend) ListPublicIssues(context.Context) ([]types.Issue, error) {
	b.record("public")
	return b.list(), nil
}

func (b *fakeBackend) GetIssue(_ context.Context, id string) (types.Issue, error) {
	b.record("get")
	b.mu.Lock()
	defer b.mu.Unlock()
	issue, ok := b.issues[id]
	if !ok {
		return types.Issue{}, &apiclient.APIError{StatusCode: http.StatusNotFound, Message: "Issue not found"}
	}
	return issue, nil
}

func (b *fakeBackend) UpdateIssueStatus(_ context.Context, id string, status types.Status, proof string) (types.Issue, error) {
	b.record("status")
	b.mu.Lock()
	defer b.mu.Unlock()
	b.updates = append(b.updates, proof)
	issue, ok := b.issues[id]
	if !ok {
		return types.Issue{}, &apiclient.APIError{StatusCode: http.StatusNotFound}
	}
	issue.Status = status
	b.issues[id] = issue
	return issue, nil
}

func (b *fakeBackend) ReassignIssue(_ context.Context, id, authority string) (types.Issue, error) {
	b.record("reassign")
	b.mu.Lock()
	defer b.mu.Unlock()
	issue := b.issues[id]
	issue.AssignedAuthority = authority
	b.issues[id] = issue
	return types.Issue{}, nil
}

func (b *fakeBackend) DeleteIssue(_ context.Context, id string) error {
	b.record("delete")
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.deleteErr[id]; err != nil {
		return err
	}
	if _, ok := b.issues[id]; !ok {
		return &apiclient.APIError{StatusCode: http.StatusNotFound}
	}
	delete(b.issues, id)
	return nil
}

type fakeUploader struct {
	keys []string
	err  error
}

func (u *fakeUploader) UploadIssueImage(_ context.Context, userID string, data []byte) (storage.Object, error) {
	return u.upload(userID + "/1700000000000.png")
}

func (u *fakeUploader) UploadProofImage(_ context.Context, issueID string, data []byte) (storage.Object, error) {
	return u.upload("proofs/" + issueID + "_1700000000000.png")
}

func (u *fakeUploader) upload(key string) (storage.Object, error) {
	if u.err != nil {
		return storage.Object{}, u.err
	}
	u.keys = append(u.keys, key)
	return storage.Object{Key: key, URL: "https://cdn.example/issue-images/" + key}, nil
}

var errBackendDown = errors.New("connection refused")
