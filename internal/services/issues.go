package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/civiclens/webclient/internal/apiclient"
	"github.com/civiclens/webclient/types"
	"golang.org/x/sync/errgroup"
)

const bulkDeleteConcurrency = 4

// IssueService encapsulates issue use-cases for one signed-in caller.
type IssueService struct {
	backend  IssueBackend
	uploader ImageUploader
	now      func() time.Time
}

func NewIssueService(backend IssueBackend, uploader ImageUploader) *IssueService {
	return &IssueService{backend: backend, uploader: uploader, now: time.Now}
}

func (s *IssueService) ListMine(ctx context.Context) ([]types.Issue, error) {
	issues, err := s.backend.ListMyIssues(ctx)
	if err != nil {
		return nil, err
	}
	return types.NormalizeIssues(issues, s.now()), nil
}

func (s *IssueService) ListForAuthority(ctx context.Context, filters apiclient.AuthorityFilters) ([]types.Issue, error) {
	issues, err := s.backend.ListAuthorityIssues(ctx, filters)
	if err != nil {
		return nil, err
	}
	return types.NormalizeIssues(issues, s.now()), nil
}

func (s *IssueService) ListPublic(ctx context.Context) ([]types.Issue, error) {
	issues, err := s.backend.ListPublicIssues(ctx)
	if err != nil {
		return nil, err
	}
	return types.NormalizeIssues(issues, s.now()), nil
}

// Get fetches one issue. A backend 404 yields ErrIssueNotFound.
func (s *IssueService) Get(ctx context.Context, id string) (types.Issue, error) {
	issue, err := s.backend.GetIssue(ctx, id)
	if err != nil {
		if apiclient.IsNotFound(err) {
			return types.Issue{}, fmt.Errorf("issue %s: %w", id, ErrIssueNotFound)
		}
		return types.Issue{}, err
	}
	return issue.Normalize(s.now()), nil
}

// UpdateStatus moves an issue to status. When resolving, a non-empty
// proof photo is uploaded first and its URL attached to the update. The
// returned issue reflects the change locally; it is not re-fetched.
func (s *IssueService) UpdateStatus(ctx context.Context, id string, status string, proof []byte) (types.Issue, error) {
	parsed, ok := types.ParseStatus(status)
	if !ok {
		return types.Issue{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var proofURL string
	if parsed == types.StatusResolved && len(proof) > 0 {
		obj, err := s.uploader.UploadProofImage(ctx, id, proof)
		if err != nil {
			return types.Issue{}, fmt.Errorf("%w: %v", ErrUploadFailed, err)
		}
		proofURL = obj.URL
	}

	updated, err := s.backend.UpdateIssueStatus(ctx, id, parsed, proofURL)
	if err != nil {
		return types.Issue{}, err
	}

	if updated.ID == "" {
		updated.ID = id
	}
	updated.Status = parsed
	if proofURL != "" {
		updated.ResolvedImageURL = proofURL
	}
	if parsed == types.StatusResolved && updated.ResolvedAt == nil {
		now := s.now().UTC()
		updated.ResolvedAt = &now
	}
	return updated.Normalize(s.now()), nil
}

// Reassign hands an issue to another department.
func (s *IssueService) Reassign(ctx context.Context, id, department string) (types.Issue, error) {
	department = strings.TrimSpace(department)
	if !types.IsDepartment(department) {
		return types.Issue{}, fmt.Errorf("%w: %q", ErrUnknownDepartment, department)
	}
	updated, err := s.backend.ReassignIssue(ctx, id, department)
	if err != nil {
		return types.Issue{}, err
	}
	if updated.ID == "" {
		updated.ID = id
	}
	updated.AssignedAuthority = department
	return updated.Normalize(s.now()), nil
}

func (s *IssueService) Delete(ctx context.Context, id string) error {
	if err := s.backend.DeleteIssue(ctx, id); err != nil {
		if apiclient.IsNotFound(err) {
			return fmt.Errorf("issue %s: %w", id, ErrIssueNotFound)
		}
		return err
	}
	return nil
}

// BulkDeleteResult reports which issues a bulk delete removed.
type BulkDeleteResult struct {
	Deleted []string         `json:"deleted"`
	Failed  map[string]error `json:"-"`
}

// FailedIDs lists the ids that could not be deleted, in request order.
func (r BulkDeleteResult) FailedIDs(requested []string) []string {
	var out []string
	for _, id := range requested {
		if _, ok := r.Failed[id]; ok {
			out = append(out, id)
		}
	}
	return out
}

// DeleteMany issues one delete per id with bounded concurrency. Failures
// do not stop the remaining deletes.
func (s *IssueService) DeleteMany(ctx context.Context, ids []string) (BulkDeleteResult, error) {
	ids = uniqueIDs(ids)
	if len(ids) == 0 {
		return BulkDeleteResult{}, ErrNoIssuesSelected
	}

	var (
		mu     sync.Mutex
		result = BulkDeleteResult{Failed: map[string]error{}}
		done   = make(map[string]bool, len(ids))
	)

	var g errgroup.Group
	g.SetLimit(bulkDeleteConcurrency)
	for _, id := range ids {
		g.Go(func() error {
			err := s.backend.DeleteIssue(ctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed[id] = err
			} else {
				done[id] = true
			}
			return nil
		})
	}
	_ = g.Wait()

	for _, id := range ids {
		if done[id] {
			result.Deleted = append(result.Deleted, id)
		}
	}
	if len(result.Failed) > 0 {
		return result, fmt.Errorf("delete %d of %d issues failed", len(result.Failed), len(ids))
	}
	return result, nil
}

func uniqueIDs(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
