// Package services holds the use-cases behind each screen and action.
package services

import (
	"context"
	"errors"

	"github.com/civiclens/webclient/internal/apiclient"
	"github.com/civiclens/webclient/internal/storage"
	"github.com/civiclens/webclient/types"
)

var (
	ErrIssueNotFound     = errors.New("issue not found")
	ErrInvalidStatus     = errors.New("invalid issue status")
	ErrUnknownDepartment = errors.New("unknown department")
	ErrUploadFailed      = errors.New("photo upload failed")
	ErrNoIssuesSelected  = errors.New("no issues selected")
)

// IssueBackend is the issue backend as seen by the services.
type IssueBackend interface {
	CreateIssue(ctx context.Context, req apiclient.CreateIssueRequest) (types.Issue, error)
	ListMyIssues(ctx context.Context) ([]types.Issue, error)
	ListAuthorityIssues(ctx context.Context, filters apiclient.AuthorityFilters) ([]types.Issue, error)
	ListPublicIssues(ctx context.Context) ([]types.Issue, error)
	GetIssue(ctx context.Context, id string) (types.Issue, error)
	UpdateIssueStatus(ctx context.Context, id string, status types.Status, resolvedImageURL string) (types.Issue, error)
	ReassignIssue(ctx context.Context, id, authority string) (types.Issue, error)
	DeleteIssue(ctx context.Context, id string) error
}

// ImageUploader stores photos and returns their public URLs.
type ImageUploader interface {
	UploadIssueImage(ctx context.Context, userID string, data []byte) (storage.Object, error)
	UploadProofImage(ctx context.Context, issueID string, data []byte) (storage.Object, error)
}
