// Package apiclient is the authenticated REST client for the issue
// backend.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/civiclens/webclient/types"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "civiclens-webclient"
)

// TokenSource supplies the bearer token for a call. An empty token sends
// the request unauthenticated.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client calls the issue backend. A Client is safe for concurrent use;
// WithTokenSource derives per-session copies that share the transport.
type Client struct {
	baseURL   string
	http      *http.Client
	tokens    TokenSource
	userAgent string
}

// New constructs a client for the backend at baseURL. A nil httpClient
// uses a client with a default timeout.
func New(baseURL string, httpClient *http.Client) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("backend api url is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid backend api url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{baseURL: baseURL, http: httpClient, userAgent: defaultUserAgent}, nil
}

// WithTokenSource returns a copy of c that authenticates with ts.
func (c *Client) WithTokenSource(ts TokenSource) *Client {
	clone := *c
	clone.tokens = ts
	return &clone
}

// CreateIssueRequest is the payload of a new issue. Manual fields are
// null when the backend should classify the photo.
type CreateIssueRequest struct {
	ImageURL         string  `json:"image_url"`
	Description      string  `json:"description"`
	LocationLat      float64 `json:"location_lat"`
	LocationLng      float64 `json:"location_lng"`
	ManualDepartment *string `json:"manual_department"`
	ManualIssueType  *string `json:"manual_issue_type"`
}

// AuthorityFilters narrow the authority issue list. Empty fields are not
// sent.
type AuthorityFilters struct {
	Status     string
	Department string
	Priority   string
}

func (f AuthorityFilters) values() url.Values {
	v := url.Values{}
	if f.Status != "" {
		v.Set("status", f.Status)
	}
	if f.Department != "" {
		v.Set("department", f.Department)
	}
	if f.Priority != "" {
		v.Set("priority", f.Priority)
	}
	return v
}

func (c *Client) CreateIssue(ctx context.Context, req CreateIssueRequest) (types.Issue, error) {
	var issue types.Issue
	err := c.do(ctx, http.MethodPost, "/issues", nil, req, &issue)
	return issue, err
}

func (c *Client) ListMyIssues(ctx context.Context) ([]types.Issue, error) {
	var issues []types.Issue
	err := c.do(ctx, http.MethodGet, "/issues/my", nil, nil, &issues)
	return issues, err
}

func (c *Client) ListAuthorityIssues(ctx context.Context, filters AuthorityFilters) ([]types.Issue, error) {
	var issues []types.Issue
	err := c.do(ctx, http.MethodGet, "/issues/authority", filters.values(), nil, &issues)
	return issues, err
}

func (c *Client) ListPublicIssues(ctx context.Context) ([]types.Issue, error) {
	var issues []types.Issue
	err := c.do(ctx, http.MethodGet, "/issues/public", nil, nil, &issues)
	return issues, err
}

// GetIssue fetches one issue. A missing issue yields an error for which
// IsNotFound is true.
func (c *Client) GetIssue(ctx context.Context, id string) (types.Issue, error) {
	var issue types.Issue
	err := c.do(ctx, http.MethodGet, "/issues/"+url.PathEscape(id), nil, nil, &issue)
	return issue, err
}

type statusUpdate struct {
	Status           types.Status `json:"status"`
	ResolvedImageURL string       `json:"resolved_image_url,omitempty"`
}

// UpdateIssueStatus moves an issue to status, attaching a resolution
// proof URL when one is given.
func (c *Client) UpdateIssueStatus(ctx context.Context, id string, status types.Status, resolvedImageURL string) (types.Issue, error) {
	var issue types.Issue
	body := statusUpdate{Status: status, ResolvedImageURL: resolvedImageURL}
	err := c.do(ctx, http.MethodPatch, "/issues/"+url.PathEscape(id)+"/status", nil, body, &issue)
	return issue, err
}

type reassignment struct {
	AssignedAuthority string `json:"assigned_authority"`
}

func (c *Client) ReassignIssue(ctx context.Context, id, authority string) (types.Issue, error) {
	var issue types.Issue
	body := reassignment{AssignedAuthority: authority}
	err := c.do(ctx, http.MethodPatch, "/issues/"+url.PathEscape(id)+"/reassign", nil, body, &issue)
	return issue, err
}

func (c *Client) DeleteIssue(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/issues/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return &APIError{Message: "encode request", Err: err}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return &APIError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(ctx, req)

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{StatusCode: resp.StatusCode, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp.StatusCode, data)
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{StatusCode: resp.StatusCode, Message: "decode response", Err: err}
	}
	return nil
}

// authorize attaches the bearer token. Token lookup failures leave the
// request unauthenticated; the backend decides.
func (c *Client) authorize(ctx context.Context, req *http.Request) {
	if c.tokens == nil {
		return
	}
	token, err := c.tokens.Token(ctx)
	if err != nil || token == "" {
		return
	}
	req.Header.Set("Authorization", "Bearer "+token)
}

func decodeError(status int, data []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		apiErr.Message = strings.TrimSpace(string(data))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(status)
		}
		return apiErr
	}

	apiErr.Message = body.Error
	apiErr.Details = body.Details
	if apiErr.Details == "" {
		apiErr.Details = body.Message
	}
	if apiErr.Message == "" {
		apiErr.Message = apiErr.Details
		apiErr.Details = ""
	}
	if apiErr.Message == "" {
		apiErr.Message = http.StatusText(status)
	}
	apiErr.Hint = body.Hint
	if body.Code != nil {
		apiErr.Code = fmt.Sprint(body.Code)
	}
	return apiErr
}
