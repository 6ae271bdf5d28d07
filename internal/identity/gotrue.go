package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/civiclens/webclient/types"
)

const defaultHTTPTimeout = 15 * time.Second

// GoTrueProvider calls a GoTrue (Supabase auth) server over HTTP.
type GoTrueProvider struct {
	baseURL string
	apiKey  string
	client  *http.Client
	now     func() time.Time
}

// NewGoTrueProvider constructs a provider for the project at baseURL.
// A nil client uses a client with a default timeout.
func NewGoTrueProvider(baseURL, apiKey string, client *http.Client) (*GoTrueProvider, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("identity provider url is required")
	}
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &GoTrueProvider{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  client,
		now:     time.Now,
	}, nil
}

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshGrant struct {
	RefreshToken string `json:"refresh_token"`
}

type signUpRequest struct {
	Email    string         `json:"email"`
	Password string         `json:"password"`
	Data     SignUpMetadata `json:"data"`
}

func (p *GoTrueProvider) SignIn(ctx context.Context, email, password string) (types.Session, error) {
	var session types.Session
	err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "",
		passwordGrant{Email: strings.TrimSpace(email), Password: password}, &session)
	if err != nil {
		return types.Session{}, err
	}
	completeExpiry(&session, p.now())
	return session, nil
}

func (p *GoTrueProvider) SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (*types.Session, error) {
	var raw json.RawMessage
	err := p.do(ctx, http.MethodPost, "/auth/v1/signup", "",
		signUpRequest{Email: strings.TrimSpace(email), Password: password, Data: meta}, &raw)
	if err != nil {
		return nil, err
	}

	// With email confirmation enabled the response is the bare user.
	var session types.Session
	if err := json.Unmarshal(raw, &session); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	if session.AccessToken == "" {
		return nil, nil
	}
	completeExpiry(&session, p.now())
	return &session, nil
}

func (p *GoTrueProvider) SignOut(ctx context.Context, accessToken string) error {
	return p.do(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil, nil)
}

func (p *GoTrueProvider) Refresh(ctx context.Context, refreshToken string) (types.Session, error) {
	var session types.Session
	err := p.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=refresh_token", "",
		refreshGrant{RefreshToken: refreshToken}, &session)
	if err != nil {
		return types.Session{}, err
	}
	completeExpiry(&session, p.now())
	return session, nil
}

func (p *GoTrueProvider) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if p.apiKey != "" {
		req.Header.Set("apikey", p.apiKey)
	}
	if bearer == "" {
		bearer = p.apiKey
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("identity provider request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read identity provider response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return &AuthError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode identity provider response: %w", err)
	}
	return nil
}

type errorBody struct {
	ErrorDescription string `json:"error_description"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
}

// errorMessage picks the most descriptive message GoTrue put in an error
// body.
func errorMessage(data []byte) string {
	var body errorBody
	if err := json.Unmarshal(data, &body); err != nil {
		return strings.TrimSpace(string(data))
	}
	for _, candidate := range []string{body.ErrorDescription, body.Msg, body.Message, body.Error} {
		if strings.TrimSpace(candidate) != "" {
			return candidate
		}
	}
	return ""
}
