// Package identity talks to the identity provider that owns user accounts
// and sessions.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/civiclens/webclient/config"
	"github.com/civiclens/webclient/types"
)

// SignUpMetadata is stored with a new account and echoed back in every
// session as user metadata.
type SignUpMetadata struct {
	Name string `json:"name"`
	Role string `json:"role"`
}

// Provider is the password-based identity provider.
type Provider interface {
	// SignIn exchanges credentials for a session.
	SignIn(ctx context.Context, email, password string) (types.Session, error)

	// SignUp creates an account. The returned session is nil when the
	// provider requires email confirmation before the first sign-in.
	SignUp(ctx context.Context, email, password string, meta SignUpMetadata) (*types.Session, error)

	// SignOut revokes the session behind accessToken.
	SignOut(ctx context.Context, accessToken string) error

	// Refresh exchanges a refresh token for a new session.
	Refresh(ctx context.Context, refreshToken string) (types.Session, error)
}

// AuthError is a rejection reported by the identity provider.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authentication failed (status %d)", e.StatusCode)
	}
	return e.Message
}

// IsAuthError reports whether err is, or wraps, an *AuthError.
func IsAuthError(err error) bool {
	var authErr *AuthError
	return errors.As(err, &authErr)
}

// NewProvider constructs the provider selected in config.
func NewProvider(cfg config.IdentityConfig) (Provider, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "gotrue", "supabase":
		return NewGoTrueProvider(cfg.URL, cfg.AnonKey, nil)
	case "local":
		return NewLocalProvider(cfg.JWTSecret, cfg.TokenTTL)
	default:
		return nil, fmt.Errorf("unknown identity provider %q", cfg.Provider)
	}
}

func completeExpiry(s *types.Session, now time.Time) {
	if s.ExpiresAt == 0 && s.ExpiresIn > 0 {
		s.ExpiresAt = now.Unix() + s.ExpiresIn
	}
}
