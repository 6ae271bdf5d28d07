package types

import (
	"fmt"
	"time"
)

// Session is an identity provider session as cached for a browser.
// The JSON shape matches the provider's token response.
type Session struct {
	// AccessToken is the bearer credential attached to backend calls.
	AccessToken string `json:"access_token"`

	// RefreshToken exchanges an expired session for a new one.
	RefreshToken string `json:"refresh_token"`

	// TokenType is normally "bearer".
	TokenType string `json:"token_type,omitempty"`

	// ExpiresIn is the access token lifetime in seconds at issue time.
	ExpiresIn int64 `json:"expires_in,omitempty"`

	// ExpiresAt is the access token expiry as a unix timestamp.
	ExpiresAt int64 `json:"expires_at,omitempty"`

	// User is the authenticated user.
	User SessionUser `json:"user"`
}

// SessionUser is the user record embedded in a session.
type SessionUser struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

// MetadataString returns a user metadata value rendered as a string, or ""
// when absent.
func (u SessionUser) MetadataString(key string) string {
	value, ok := u.UserMetadata[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}

// Valid reports whether the session carries a token and a user.
func (s Session) Valid() bool {
	return s.AccessToken != "" && s.User.ID != ""
}

// Expired reports whether the access token has expired at now.
// Sessions without an expiry never expire on the client side.
func (s Session) Expired(now time.Time) bool {
	if s.ExpiresAt == 0 {
		return false
	}
	return now.Unix() >= s.ExpiresAt
}
