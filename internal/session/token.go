package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/civiclens/webclient/internal/events"
	"github.com/civiclens/webclient/internal/identity"
	"github.com/civiclens/webclient/internal/sessionstore"
	"github.com/civiclens/webclient/types"
	"go.uber.org/zap"
)

// TokenSource reads the bearer token of one browser session.
type TokenSource struct {
	manager   *Manager
	sessionID string
}

// TokenSource returns the token source for sessionID.
func (m *Manager) TokenSource(sessionID string) *TokenSource {
	return &TokenSource{manager: m, sessionID: sessionID}
}

// Token returns the cached access token, or "" when the browser is signed
// out. Only an expired session causes a provider round trip.
func (t *TokenSource) Token(ctx context.Context) (string, error) {
	m := t.manager
	s, err := m.store.Get(ctx, t.sessionID)
	if err != nil {
		if errors.Is(err, sessionstore.ErrNotFound) {
			return "", nil
		}
		return "", err
	}
	if !s.Expired(m.now()) || s.RefreshToken == "" {
		return s.AccessToken, nil
	}

	v, err, _ := m.refreshes.Do(t.sessionID, func() (any, error) {
		return m.refresh(ctx, t.sessionID, s)
	})
	if err != nil {
		return "", err
	}
	return v.(types.Session).AccessToken, nil
}

func (m *Manager) refresh(ctx context.Context, sessionID string, s types.Session) (types.Session, error) {
	fresh, err := m.provider.Refresh(ctx, s.RefreshToken)
	if err != nil {
		if identity.IsAuthError(err) {
			m.logger.Info("session refresh rejected", zap.String("session_id", sessionID), zap.Error(err))
			if err := m.drop(ctx, sessionID, s.User.ID); err != nil {
				m.logger.Warn("drop rejected session failed", zap.String("session_id", sessionID), zap.Error(err))
			}
		}
		return types.Session{}, fmt.Errorf("refresh session: %w", err)
	}
	if err := m.store.Put(ctx, sessionID, fresh); err != nil {
		return types.Session{}, fmt.Errorf("cache refreshed session: %w", err)
	}
	if r, ok := m.registry.Lookup(sessionID); ok {
		r.Apply(fresh)
	}
	m.publish(ctx, events.AuthEvent{Type: events.TokenRefreshed, SessionID: sessionID, UserID: fresh.User.ID})
	return fresh, nil
}
