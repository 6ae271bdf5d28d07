package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/civiclens/webclient/internal/events"
	"github.com/civiclens/webclient/internal/identity"
	"github.com/civiclens/webclient/internal/sessionstore"
	"github.com/civiclens/webclient/types"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Publisher sends auth events to other processes.
type Publisher interface {
	Publish(ctx context.Context, evt events.AuthEvent) error
}

// Manager signs browser sessions in and out.
type Manager struct {
	provider  identity.Provider
	store     sessionstore.Store
	registry  *Registry
	publisher Publisher
	logger    *zap.Logger
	now       func() time.Time

	refreshes singleflight.Group
}

// NewManager constructs a Manager. publisher may be nil when no other
// process needs to hear about auth changes.
func NewManager(provider identity.Provider, store sessionstore.Store, registry *Registry, publisher Publisher, logger *zap.Logger) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{
		provider:  provider,
		store:     store,
		registry:  registry,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// SignInResult reports the outcome of a login or signup.
type SignInResult struct {
	// SessionID is the browser session id the signed-in session was
	// stored under. It differs from the id the request arrived with.
	SessionID string

	// Identity is set when the provider opened a session right away.
	Identity *types.Identity

	// SessionOpened is false when the account awaits email confirmation.
	SessionOpened bool
}

// Login signs the browser session in with a password. The session moves to
// a fresh id; the caller must hand it to the browser.
func (m *Manager) Login(ctx context.Context, sessionID, email, password string) (SignInResult, error) {
	s, err := m.provider.SignIn(ctx, email, password)
	if err != nil {
		return SignInResult{}, asAuthError(err)
	}
	return m.open(ctx, sessionID, s, events.SignedIn)
}

// Signup creates an account carrying name and role as user metadata and
// signs the browser session in when the provider allows it.
func (m *Manager) Signup(ctx context.Context, sessionID, email, password, name, role string) (SignInResult, error) {
	meta := identity.SignUpMetadata{Name: strings.TrimSpace(name), Role: strings.TrimSpace(role)}
	s, err := m.provider.SignUp(ctx, email, password, meta)
	if err != nil {
		return SignInResult{}, asAuthError(err)
	}
	if s == nil {
		return SignInResult{}, nil
	}
	return m.open(ctx, sessionID, *s, events.SignedIn)
}

// Logout signs the browser session out. Local state is cleared even when
// the provider rejects the sign-out; the rejection is still returned.
func (m *Manager) Logout(ctx context.Context, sessionID string) error {
	var providerErr error
	s, err := m.store.Get(ctx, sessionID)
	switch {
	case err == nil:
		if err := m.provider.SignOut(ctx, s.AccessToken); err != nil {
			providerErr = asAuthError(err)
		}
	case !errors.Is(err, sessionstore.ErrNotFound):
		return fmt.Errorf("read cached session: %w", err)
	}

	if err := m.drop(ctx, sessionID, s.User.ID); err != nil {
		return err
	}
	return providerErr
}

// Expire drops a session the backend or the provider no longer accepts,
// without asking the provider to sign it out.
func (m *Manager) Expire(ctx context.Context, sessionID string) error {
	var userID string
	if r, ok := m.registry.Lookup(sessionID); ok {
		userID = r.userID()
	}
	return m.drop(ctx, sessionID, userID)
}

func (m *Manager) drop(ctx context.Context, sessionID, userID string) error {
	if err := m.store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("delete cached session: %w", err)
	}
	if r, ok := m.registry.Lookup(sessionID); ok {
		r.Clear()
	}
	m.publish(ctx, events.AuthEvent{Type: events.SignedOut, SessionID: sessionID, UserID: userID})
	return nil
}

// open stores s under a new session id and retires previousID, so an id
// handed out before sign-in never names a signed-in session.
func (m *Manager) open(ctx context.Context, previousID string, s types.Session, kind events.AuthEventType) (SignInResult, error) {
	sessionID := uuid.NewString()
	if err := m.store.Put(ctx, sessionID, s); err != nil {
		return SignInResult{}, fmt.Errorf("cache session: %w", err)
	}
	if previousID != "" {
		if err := m.store.Delete(ctx, previousID); err != nil {
			m.logger.Warn("drop previous session failed", zap.String("session_id", previousID), zap.Error(err))
		}
		m.registry.Forget(previousID)
	}

	r := m.registry.Open(sessionID, s)
	m.publish(ctx, events.AuthEvent{Type: kind, SessionID: sessionID, UserID: s.User.ID})

	id, _ := r.Identity()
	return SignInResult{SessionID: sessionID, Identity: id, SessionOpened: true}, nil
}

func (m *Manager) publish(ctx context.Context, evt events.AuthEvent) {
	if m.publisher == nil {
		return
	}
	evt.Origin = m.registry.Origin()
	evt.OccurredAt = m.now().UTC()
	if err := m.publisher.Publish(ctx, evt); err != nil {
		m.logger.Warn("publish auth event failed",
			zap.String("type", string(evt.Type)),
			zap.String("session_id", evt.SessionID),
			zap.Error(err))
	}
}

func asAuthError(err error) error {
	if identity.IsAuthError(err) {
		return err
	}
	return &identity.AuthError{Message: err.Error()}
}
