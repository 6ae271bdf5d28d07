// Package session resolves the identity behind each browser session and
// keeps it current as auth-state changes arrive.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/civiclens/webclient/internal/sessionstore"
	"github.com/civiclens/webclient/types"
	"go.uber.org/zap"
)

const defaultReconcileTimeout = 5 * time.Second

// ProfileSource looks up the persisted profile of a user.
type ProfileSource interface {
	GetProfile(ctx context.Context, userID string) (types.Profile, error)
}

// Resolver owns the identity of one browser session. It is the only
// writer of that identity; everything else reads copies.
type Resolver struct {
	sessionID string
	store     sessionstore.Store
	profiles  ProfileSource
	logger    *zap.Logger
	timeout   time.Duration
	now       func() time.Time

	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	ready     chan struct{}
	readyOnce sync.Once

	mu         sync.RWMutex
	identity   *types.Identity
	loading    bool
	generation uint64
	lastSeen   time.Time
	closed     bool
}

func newResolver(sessionID string, store sessionstore.Store, profiles ProfileSource, logger *zap.Logger, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = defaultReconcileTimeout
	}
	base, cancel := context.WithCancel(context.Background())
	return &Resolver{
		sessionID: sessionID,
		store:     store,
		profiles:  profiles,
		logger:    logger.With(zap.String("session_id", sessionID)),
		timeout:   timeout,
		now:       time.Now,
		base:      base,
		cancel:    cancel,
		ready:     make(chan struct{}),
		loading:   true,
		lastSeen:  time.Now(),
	}
}

// SessionID returns the browser session id the resolver serves.
func (r *Resolver) SessionID() string {
	return r.sessionID
}

// Start reads the cached session and resolves the identity from it.
// Ready is closed once it returns, whatever the outcome.
func (r *Resolver) Start(ctx context.Context) error {
	defer r.markReady()
	return r.reload(ctx)
}

func (r *Resolver) markReady() {
	r.readyOnce.Do(func() { close(r.ready) })
}

// Ready is closed when the first resolution has completed.
func (r *Resolver) Ready() <-chan struct{} {
	return r.ready
}

// reload re-reads the cached session and applies or clears it.
func (r *Resolver) reload(ctx context.Context) error {
	s, err := r.store.Get(ctx, r.sessionID)
	if err != nil {
		r.Clear()
		if errors.Is(err, sessionstore.ErrNotFound) {
			return nil
		}
		return err
	}
	if !s.Valid() {
		r.Clear()
		return nil
	}
	r.Apply(s)
	return nil
}

// Apply publishes the optimistic identity carried by the session and
// starts reconciling it with the persisted profile.
func (r *Resolver) Apply(s types.Session) {
	optimistic := types.IdentityFromSession(s)

	r.mu.Lock()
	r.generation++
	gen := r.generation
	r.identity = &optimistic
	r.loading = false
	reconcile := r.profiles != nil && optimistic.ID != "" && !r.closed
	if reconcile {
		r.wg.Add(1)
	}
	r.mu.Unlock()

	if !reconcile {
		return
	}

	go func() {
		defer r.wg.Done()
		r.reconcile(gen, optimistic.ID)
	}()
}

// Clear drops the identity. Reconciliations still in flight are discarded
// when they complete.
func (r *Resolver) Clear() {
	r.mu.Lock()
	r.generation++
	r.identity = nil
	r.loading = false
	r.mu.Unlock()
}

func (r *Resolver) reconcile(gen uint64, userID string) {
	ctx, cancel := context.WithTimeout(r.base, r.timeout)
	defer cancel()

	profile, err := r.profiles.GetProfile(ctx, userID)
	if err != nil {
		r.logger.Debug("profile reconcile skipped", zap.String("user_id", userID), zap.Error(err))
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.generation != gen || r.identity == nil || r.identity.ID != userID {
		r.logger.Debug("stale profile reconcile discarded",
			zap.Uint64("generation", gen),
			zap.Uint64("current_generation", r.generation))
		return
	}
	merged := r.identity.MergeProfile(profile)
	r.identity = &merged
}

// Identity returns a copy of the current identity, or nil when signed
// out, and whether the first resolution is still pending.
func (r *Resolver) Identity() (*types.Identity, bool) {
	r.mu.Lock()
	r.lastSeen = r.now()
	defer r.mu.Unlock()
	if r.identity == nil {
		return nil, r.loading
	}
	identity := *r.identity
	return &identity, r.loading
}

// Wait blocks until in-flight reconciliations finish.
func (r *Resolver) Wait() {
	r.wg.Wait()
}

func (r *Resolver) idleSince() time.Time {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lastSeen
}

func (r *Resolver) userID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.identity == nil {
		return ""
	}
	return r.identity.ID
}

// Close abandons in-flight reconciliations and waits for them to return.
func (r *Resolver) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
	r.cancel()
	r.wg.Wait()
}
