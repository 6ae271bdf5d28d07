package session

import (
	"context"
	"sync"
	"time"

	"github.com/civiclens/webclient/internal/events"
	"github.com/civiclens/webclient/internal/sessionstore"
	"github.com/civiclens/webclient/types"
	"go.uber.org/zap"
)

// RegistryOptions tunes a Registry.
type RegistryOptions struct {
	// Origin identifies this process on the event bus.
	Origin string

	// IdleTTL evicts resolvers not read for this long. Zero disables
	// eviction.
	IdleTTL time.Duration

	// ReconcileTimeout bounds each profile fetch.
	ReconcileTimeout time.Duration
}

// Registry keeps one Resolver per browser session.
type Registry struct {
	store    sessionstore.Store
	profiles ProfileSource
	logger   *zap.Logger
	opts     RegistryOptions
	now      func() time.Time

	mu        sync.Mutex
	resolvers map[string]*Resolver
}

// NewRegistry constructs a registry. profiles may be nil, in which case
// identities are never reconciled.
func NewRegistry(store sessionstore.Store, profiles ProfileSource, logger *zap.Logger, opts RegistryOptions) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:     store,
		profiles:  profiles,
		logger:    logger,
		opts:      opts,
		now:       time.Now,
		resolvers: make(map[string]*Resolver),
	}
}

// Origin returns the id this registry stamps on the events it causes.
func (g *Registry) Origin() string {
	return g.opts.Origin
}

// Resolver returns the resolver for sessionID, creating and starting it on
// first use. Callers racing the first start wait until it has resolved.
func (g *Registry) Resolver(ctx context.Context, sessionID string) *Resolver {
	g.mu.Lock()
	r, ok := g.resolvers[sessionID]
	if !ok {
		r = newResolver(sessionID, g.store, g.profiles, g.logger, g.opts.ReconcileTimeout)
		r.now = g.now
		g.resolvers[sessionID] = r
	}
	g.mu.Unlock()

	if !ok {
		if err := r.Start(ctx); err != nil {
			g.logger.Warn("session lookup failed", zap.String("session_id", sessionID), zap.Error(err))
		}
		return r
	}

	select {
	case <-r.Ready():
	case <-ctx.Done():
	}
	return r
}

// Open registers a resolved resolver for a session that was just signed
// in under sessionID.
func (g *Registry) Open(sessionID string, s types.Session) *Resolver {
	r := newResolver(sessionID, g.store, g.profiles, g.logger, g.opts.ReconcileTimeout)
	r.now = g.now
	r.Apply(s)
	r.markReady()

	g.mu.Lock()
	previous, replaced := g.resolvers[sessionID]
	g.resolvers[sessionID] = r
	g.mu.Unlock()

	if replaced {
		previous.Close()
	}
	return r
}

// Forget removes and closes the resolver of sessionID, if any.
func (g *Registry) Forget(sessionID string) {
	g.mu.Lock()
	r, ok := g.resolvers[sessionID]
	delete(g.resolvers, sessionID)
	g.mu.Unlock()

	if ok {
		r.Close()
	}
}

// Lookup returns the resolver for sessionID without creating it.
func (g *Registry) Lookup(sessionID string) (*Resolver, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.resolvers[sessionID]
	return r, ok
}

// Len returns the number of live resolvers.
func (g *Registry) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.resolvers)
}

// HandleEvent applies an auth event published by another process.
func (g *Registry) HandleEvent(ctx context.Context, evt events.AuthEvent) error {
	if evt.Origin != "" && evt.Origin == g.opts.Origin {
		return nil
	}

	targets := g.targets(evt)
	for _, r := range targets {
		if evt.Type.Clears() {
			r.Clear()
			if evt.Type == events.UserDeleted {
				if err := g.store.Delete(ctx, r.SessionID()); err != nil {
					g.logger.Warn("drop cached session failed", zap.String("session_id", r.SessionID()), zap.Error(err))
				}
			}
			continue
		}
		if err := r.reload(ctx); err != nil {
			g.logger.Warn("session reload failed", zap.String("session_id", r.SessionID()), zap.Error(err))
		}
	}

	g.logger.Debug("auth event applied",
		zap.String("type", string(evt.Type)),
		zap.String("origin", evt.Origin),
		zap.Int("resolvers", len(targets)))
	return nil
}

func (g *Registry) targets(evt events.AuthEvent) []*Resolver {
	g.mu.Lock()
	defer g.mu.Unlock()

	if evt.SessionID != "" && evt.Type != events.UserDeleted {
		if r, ok := g.resolvers[evt.SessionID]; ok {
			return []*Resolver{r}
		}
		return nil
	}

	var out []*Resolver
	for id, r := range g.resolvers {
		if id == evt.SessionID || (evt.UserID != "" && r.userID() == evt.UserID) {
			out = append(out, r)
		}
	}
	return out
}

// Sweep evicts resolvers idle for longer than IdleTTL and returns how many
// were evicted.
func (g *Registry) Sweep() int {
	if g.opts.IdleTTL <= 0 {
		return 0
	}
	cutoff := g.now().Add(-g.opts.IdleTTL)

	g.mu.Lock()
	var evicted []*Resolver
	for id, r := range g.resolvers {
		if r.idleSince().Before(cutoff) {
			evicted = append(evicted, r)
			delete(g.resolvers, id)
		}
	}
	g.mu.Unlock()

	for _, r := range evicted {
		r.Close()
	}
	return len(evicted)
}

// Run sweeps idle resolvers every interval until ctx is done.
func (g *Registry) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if n := g.Sweep(); n > 0 {
				g.logger.Debug("idle sessions evicted", zap.Int("count", n))
			}
		}
	}
}

// Close closes every resolver.
func (g *Registry) Close() {
	g.mu.Lock()
	resolvers := g.resolvers
	g.resolvers = make(map[string]*Resolver)
	g.mu.Unlock()

	for _, r := range resolvers {
		r.Close()
	}
}
