// Package sessionstore caches identity provider sessions per browser
// session id.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/civiclens/webclient/config"
	"github.com/civiclens/webclient/types"
)

// ErrNotFound is returned when no session is cached under an id.
var ErrNotFound = errors.New("session not found")

// Store is the token cache read on every backend call.
type Store interface {
	Get(ctx context.Context, id string) (types.Session, error)
	Put(ctx context.Context, id string, session types.Session) error
	Delete(ctx context.Context, id string) error
	Close() error
}

// New constructs the store selected in config.
func New(ctx context.Context, cfg config.SessionConfig) (Store, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return NewMemoryStore(cfg.TTL), nil
	case "redis":
		return NewRedisStore(ctx, cfg.Redis, cfg.TTL)
	default:
		return nil, fmt.Errorf("unknown session backend %q", cfg.Backend)
	}
}
