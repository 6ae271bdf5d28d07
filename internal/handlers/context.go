package handlers

import (
	"context"

	"github.com/civiclens/webclient/types"
)

type contextKey string

const (
	contextSessionKey  contextKey = "session_id"
	contextIdentityKey contextKey = "identity"
)

func withSessionID(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, contextSessionKey, sessionID)
}

func sessionIDFromContext(ctx context.Context) string {
	sessionID, _ := ctx.Value(contextSessionKey).(string)
	return sessionID
}

func withIdentity(ctx context.Context, identity *types.Identity) context.Context {
	return context.WithValue(ctx, contextIdentityKey, identity)
}

// identityFromContext returns the signed-in identity, or nil.
func identityFromContext(ctx context.Context) *types.Identity {
	identity, _ := ctx.Value(contextIdentityKey).(*types.Identity)
	return identity
}
