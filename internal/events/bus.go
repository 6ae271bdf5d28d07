package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a message. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
// Every subscriber of a channel receives every message published to it.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// AuthEventType names an auth-state change.
type AuthEventType string

// Auth-state changes pushed by the identity provider.
const (
	SignedIn       AuthEventType = "SIGNED_IN"
	SignedOut      AuthEventType = "SIGNED_OUT"
	TokenRefreshed AuthEventType = "TOKEN_REFRESHED"
	UserUpdated    AuthEventType = "USER_UPDATED"
	UserDeleted    AuthEventType = "USER_DELETED"
)

// Clears reports whether the event ends the session's identity.
func (t AuthEventType) Clears() bool {
	return t == SignedOut || t == UserDeleted
}

// AuthEvent is an auth-state change for one browser session, or for every
// session of a user when SessionID is empty.
type AuthEvent struct {
	Type       AuthEventType `json:"type"`
	SessionID  string        `json:"session_id,omitempty"`
	UserID     string        `json:"user_id,omitempty"`
	Origin     string        `json:"origin,omitempty"`
	OccurredAt time.Time     `json:"occurred_at"`
}

const attrEventType = "event_type"

// Bus publishes and consumes auth events on a single channel.
type Bus struct {
	backend Backend
	channel string
}

// New constructs a Bus for the provided backend and channel.
func New(backend Backend, channel string) *Bus {
	return &Bus{backend: backend, channel: channel}
}

// Publish sends an auth event.
func (b *Bus) Publish(ctx context.Context, evt AuthEvent) error {
	if evt.Type == "" {
		return errors.New("auth event type is required")
	}
	if evt.OccurredAt.IsZero() {
		evt.OccurredAt = time.Now().UTC()
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode auth event: %w", err)
	}
	_, err = b.backend.Publish(ctx, b.channel, data, map[string]string{attrEventType: string(evt.Type)})
	return err
}

// Subscribe consumes auth events until ctx is done or the backend fails.
// Undecodable messages are acknowledged and dropped.
func (b *Bus) Subscribe(ctx context.Context, handle func(ctx context.Context, evt AuthEvent) error) error {
	return b.backend.Subscribe(ctx, b.channel, func(ctx context.Context, msg Message) error {
		var evt AuthEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			return nil
		}
		return handle(ctx, evt)
	})
}

// Close closes the underlying backend.
func (b *Bus) Close() error {
	return b.backend.Close()
}
