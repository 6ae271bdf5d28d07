package events

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"
)

const localBuffer = 64

// LocalBackend delivers messages to subscribers in the same process.
// Used when a single replica serves all browser sessions.
type LocalBackend struct {
	mu     sync.RWMutex
	subs   map[string]map[int]chan Message
	nextID int
	closed bool
}

// NewLocalBackend constructs an in-process backend.
func NewLocalBackend() *LocalBackend {
	return &LocalBackend{subs: make(map[string]map[int]chan Message)}
}

// Publish fans the message out to current subscribers. A subscriber whose
// buffer is full misses the message rather than blocking the publisher.
func (l *LocalBackend) Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error) {
	if strings.TrimSpace(channel) == "" {
		return "", errors.New("local channel is required")
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.closed {
		return "", errors.New("local backend closed")
	}

	msg := Message{ID: uuid.NewString(), Data: data, Attributes: attrs}
	for _, ch := range l.subs[channel] {
		select {
		case ch <- msg:
		case <-ctx.Done():
			return "", ctx.Err()
		default:
		}
	}
	return msg.ID, nil
}

// Subscribe blocks delivering messages to handler until ctx is done.
// Handler errors are dropped: there is no broker to redeliver to.
func (l *LocalBackend) Subscribe(ctx context.Context, channel string, handler Handler) error {
	if strings.TrimSpace(channel) == "" {
		return errors.New("local channel is required")
	}

	ch := make(chan Message, localBuffer)
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		return errors.New("local backend closed")
	}
	id := l.nextID
	l.nextID++
	if l.subs[channel] == nil {
		l.subs[channel] = make(map[int]chan Message)
	}
	l.subs[channel][id] = ch
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.subs[channel], id)
		l.mu.Unlock()
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-ch:
			_ = handler(ctx, msg)
		}
	}
}

// Close stops accepting publishes and subscriptions.
func (l *LocalBackend) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.closed = true
	return nil
}
