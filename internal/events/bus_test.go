package events

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, goleak.IgnoreTopFunction("go.opencensus.io/stats/view.(*worker).start"))
}

func waitSubscribed(t *testing.T, backend *LocalBackend, channel string, n int) {
	t.Helper()
	require.Eventually(t, func() bool {
		backend.mu.RLock()
		defer backend.mu.RUnlock()
		return len(backend.subs[channel]) == n
	}, time.Second, 5*time.Millisecond)
}

func TestBusDeliversToEverySubscriber(t *testing.T) {
	backend := NewLocalBackend()
	bus := New(backend, "auth")
	defer bus.Close()

	ctx, cancel := context.WithCancel(context.Background())
	var wg sync.WaitGroup
	received := make(chan AuthEvent, 4)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = bus.Subscribe(ctx, func(_ context.Context, evt AuthEvent) error {
				received <- evt
				return nil
			})
		}()
	}
	waitSubscribed(t, backend, "auth", 2)

	require.NoError(t, bus.Publish(context.Background(), AuthEvent{
		Type:      SignedOut,
		SessionID: "sid-1",
		UserID:    "user-1",
		Origin:    "node-a",
	}))

	for i := 0; i < 2; i++ {
		select {
		case evt := <-received:
			assert.Equal(t, SignedOut, evt.Type)
			assert.Equal(t, "sid-1", evt.SessionID)
			assert.Equal(t, "node-a", evt.Origin)
			assert.False(t, evt.OccurredAt.IsZero())
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}

	cancel()
	wg.Wait()
}

func TestBusPublishRequiresType(t *testing.T) {
	bus := New(NewLocalBackend(), "auth")
	err := bus.Publish(context.Background(), AuthEvent{SessionID: "sid"})
	require.Error(t, err)
}

func TestBusSubscribeDropsMalformedPayloads(t *testing.T) {
	backend := NewLocalBackend()
	bus := New(backend, "auth")

	ctx, cancel := context.WithCancel(context.Background())
	received := make(chan AuthEvent, 1)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = bus.Subscribe(ctx, func(_ context.Context, evt AuthEvent) error {
			received <- evt
			return nil
		})
	}()
	waitSubscribed(t, backend, "auth", 1)

	_, err := backend.Publish(context.Background(), "auth", []byte("{not json"), nil)
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), AuthEvent{Type: UserDeleted, UserID: "u"}))

	select {
	case evt := <-received:
		assert.Equal(t, UserDeleted, evt.Type)
	case <-time.After(time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	<-done
}

func TestLocalBackendClosed(t *testing.T) {
	backend := NewLocalBackend()
	require.NoError(t, backend.Close())

	_, err := backend.Publish(context.Background(), "auth", []byte("{}"), nil)
	require.Error(t, err)
	require.Error(t, backend.Subscribe(context.Background(), "auth", nil))
}

func TestAuthEventTypeClears(t *testing.T) {
	assert.True(t, SignedOut.Clears())
	assert.True(t, UserDeleted.Clears())
	assert.False(t, SignedIn.Clears())
	assert.False(t, TokenRefreshed.Clears())
	assert.False(t, UserUpdated.Clears())
}
