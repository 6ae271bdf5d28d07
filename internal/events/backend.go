package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/civiclens/webclient/config"
)

// NewBackend constructs the event backend selected in config. instanceID
// keeps per-replica subscriptions apart so that every replica sees every
// event.
func NewBackend(ctx context.Context, cfg config.EventsConfig, instanceID string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "local":
		return NewLocalBackend(), nil
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub, instanceID)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
