package events

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Channel carries serialized events for out-of-process consumers.
const Channel = "helpdesk.events"

// redisDispatcher fans events out to a Redis channel in addition to local
// in-process subscribers. Redis publish failures are logged, not returned:
// external consumers are best-effort, local handlers are not.
type redisDispatcher struct {
	inner  Dispatcher
	client *redis.Client
	logger *zap.Logger
}

// NewRedisDispatcher wraps an in-memory dispatcher with Redis fan-out.
func NewRedisDispatcher(inner Dispatcher, client *redis.Client, logger *zap.Logger) Dispatcher {
	return &redisDispatcher{inner: inner, client: client, logger: logger}
}

func (d *redisDispatcher) Publish(ctx context.Context, event Event) error {
	if d.client != nil {
		payload, err := json.Marshal(event)
		if err != nil {
			d.logger.Error("marshal event", zap.Error(err), zap.String("type", string(event.Type)))
		} else if err := d.client.Publish(ctx, Channel, payload).Err(); err != nil {
			d.logger.Warn("redis publish failed", zap.Error(err), zap.String("type", string(event.Type)))
		}
	}
	return d.inner.Publish(ctx, event)
}

func (d *redisDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.inner.Subscribe(eventType, handler)
}
