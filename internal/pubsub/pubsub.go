// Package pubsub carries immediate (non-delayed) notification events over a
// single Redis channel, decoupling producers from the notification handler.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/taskgrid/notification-service/internal/domain"
)

// Channel is the single pub/sub channel for immediate events.
const Channel = "notifications"

// Publisher pushes events onto the fan-out channel.
type Publisher struct {
	rdb    redis.UniversalClient
	logger *zap.Logger
}

func NewPublisher(rdb redis.UniversalClient, logger *zap.Logger) *Publisher {
	return &Publisher{rdb: rdb, logger: logger}
}

func (p *Publisher) Publish(ctx context.Context, e *domain.NotificationEvent) error {
	payload, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := p.rdb.Publish(ctx, Channel, payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", Channel, err)
	}
	p.logger.Debug("event published",
		zap.String("channel", Channel),
		zap.String("type", string(e.Type)),
	)
	return nil
}

// Dispatcher routes a decoded event into the notification handler.
// The notifier implements it; tests substitute a recording fake.
type Dispatcher interface {
	Dispatch(ctx context.Context, e *domain.NotificationEvent)
}

// Listener subscribes once and forwards every message to the dispatcher.
// Malformed messages are logged and dropped; there is no redelivery on this
// path, producers needing durability use the delay queues instead.
type Listener struct {
	rdb        redis.UniversalClient
	dispatcher Dispatcher
	logger     *zap.Logger
}

func NewListener(rdb redis.UniversalClient, dispatcher Dispatcher, logger *zap.Logger) *Listener {
	return &Listener{rdb: rdb, dispatcher: dispatcher, logger: logger}
}

// Run blocks until ctx is cancelled, dispatching each received message.
func (l *Listener) Run(ctx context.Context) {
	sub := l.rdb.Subscribe(ctx, Channel)
	defer sub.Close() //nolint:errcheck

	l.logger.Info("pub/sub listener started", zap.String("channel", Channel))

	msgs := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			l.logger.Info("pub/sub listener stopping")
			return
		case msg, ok := <-msgs:
			if !ok {
				l.logger.Warn("pub/sub subscription closed")
				return
			}
			l.handle(ctx, []byte(msg.Payload))
		}
	}
}

func (l *Listener) handle(ctx context.Context, payload []byte) {
	var e domain.NotificationEvent
	if err := json.Unmarshal(payload, &e); err != nil {
		l.logger.Warn("dropping malformed pub/sub message", zap.Error(err))
		return
	}
	if !e.Type.IsValid() {
		l.logger.Warn("dropping pub/sub message with unknown type", zap.String("type", string(e.Type)))
		return
	}
	l.dispatcher.Dispatch(ctx, &e)
}
