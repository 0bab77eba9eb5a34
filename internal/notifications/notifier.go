// Package notifications fans out live comment-thread events over Redis
// pub/sub to websocket subscribers.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"

	"inkwell/internal/cache"
	"inkwell/internal/middleware"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
)

// Notifier publishes thread events into Redis channels.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a Notifier. A nil client turns every call into a no-op.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// Enabled reports whether events actually leave the process.
func (n *Notifier) Enabled() bool {
	return n != nil && n.rdb != nil
}

// PublishThreadEvent sends event to the channel of its content item.
func (n *Notifier) PublishThreadEvent(ctx context.Context, event ThreadEvent) error {
	if !n.Enabled() {
		return nil
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal thread event: %w", err)
	}
	return n.rdb.Publish(ctx, cache.ThreadChannel(event.ContentID), payload).Err()
}

// StartThreadSubscriber subscribes to every thread channel and calls onMessage
// for each incoming message until ctx is cancelled.
func (n *Notifier) StartThreadSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if !n.Enabled() {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, cache.ThreadChannelPattern)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("subscribe %s: %w", cache.ThreadChannelPattern, err)
	}
	ch := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							middleware.Logger.Error("panic in thread subscriber",
								slog.Any("panic", r), slog.String("stack", string(debug.Stack())))
						}
					}()
					onMessage(msg.Channel, msg.Payload)
				}()
			}
		}
	}()

	return nil
}
