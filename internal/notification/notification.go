package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/walletstate/internal/wallet"
)

// Message describes a wallet change for downstream systems. It never carries
// secret key material.
type Message struct {
	Kind      string    `json:"kind"`
	PublicKey string    `json:"public_key"`
	Balance   float64   `json:"balance"`
	Version   uint64    `json:"version"`
	At        time.Time `json:"at"`
}

// FromEvent converts a store event into a Message.
func FromEvent(ev wallet.Event) Message {
	return Message{
		Kind:      string(ev.Kind),
		PublicKey: ev.State.PublicKey,
		Balance:   ev.State.Balance,
		Version:   ev.State.Version,
		At:        time.Now().UTC(),
	}
}

// Notifier delivers notifications to downstream systems.
type Notifier interface {
	Send(ctx context.Context, message Message) error
}

// LoggerNotifier writes notifications to the structured logger.
type LoggerNotifier struct {
	logger *slog.Logger
}

// NewLoggerNotifier constructs a logging notifier.
func NewLoggerNotifier(logger *slog.Logger) *LoggerNotifier {
	return &LoggerNotifier{logger: logger}
}

// Send writes the message to the structured logger.
func (n *LoggerNotifier) Send(_ context.Context, message Message) error {
	if n == nil || n.logger == nil {
		return nil
	}
	n.logger.Info("notification",
		"kind", message.Kind,
		"public_key", message.PublicKey,
		"balance", message.Balance,
		"version", message.Version,
	)
	return nil
}

// RedisNotifier publishes JSON-encoded messages on a Redis channel.
type RedisNotifier struct {
	cache   *redis.Client
	channel string
}

// NewRedisNotifier constructs a Redis pub/sub notifier.
func NewRedisNotifier(cache *redis.Client, channel string) *RedisNotifier {
	return &RedisNotifier{cache: cache, channel: channel}
}

// Send publishes the message.
func (n *RedisNotifier) Send(ctx context.Context, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("encode notification: %w", err)
	}
	if err := n.cache.Publish(ctx, n.channel, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", n.channel, err)
	}
	return nil
}

// Multi fans a message out to every notifier and joins their errors.
type Multi []Notifier

// Send delivers to all notifiers even when some fail.
func (m Multi) Send(ctx context.Context, message Message) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Send(ctx, message); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Relay forwards every event from sub to notifier until the subscription
// closes or ctx is done. Delivery failures are logged and skipped.
func Relay(ctx context.Context, sub *wallet.Subscription, notifier Notifier, logger *slog.Logger) {
	defer sub.Unsubscribe()
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			sendCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
			err := notifier.Send(sendCtx, FromEvent(ev))
			cancel()
			if err != nil && logger != nil {
				logger.Warn("notification delivery failed",
					slog.String("kind", string(ev.Kind)),
					slog.Uint64("version", ev.State.Version),
					slog.Any("error", err),
				)
			}
		}
	}
}
