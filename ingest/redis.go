package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisSource subscribes to a pub/sub channel carrying one JSON report per
// message.
type RedisSource struct {
	name    string
	client  *redis.Client
	channel string
	logger  *slog.Logger
	now     func() time.Time
}

func NewRedisSource(name string, client *redis.Client, channel string, logger *slog.Logger) *RedisSource {
	return &RedisSource{name: name, client: client, channel: channel, logger: logger, now: time.Now}
}

func (s *RedisSource) Name() string { return s.name }

func (s *RedisSource) Run(ctx context.Context, sink Sink) error {
	sub := s.client.Subscribe(ctx, s.channel)
	defer func() { _ = sub.Close() }()

	if _, err := sub.Receive(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("subscribe %s: %w", s.channel, err)
	}
	s.logger.Info("subscribed", "channel", s.channel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return fmt.Errorf("subscription to %s closed", s.channel)
			}
			r, err := DecodeReport([]byte(msg.Payload), s.now())
			if err != nil {
				s.logger.Warn("skipping message", "err", err)
				continue
			}
			sink(r)
		}
	}
}
