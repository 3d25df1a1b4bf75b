package fanout

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/boxwatch/boxwatch/internal/config"
)

// streamClient is the part of *redis.Client the publisher uses.
type streamClient interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
	Close() error
}

// Redis appends messages to one stream per kind, "<prefix>:<kind>".
type Redis struct {
	client streamClient
	prefix string
	maxLen int64
}

// NewRedis connects to redis and pings it.
func NewRedis(cfg config.Redis) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect redis %s: %w", cfg.Addr, err)
	}

	return newRedis(client, cfg), nil
}

func newRedis(client streamClient, cfg config.Redis) *Redis {
	return &Redis{client: client, prefix: cfg.Stream, maxLen: cfg.MaxLen}
}

// Name implements Publisher.
func (r *Redis) Name() string { return "redis" }

// Stream returns the stream key for kind.
func (r *Redis) Stream(kind string) string {
	return r.prefix + ":" + kind
}

// Publish implements Publisher.
func (r *Redis) Publish(ctx context.Context, msg Message) error {
	body, err := msg.payload()
	if err != nil {
		return fmt.Errorf("encode %s: %w", msg.Kind, err)
	}

	args := &redis.XAddArgs{
		Stream: r.Stream(msg.Kind),
		Values: map[string]any{
			"boxId":     msg.BoxID,
			"data":      string(body),
			"timestamp": time.Now().UTC().Unix(),
		},
	}

	if r.maxLen > 0 {
		args.MaxLen = r.maxLen
		args.Approx = true
	}

	if err = r.client.XAdd(ctx, args).Err(); err != nil {
		return fmt.Errorf("xadd %s: %w", args.Stream, err)
	}

	return nil
}

// Close implements Publisher.
func (r *Redis) Close() error {
	return r.client.Close()
}
