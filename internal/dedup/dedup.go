// Package dedup offers a best-effort fast path in front of the durable
// uniqueness constraint on the activity ledger.
package dedup

import (
	"context"
	"fmt"
	"time"

	"github.com/chatrank/chatrank/internal/config"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Prober answers whether a message delivery was already fully applied.
// Seen never claims the key; Mark records it only once the caller has a
// durable outcome, so a rejected delivery stays retryable. A probe
// failure must never block ingestion; callers treat errors as "not
// seen" and fall through to the database constraint.
type Prober interface {
	Seen(ctx context.Context, chatID int64, messageID int) (bool, error)
	Mark(ctx context.Context, chatID int64, messageID int) error
}

type ProberParam struct {
	fx.In

	Config config.Config
	Log    *zap.Logger
}

type redisProber struct {
	client *redis.Client
	log    *zap.Logger
	ttl    time.Duration
}

// NewProber builds a redis-backed prober, or a disabled one when no
// redis address is configured.
func NewProber(lc fx.Lifecycle, p ProberParam) Prober {
	if p.Config.RedisAddr == "" {
		return disabledProber{}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     p.Config.RedisAddr,
		Password: p.Config.RedisPassword,
		DB:       p.Config.RedisDB,
	})

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return client.Close()
		},
	})

	return &redisProber{
		client: client,
		log:    p.Log.Named("dedup"),
		ttl:    p.Config.DedupTTL,
	}
}

func (p *redisProber) Seen(ctx context.Context, chatID int64, messageID int) (bool, error) {
	hits, err := p.client.Exists(ctx, key(chatID, messageID)).Result()
	if err != nil {
		p.log.Warn("dedup probe failed", zap.Error(err))
		return false, err
	}
	return hits > 0, nil
}

func (p *redisProber) Mark(ctx context.Context, chatID int64, messageID int) error {
	return p.client.Set(ctx, key(chatID, messageID), 1, p.ttl).Err()
}

func key(chatID int64, messageID int) string {
	return fmt.Sprintf("chatrank:seen:%d:%d", chatID, messageID)
}

type disabledProber struct{}

func (disabledProber) Seen(context.Context, int64, int) (bool, error) {
	return false, nil
}

func (disabledProber) Mark(context.Context, int64, int) error {
	return nil
}

var Module = fx.Module("dedup",
	fx.Provide(NewProber),
)
