package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"qube-quest/models"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const accountChannelPrefix = "qube:account"

// AccountChannel returns "qube:account:{address}".
func AccountChannel(address string) string {
	return fmt.Sprintf("%s:%s", accountChannelPrefix, address)
}

// NewRedisClient parses a redis:// URL and waits for the server to answer.
func NewRedisClient(ctx context.Context, rawURL string, logger *zap.Logger) (*redis.Client, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opts)

	zapLog := logger.With(zap.String("addr", opts.Addr), zap.Int("db", opts.DB))
	for i := 0; i < 5; i++ {
		if err = rdb.Ping(ctx).Err(); err == nil {
			zapLog.Info("[Redis] Connected to Redis")
			return rdb, nil
		}
		zapLog.Warn("[Redis] Redis not ready, retrying in 3 seconds...", zap.Int("retry", i+1), zap.Error(err))
		select {
		case <-ctx.Done():
			_ = rdb.Close()
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}
	_ = rdb.Close()
	return nil, fmt.Errorf("redis unreachable at %s: %w", opts.Addr, err)
}

// RedisBroadcaster publishes account snapshots on redis so every instance's
// Hub sees changes committed by any instance.
type RedisBroadcaster struct {
	rdb    *redis.Client
	hub    *Hub
	logger *zap.Logger
}

func NewRedisBroadcaster(rdb *redis.Client, hub *Hub, logger *zap.Logger) *RedisBroadcaster {
	return &RedisBroadcaster{rdb: rdb, hub: hub, logger: logger}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, snap models.AccountSnapshot) {
	payload, err := json.Marshal(snap)
	if err != nil {
		b.logger.Error("[Redis] encode account snapshot", zap.String("address", snap.Address), zap.Error(err))
		b.hub.Publish(ctx, snap)
		return
	}
	// the commit already happened; a cancelled request must not drop the fan-out
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := b.rdb.Publish(pubCtx, AccountChannel(snap.Address), payload).Err(); err != nil {
		b.logger.Warn("[Redis] publish failed, delivering locally", zap.String("address", snap.Address), zap.Error(err))
		b.hub.Publish(ctx, snap)
	}
}

// Run relays redis messages into the local hub until ctx is done.
func (b *RedisBroadcaster) Run(ctx context.Context) {
	sub := b.rdb.PSubscribe(ctx, accountChannelPrefix+":*")
	defer sub.Close()

	b.logger.Info("🔁 Relaying account changes from redis")
	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("⏹️ Redis account relay stopped")
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var snap models.AccountSnapshot
			if err := json.Unmarshal([]byte(msg.Payload), &snap); err != nil {
				b.logger.Warn("[Redis] bad account payload", zap.String("channel", msg.Channel), zap.Error(err))
				continue
			}
			if snap.Address == "" {
				snap.Address = strings.TrimPrefix(msg.Channel, accountChannelPrefix+":")
			}
			b.hub.Publish(ctx, snap)
		}
	}
}
