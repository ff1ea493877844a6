package service

import (
	"context"

	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/pkg/common"
	"edtech-market-scout/pkg/logger"

	"github.com/redis/go-redis/v9"
)

// Dispatcher hands a session off to an out-of-process worker. Enqueue is
// best-effort: on error the caller runs the orchestration in-process.
type Dispatcher interface {
	Enqueue(ctx context.Context, sessionID string) error
}

type redisDispatcher struct {
	cfg         *config.Config
	log         *logger.Logger
	redisClient *redis.Client
}

// NewRedisDispatcher creates a Dispatcher backed by a redis stream.
func NewRedisDispatcher(cfg *config.Config, log *logger.Logger, redisClient *redis.Client) Dispatcher {
	return &redisDispatcher{
		cfg:         cfg,
		log:         log,
		redisClient: redisClient,
	}
}

func (d *redisDispatcher) Enqueue(ctx context.Context, sessionID string) error {
	if err := d.redisClient.XAdd(ctx, &redis.XAddArgs{
		Stream: common.RedisStreamScoutSession,
		Values: map[string]interface{}{"session_id": sessionID},
		MaxLen: d.cfg.Redis.StreamMaxLen, // Limit the stream size
	}).Err(); err != nil {
		d.log.Error("Failed to enqueue session", logger.ErrorField(err), logger.StringField("session_id", sessionID))
		return err
	}
	d.log.Debug("Session enqueued", logger.StringField("session_id", sessionID))
	return nil
}
