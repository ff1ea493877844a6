package consumer

import (
	"context"
	"sync"
	"time"

	"edtech-market-scout/internal/scout/config"
	"edtech-market-scout/internal/scout/service"
	"edtech-market-scout/pkg/common"
	"edtech-market-scout/pkg/logger"
	"edtech-market-scout/pkg/utils"

	"github.com/redis/go-redis/v9"
)

// RedisConsumer manages consumption of session run requests from the scout
// stream.
type RedisConsumer struct {
	cfg          *config.Config
	redisClient  *redis.Client
	orchestrator service.Orchestrator
	logger       *logger.Logger
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewRedisConsumer creates a new RedisConsumer.
func NewRedisConsumer(cfg *config.Config, redisClient *redis.Client, orchestrator service.Orchestrator, log *logger.Logger) *RedisConsumer {
	return &RedisConsumer{
		cfg:          cfg,
		redisClient:  redisClient,
		orchestrator: orchestrator,
		logger:       log,
		stopChan:     make(chan struct{}),
	}
}

// Start begins the consumer's task processing loop.
func (c *RedisConsumer) Start(ctx context.Context) {
	c.logger.Info("Redis consumer started")
	c.RegisterStreamHandler(ctx, c.ProcessTask, common.RedisStreamScoutSession, c.cfg.Scout.RunTimeout)
}

func (c *RedisConsumer) RegisterStreamHandler(ctx context.Context, fn func(ctx context.Context), streamName string, timeout time.Duration) {
	c.logger.Info("Registering stream handler", logger.Field("stream", streamName))
	c.wg.Add(1)
	utils.GoSafe(func() {
		defer c.wg.Done()
		for {
			select {
			case <-ctx.Done():
				c.logger.Info("Redis consumer stopping due to context cancellation")
				return
			case <-c.stopChan:
				c.logger.Info("Redis consumer stopping")
				return
			default:
				ctxTimeout, cancel := context.WithTimeout(ctx, timeout)
				fn(ctxTimeout)
				cancel()
			}
		}
	})
}

// ProcessTask reads one session run request from the stream and executes
// it. Malformed messages are acknowledged and dropped so they cannot wedge
// the stream.
func (c *RedisConsumer) ProcessTask(ctx context.Context) {
	streams, err := c.redisClient.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    common.RedisStreamGroup,
		Consumer: common.RedisStreamConsumer,
		Streams:  []string{common.RedisStreamScoutSession, ">"}, // ">" means only new messages
		Count:    1,
		Block:    2 * time.Second, // Block for 2 seconds to allow graceful shutdown
	}).Result()
	if err != nil {
		// Ignore context cancellation and timeout errors, as they are expected during shutdown or idle periods.
		if err == context.Canceled || err == context.DeadlineExceeded || err == redis.Nil {
			return
		}
		c.logger.Error("Failed to read from stream", logger.ErrorField(err))
		return
	}

	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return
	}

	message := streams[0].Messages[0]

	sessionID, ok := message.Values["session_id"].(string)
	if !ok || sessionID == "" {
		c.logger.Error("field 'session_id' not found or not a string in stream message", logger.Field("message_id", message.ID))
		c.ackAndDelete(ctx, message.ID)
		return
	}

	c.logger.Info("Processing session run", logger.StringField("session_id", sessionID))
	if err := c.orchestrator.Run(ctx, sessionID); err != nil {
		c.logger.Error("Session run failed", logger.ErrorField(err), logger.StringField("session_id", sessionID), logger.Field("message_id", message.ID))
	}
	c.ackAndDelete(ctx, message.ID)
}

func (c *RedisConsumer) ackAndDelete(ctx context.Context, messageID string) {
	if err := c.redisClient.XAck(ctx, common.RedisStreamScoutSession, common.RedisStreamGroup, messageID).Err(); err != nil {
		c.logger.Error("Failed to acknowledge stream message", logger.ErrorField(err), logger.Field("message_id", messageID))
		return
	}
	if err := c.redisClient.XDel(ctx, common.RedisStreamScoutSession, messageID).Err(); err != nil {
		c.logger.Error("Failed to delete stream message", logger.ErrorField(err), logger.Field("message_id", messageID))
	}
}

// Stop gracefully shuts down the consumer.
func (c *RedisConsumer) Stop() {
	close(c.stopChan)
	c.wg.Wait()
	c.logger.Info("Redis consumer stopped")
}
