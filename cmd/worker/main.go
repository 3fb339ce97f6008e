package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/samithreddychinni/anokha-2025-attendex/internal/config"
	"github.com/samithreddychinni/anokha-2025-attendex/internal/hospitality"
	"github.com/samithreddychinni/anokha-2025-attendex/internal/logging"
	"github.com/samithreddychinni/anokha-2025-attendex/internal/queue"
	"github.com/samithreddychinni/anokha-2025-attendex/internal/store"
)

const (
	auditListKey   = "hospitality:audit"
	statsKeyPrefix = "hospitality:stats:"
)

// Worker consumes transition events and maintains the Redis audit
// trail the desk dashboards read.
func main() {
	cfg := config.Load()

	log, err := logging.New(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	redisClient := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Fatal("redis not reachable", zap.String("addr", cfg.RedisAddr))
	}

	q := queue.NewRedisQueue(redisClient.Client, "hospitality:transitions")

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatal("queue consume init failed", zap.Error(err))
	}

	log.Info("worker started, waiting for transition events")
	for msg := range messages {
		if msg.Type != "transition" {
			continue
		}

		var evt hospitality.TransitionEvent
		if err := json.Unmarshal(msg.Body, &evt); err != nil {
			log.Warn("malformed transition event", zap.Error(err))
			continue
		}

		entry, _ := json.Marshal(evt)
		if err := redisClient.Client.LPush(ctx, auditListKey, entry).Err(); err != nil {
			log.Warn("audit append failed", zap.String("event", evt.ID), zap.Error(err))
			continue
		}
		if err := redisClient.Client.Incr(ctx, statsKeyPrefix+evt.Operation).Err(); err != nil {
			log.Warn("stats bump failed", zap.String("operation", evt.Operation), zap.Error(err))
		}

		log.Info("transition recorded",
			zap.String("hospitality_id", evt.HospitalityID),
			zap.String("operation", evt.Operation),
			zap.String("status", string(evt.Status)),
			zap.Time("at", evt.At),
		)

		time.Sleep(10 * time.Millisecond) // Small delay between processing
	}

	log.Info("worker stopped")
}
