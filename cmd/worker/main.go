// Command worker consumes notification relay jobs from Redis and delivers
// them over email and SMS.
package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"smartattendance/internal/bootstrap"
	"smartattendance/internal/config"
	"smartattendance/internal/logger"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.QueueBackend != "redis" {
		log.Fatalf("worker requires QUEUE_BACKEND=redis (got %q)", cfg.QueueBackend)
	}

	lg := bootstrap.Logger(cfg, version)
	if rl, ok := lg.(*logger.RollbarLogger); ok {
		defer rl.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("store connect failed: %v", err)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = st.Close(closeCtx)
	}()

	q, redisClient := bootstrap.Queue(cfg, lg)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		lg.Warn("redis not reachable yet, consumer will keep retrying", cfg.RedisAddr)
	}

	msgs, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	lg.Info("worker started, waiting for relay jobs", cfg.RelayQueueKey)
	bootstrap.Relay(cfg, st, lg).Run(ctx, msgs)
	lg.Info("worker stopped")
}
