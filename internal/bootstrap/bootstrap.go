// Package bootstrap builds the process-wide resources shared by the binaries.
package bootstrap

import (
	"context"
	"fmt"
	"log"
	"os"

	"smartattendance/internal/config"
	"smartattendance/internal/logger"
	"smartattendance/internal/notify"
	"smartattendance/internal/queue"
	"smartattendance/internal/store"
	"smartattendance/internal/store/memory"
	"smartattendance/internal/store/mongostore"
	"smartattendance/internal/store/pgstore"
)

// Logger returns the std logger, reporting to Rollbar when a token is set.
func Logger(cfg config.App, version string) logger.Logger {
	host, _ := os.Hostname()
	return logger.New(log.Default(), logger.RollbarConfig{
		Token:   cfg.RollbarToken,
		Env:     cfg.Env,
		Host:    host,
		Version: version,
	})
}

// OpenStore connects the configured Record Store backend.
func OpenStore(ctx context.Context, cfg config.App) (store.Store, error) {
	switch cfg.StoreBackend {
	case "mongo":
		return mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase, cfg.StoreTimeout)
	case "postgres":
		return pgstore.Open(ctx, cfg.DatabaseURL, cfg.StoreTimeout)
	case "memory":
		return memory.New(), nil
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}

// Queue returns the relay queue. redis is nil for the memory backend.
func Queue(cfg config.App, log logger.Logger) (queue.Queue, *store.Redis) {
	if cfg.QueueBackend != "redis" {
		return queue.NewInMemory(256), nil
	}
	r := store.NewRedis(cfg.RedisAddr, cfg.RedisPassword)
	q := queue.NewRedisQueue(r.Client, cfg.RelayQueueKey)
	q.OnError(func(err error) { log.Warn("relay queue", err) })
	return q, r
}

// Relay builds the relay consumer with whichever channels are configured.
func Relay(cfg config.App, users store.Users, log logger.Logger) *notify.Relay {
	email := notify.NewEmailSender(cfg.SendGridAPIKey, cfg.EmailFrom, cfg.EmailFromName, "Smart Attendance", log)
	sms := notify.NewSMSSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, log)
	if _, ok := email.(notify.NoopSender); ok {
		log.Info("email relay not configured")
	}
	if _, ok := sms.(notify.NoopSender); ok {
		log.Info("sms relay not configured")
	}
	return notify.NewRelay(users, email, sms, log, cfg.RelayTimeout)
}
