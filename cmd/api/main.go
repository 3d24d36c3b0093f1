package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"smartattendance/internal/assignment"
	"smartattendance/internal/attendance"
	"smartattendance/internal/auth"
	"smartattendance/internal/bootstrap"
	"smartattendance/internal/classroom"
	"smartattendance/internal/cloudinary"
	"smartattendance/internal/config"
	"smartattendance/internal/correction"
	"smartattendance/internal/httpapi"
	"smartattendance/internal/logger"
	"smartattendance/internal/notify"
	"smartattendance/internal/user"
)

var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	lg := bootstrap.Logger(cfg, version)
	err = run(cfg, lg)
	if err != nil {
		lg.Error("api exited", err)
	}
	if rl, ok := lg.(*logger.RollbarLogger); ok {
		rl.Close()
	}
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg config.App, lg logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := bootstrap.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.Close(closeCtx); err != nil {
			lg.Warn("store close", err)
		}
	}()

	q, redisClient := bootstrap.Queue(cfg, lg)
	defer redisClient.Close()

	relayCtx, cancelRelay := context.WithCancel(context.Background())
	relayDone := make(chan struct{})
	if cfg.QueueBackend == "memory" {
		msgs, err := q.Consume(relayCtx)
		if err != nil {
			cancelRelay()
			return err
		}
		relay := bootstrap.Relay(cfg, st, lg)
		go func() {
			defer close(relayDone)
			relay.Run(relayCtx, msgs)
		}()
	} else {
		close(relayDone)
	}

	var files assignment.FileStore
	if cfg.CloudinaryCloudName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		files = cloudinary.New(cfg.CloudinaryCloudName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret, cfg.CloudinaryFolder)
		lg.Info("cloudinary configured", cfg.CloudinaryCloudName)
	} else {
		lg.Info("cloudinary not configured, assignment uploads disabled")
	}

	dispatcher := notify.NewDispatcher(st, q, lg)
	services := httpapi.Services{
		Auth: auth.NewService(st, auth.Settings{
			Issuer:     cfg.JWTIssuer,
			SigningKey: cfg.JWTSigningKey,
			TTL:        cfg.AccessTTL,
			BcryptCost: cfg.BcryptCost,
		}),
		Attendance:    attendance.NewService(st, dispatcher, cfg.JWTSigningKey, cfg.QRTTL),
		Corrections:   correction.NewService(st, dispatcher),
		Notifications: dispatcher,
		Users:         user.NewService(st),
		Assignments:   assignment.NewService(st, files, dispatcher, lg),
		Classes:       classroom.NewService(st),
	}

	health := map[string]httpapi.HealthCheck{"store": st.Ping}
	if redisClient != nil {
		health["redis"] = func(ctx context.Context) error {
			if !redisClient.Healthy(ctx) {
				return errors.New("redis unreachable")
			}
			return nil
		}
	}

	router := httpapi.NewRouter(httpapi.Options{
		SigningKey:      cfg.JWTSigningKey,
		Issuer:          cfg.JWTIssuer,
		CORSOrigins:     cfg.CORSOrigins,
		RateLimitPerMin: cfg.RateLimitPerMin,
		Health:          health,
	}, services, lg)

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		lg.Info("starting server", "port", cfg.HTTPPort, "store", cfg.StoreBackend, "queue", cfg.QueueBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		cancelRelay()
		return err
	case <-ctx.Done():
	}
	lg.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		lg.Warn("server forced shutdown", err)
	}

	dispatcher.Wait()
	cancelRelay()
	<-relayDone
	lg.Info("server exited")
	return nil
}
