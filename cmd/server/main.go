package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/nekogravitycat/space-booking-backend/internal/app"
	"github.com/nekogravitycat/space-booking-backend/internal/config"
	"github.com/nekogravitycat/space-booking-backend/internal/db"
	"github.com/nekogravitycat/space-booking-backend/internal/escrow"
	"github.com/nekogravitycat/space-booking-backend/internal/logging"
)

func main() {
	// For receiving Ctrl+C / SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Load config
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatalf("failed to load config: %v", err)
	}

	logger := logging.New(cfg.LogLevel, cfg.IsProduction)

	// Connect DB
	var pool *pgxpool.Pool
	if cfg.DBDSN != "" {
		pool, err = db.NewPool(ctx, cfg.DBDSN)
		if err != nil {
			logger.Fatalf("failed to connect to db: %v", err)
		}
		defer pool.Close()

		if cfg.DBMigrate {
			if err := db.Migrate(ctx, pool); err != nil {
				logger.Fatalf("failed to migrate db: %v", err)
			}
			logger.Info("database schema applied")
		}
	}

	// Connect Redis
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = db.NewRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	container := app.NewContainer(app.Config{
		IsProduction:   cfg.IsProduction,
		ProdOrigins:    cfg.ProdOrigins,
		DBPool:         pool,
		Redis:          redisClient,
		JWTSecret:      cfg.JWTSecret,
		JWTTTL:         cfg.JWTAccessTokenTTL,
		Logger:         logger,
		ServiceFeeRate: cfg.ServiceFeeRate,
		ReleasePolicy: escrow.Policy{
			Delay:           cfg.ReleaseDelay,
			DailyAnchorHour: cfg.DailyReleaseAnchorHour,
			Location:        cfg.Location,
		},
		ReleaseInterval: cfg.ReleaseCheckInterval,
	})

	if cfg.DemoSeed {
		for _, u := range container.SeedDemo(time.Now().In(cfg.Location)) {
			token, err := container.JWTManager.GenerateAccessToken(u.ID, u.Email)
			if err != nil {
				logger.Fatalf("failed to issue demo token: %v", err)
			}
			logger.WithFields(logrus.Fields{"user_id": u.ID, "email": u.Email, "token": token}).Info("demo user ready")
		}
	}

	if cfg.SchedulerEnabled {
		container.Scheduler.Start(ctx, func(bookingID string, amount float64) {
			logger.WithFields(logrus.Fields{"booking_id": bookingID, "amount": amount}).Info("escrow released")
		})
	}

	// Use http.Server for graceful shutdown
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: container.Router,
	}

	// Run server in separate goroutine
	go func() {
		logger.Infof("server running on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatalf("server error: %v", err)
		}
	}()

	// Wait for Ctrl+C
	<-ctx.Done()
	logger.Info("shutdown signal received")

	// Stop releasing before the stores go away.
	container.Scheduler.Stop()

	// Create a shutdown context with timeout
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Shutdown HTTP server
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Errorf("server forced to shutdown: %v", err)
	}

	logger.Info("server exited gracefully")
}
