package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/ThreeDotsLabs/go-event-driven/common/log"
	"github.com/ThreeDotsLabs/watermill"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"ticketing/internal/app"
	"ticketing/internal/config"
	"ticketing/internal/observability"
)

func main() {
	log.Init(logrus.InfoLevel)

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Tracing.JaegerEndpoint != "" {
		tp, err := observability.ConfigureTraceProvider(cfg.Tracing.JaegerEndpoint)
		if err != nil {
			panic(err)
		}
		defer func() {
			_ = tp.Shutdown(context.Background())
		}()
	}

	db := sqlx.MustConnect("postgres", cfg.Postgres.URL)
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		panic(err)
	}

	watermillLogger := watermill.NewStdLogger(false, false)

	a, err := app.NewApp(cfg, watermillLogger, db, redisClient)
	if err != nil {
		panic(err)
	}

	logrus.Info("Server starting...")

	if err := a.Run(ctx); err != nil {
		panic(err)
	}
}
