package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"anoa.com/scholarhub/internal/bootstrap"
	"anoa.com/scholarhub/internal/config"
	"anoa.com/scholarhub/internal/logger"
	"anoa.com/scholarhub/internal/server"
	"anoa.com/scholarhub/pkg/database"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.AppEnv)

	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("invalid config")
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("database connection failed")
	}
	defer database.Close(db)

	if err := bootstrap.Migrate(db); err != nil {
		log.Fatal().Err(err).Msg("migration failed")
	}
	if cfg.AppEnv == "development" {
		if err := bootstrap.SeedSettings(db, true); err != nil {
			log.Fatal().Err(err).Msg("failed to seed settings")
		}
		if err := bootstrap.SeedDirector(db); err != nil {
			log.Fatal().Err(err).Msg("failed to seed director")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("invalid REDIS_URL")
		}
		redisClient = redis.NewClient(opts)
		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Fatal().Err(err).Msg("redis connection failed")
		}
		defer redisClient.Close()
	} else {
		log.Warn().Msg("REDIS_URL not set, using in-process message fan-out")
	}

	srv, err := server.NewServer(cfg, db, redisClient)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to build server")
	}

	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("server exited with error")
		os.Exit(1)
	}
	log.Info().Msg("server stopped")
}
