package main

import (
	"context"

	"github.com/oggyb/podmatch/internal/app"
	"github.com/oggyb/podmatch/internal/cache"
	"github.com/oggyb/podmatch/internal/config"
	"github.com/oggyb/podmatch/internal/db"
	"github.com/oggyb/podmatch/internal/logger"
	"github.com/oggyb/podmatch/internal/recommend"
	"github.com/oggyb/podmatch/internal/server"
	"github.com/oggyb/podmatch/internal/service/engine"
)

func main() {
	cfg := config.New()

	// Init logger (global singleton)
	logger.InitFromConfig(cfg)
	log := logger.L()

	// Init DB
	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	// Init Redis
	redisCache := cache.NewRedisCache(cfg)
	if err := redisCache.Ping(context.Background()); err != nil {
		log.Error("failed to connect to redis", "err", err)
		return
	}

	// Model registry: reload the last persisted snapshot so a restart does
	// not fall back to cold-start scoring.
	registry := recommend.NewRegistry()
	modelStore := recommend.NewStore(cfg.Model.Dir)
	if model, err := modelStore.Load(); err != nil {
		log.Warn("failed to load persisted model, serving cold", "err", err)
	} else if model != nil {
		registry.Publish(model)
		log.Info("loaded persisted model", "version", model.Version, "trained_at", model.TrainedAt)
	}

	appCtx := app.New(database, redisCache, registry, log)

	if cfg.App.ENV == "development" {
		if err := db.SeedDemoData(database); err != nil {
			log.Error("failed to seed", "err", err)
		}
	}

	svc := engine.NewService(appCtx, modelStore, cfg.Quota.FreeDailySwipes)
	handler := server.NewHandler(svc, log)

	addr := cfg.HTTP.Host + ":" + cfg.HTTP.Port
	log.Info("starting http server", "addr", addr)

	if err := server.StartHTTPServer(cfg, server.NewRouter(handler)); err != nil {
		log.Error("http server exited", "err", err)
	}
}
