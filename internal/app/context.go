package app

import (
	"log/slog"

	"gorm.io/gorm"

	"github.com/oggyb/podmatch/internal/cache"
	"github.com/oggyb/podmatch/internal/recommend"
)

// AppContext holds shared dependencies (DB, Redis, model registry, Logger).
type AppContext struct {
	DB         *gorm.DB
	RedisCache *cache.RedisCache
	Models     *recommend.Registry
	Logger     *slog.Logger
}

// New creates a new AppContext.
func New(db *gorm.DB, rdb *cache.RedisCache, models *recommend.Registry, logger *slog.Logger) *AppContext {
	return &AppContext{
		DB:         db,
		RedisCache: rdb,
		Models:     models,
		Logger:     logger,
	}
}
