// Standalone training run: read the full swipe history, fit a fresh model,
// persist the artifact. The server picks it up on next start; for a live
// publish use POST /api/admin/train instead.
package main

import (
	"context"
	"errors"

	"github.com/oggyb/podmatch/internal/config"
	"github.com/oggyb/podmatch/internal/db"
	"github.com/oggyb/podmatch/internal/logger"
	"github.com/oggyb/podmatch/internal/recommend"
	"github.com/oggyb/podmatch/internal/repository"
)

func main() {
	cfg := config.New()
	logger.InitFromConfig(cfg)
	log := logger.L().With("component", "trainer")

	database, err := db.NewDB(cfg)
	if err != nil {
		log.Error("failed to init db", "err", err)
		return
	}

	swipes, err := repository.NewSwipeRepository(database).All(context.Background())
	if err != nil {
		log.Error("failed to load swipe history", "err", err)
		return
	}
	log.Info("loaded swipe history", "swipes", len(swipes))

	model, err := recommend.Train(swipes, recommend.DefaultTrainConfig(), log)
	if err != nil {
		if errors.Is(err, recommend.ErrInsufficientTrainingData) {
			log.Warn("not enough swipes to train, keeping previous model", "have", len(swipes), "need", recommend.MinTrainingSwipes)
			return
		}
		log.Error("training failed", "err", err)
		return
	}

	if err := recommend.NewStore(cfg.Model.Dir).Save(model); err != nil {
		log.Error("failed to persist model", "err", err)
		return
	}
	log.Info("model persisted", "version", model.Version, "dir", cfg.Model.Dir)

	// Probe: score the first swiper against a few observed targets as a
	// quick sanity check of the freshly trained snapshot.
	if len(swipes) > 0 {
		probeUser := swipes[0].SwiperID
		seen := 0
		for _, s := range swipes {
			if seen >= 5 {
				break
			}
			log.Info("probe score",
				"user", probeUser,
				"item", s.SwipedID,
				"score", model.Score(probeUser, s.SwipedID),
			)
			seen++
		}
	}
}
