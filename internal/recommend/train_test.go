package recommend_test

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/podmatch/internal/db"
	"github.com/oggyb/podmatch/internal/recommend"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fastConfig converges quickly on tiny synthetic sets and is fully
// deterministic.
func fastConfig() recommend.TrainConfig {
	return recommend.TrainConfig{
		Epochs:       150,
		BatchSize:    16,
		LearningRate: 0.01,
		Seed:         42,
	}
}

func swipe(swiper, swiped, direction string) db.Swipe {
	return db.Swipe{
		SwipeID:   db.NewID("swipe"),
		SwiperID:  swiper,
		SwipedID:  swiped,
		Direction: direction,
	}
}

func TestTrain_InsufficientData(t *testing.T) {
	swipes := []db.Swipe{
		swipe("u1", "i1", db.DirectionRight),
		swipe("u2", "i1", db.DirectionLeft),
	}
	_, err := recommend.Train(swipes, fastConfig(), discard())
	assert.ErrorIs(t, err, recommend.ErrInsufficientTrainingData)
}

func TestScore_ColdStart(t *testing.T) {
	// No model published at all.
	registry := recommend.NewRegistry()
	assert.Equal(t, recommend.NeutralScore, registry.Score("u1", "i1"))

	// A trained model still serves the neutral default for unseen ids.
	model := trainSynthetic(t)
	assert.Equal(t, recommend.NeutralScore, model.Score("u_unknown", "i1"))
	assert.Equal(t, recommend.NeutralScore, model.Score("u1", "i_unknown"))
}

// trainSynthetic fits a model on a dataset where u1 consistently
// right-swipes i_good and left-swipes i_bad, with supporting users agreeing.
func trainSynthetic(t *testing.T) *recommend.Model {
	t.Helper()

	var swipes []db.Swipe
	for k := 0; k < 30; k++ {
		swipes = append(swipes, swipe("u1", "i_good", db.DirectionRight))
		swipes = append(swipes, swipe("u1", "i_bad", db.DirectionLeft))
	}
	for _, u := range []string{"u2", "u3"} {
		swipes = append(swipes, swipe(u, "i_good", db.DirectionRight))
		swipes = append(swipes, swipe(u, "i_bad", db.DirectionLeft))
	}

	model, err := recommend.Train(swipes, fastConfig(), discard())
	require.NoError(t, err)
	return model
}

func TestTrain_DirectionalLearning(t *testing.T) {
	model := trainSynthetic(t)

	good := model.Score("u1", "i_good")
	bad := model.Score("u1", "i_bad")

	assert.Greater(t, good, bad, "consistently liked item must outscore consistently passed item")
	assert.GreaterOrEqual(t, good, 0.0)
	assert.LessOrEqual(t, good, 1.0)
	assert.GreaterOrEqual(t, bad, 0.0)
	assert.LessOrEqual(t, bad, 1.0)
}

func TestTrain_ScoresInUnitInterval(t *testing.T) {
	model := trainSynthetic(t)
	for user := range model.UserIndex {
		for item := range model.ItemIndex {
			s := model.Score(user, item)
			assert.GreaterOrEqual(t, s, 0.0)
			assert.LessOrEqual(t, s, 1.0)
		}
	}
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	model := trainSynthetic(t)

	store := recommend.NewStore(t.TempDir())
	require.NoError(t, store.Save(model))

	loaded, err := store.Load()
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, model.Version, loaded.Version)

	// Fixed probe set: reloaded snapshot must score identically.
	probes := [][2]string{
		{"u1", "i_good"}, {"u1", "i_bad"},
		{"u2", "i_good"}, {"u3", "i_bad"},
		{"u_unknown", "i_good"},
	}
	for _, p := range probes {
		assert.InDelta(t, model.Score(p[0], p[1]), loaded.Score(p[0], p[1]), 1e-12,
			"score mismatch for %s/%s", p[0], p[1])
	}
}

func TestStore_LoadMissing(t *testing.T) {
	store := recommend.NewStore(t.TempDir())
	model, err := store.Load()
	require.NoError(t, err)
	assert.Nil(t, model)
}

func TestRegistry_PublishSwap(t *testing.T) {
	registry := recommend.NewRegistry()
	require.Nil(t, registry.Current())

	first := trainSynthetic(t)
	registry.Publish(first)
	assert.Equal(t, first.Version, registry.Current().Version)

	// Publishing a new snapshot swaps the whole model at once.
	second := trainSynthetic(t)
	registry.Publish(second)
	assert.Equal(t, second.Version, registry.Current().Version)
}

func TestTrain_IndependentIndexSpaces(t *testing.T) {
	// The same person appears as both swiper and swiped; they must get a
	// row in both index spaces.
	var swipes []db.Swipe
	for k := 0; k < 6; k++ {
		swipes = append(swipes, swipe("u1", "u2", db.DirectionRight))
		swipes = append(swipes, swipe("u2", "u1", db.DirectionRight))
	}

	model, err := recommend.Train(swipes, fastConfig(), discard())
	require.NoError(t, err)

	_, inUsers := model.UserIndex["u1"]
	_, inItems := model.ItemIndex["u1"]
	assert.True(t, inUsers)
	assert.True(t, inItems)
}
