package recommend

import (
	"errors"
	"log/slog"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"github.com/oggyb/podmatch/internal/db"
)

// ErrInsufficientTrainingData is returned when the swipe history is too
// small to fit a model. The previously published model, if any, keeps
// serving.
var ErrInsufficientTrainingData = errors.New("not enough swipe data to train model")

// MinTrainingSwipes is the smallest history a training run accepts.
const MinTrainingSwipes = 10

// TrainConfig controls one training run. Defaults mirror the serving stack's
// assumptions; tests shrink batches and raise epochs for fast convergence on
// tiny synthetic sets.
type TrainConfig struct {
	Epochs       int
	BatchSize    int
	LearningRate float64
	Seed         int64
}

// DefaultTrainConfig returns the production settings: 20 epochs of shuffled
// 128-sample mini-batches under Adam at lr 0.001.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Epochs:       20,
		BatchSize:    128,
		LearningRate: 0.001,
		Seed:         time.Now().UnixNano(),
	}
}

type sample struct {
	user  int
	item  int
	label float64
}

// Train fits a fresh model from the full swipe history and returns it as an
// immutable snapshot. The caller decides whether to publish it.
//
// The swipes slice is a snapshot read taken before the call; Train never
// touches storage, holds no locks, and mutates nothing outside the model it
// is building.
func Train(swipes []db.Swipe, cfg TrainConfig, log *slog.Logger) (*Model, error) {
	if len(swipes) < MinTrainingSwipes {
		return nil, ErrInsufficientTrainingData
	}
	if log == nil {
		log = slog.Default()
	}

	// Fresh index maps over everything observed in the history. Swiping is
	// symmetric by pair, not role, so no filtering happens here.
	userIndex := make(map[string]int)
	itemIndex := make(map[string]int)
	samples := make([]sample, 0, len(swipes))
	for _, s := range swipes {
		ui, ok := userIndex[s.SwiperID]
		if !ok {
			ui = len(userIndex)
			userIndex[s.SwiperID] = ui
		}
		ii, ok := itemIndex[s.SwipedID]
		if !ok {
			ii = len(itemIndex)
			itemIndex[s.SwipedID] = ii
		}
		label := 0.0
		if s.Direction == db.DirectionRight {
			label = 1.0
		}
		samples = append(samples, sample{user: ui, item: ii, label: label})
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	model := &Model{
		Version:   uuid.NewString(),
		TrainedAt: time.Now().UTC(),
		UserIndex: userIndex,
		ItemIndex: itemIndex,
		UserEmb:   newEmbeddingTable(len(userIndex), rng),
		ItemEmb:   newEmbeddingTable(len(itemIndex), rng),
		MLP:       newMLP(2*EmbeddingDim, rng),
	}

	tr := newTrainer(model, cfg)
	log.Info("training model",
		"swipes", len(swipes),
		"users", len(userIndex),
		"items", len(itemIndex),
		"epochs", cfg.Epochs,
	)

	for epoch := 1; epoch <= cfg.Epochs; epoch++ {
		rng.Shuffle(len(samples), func(i, j int) {
			samples[i], samples[j] = samples[j], samples[i]
		})

		var epochLoss float64
		var batches int
		for start := 0; start < len(samples); start += cfg.BatchSize {
			end := start + cfg.BatchSize
			if end > len(samples) {
				end = len(samples)
			}
			epochLoss += tr.trainBatch(samples[start:end])
			batches++
		}
		log.Debug("epoch complete", "epoch", epoch, "loss", epochLoss/float64(batches))
	}

	log.Info("training complete", "version", model.Version)
	return model, nil
}

// newEmbeddingTable initializes rows with small gaussian values (std 0.01).
func newEmbeddingTable(rows int, rng *rand.Rand) [][]float64 {
	table := make([][]float64, rows)
	for i := range table {
		row := make([]float64, EmbeddingDim)
		for j := range row {
			row[j] = rng.NormFloat64() * 0.01
		}
		table[i] = row
	}
	return table
}

// trainer holds gradient accumulators and Adam moments shaped exactly like
// the model parameters.
type trainer struct {
	model *Model
	cfg   TrainConfig

	gUser, gItem [][]float64
	gW           [][][]float64
	gB           [][]float64

	mUser, vUser [][]float64
	mItem, vItem [][]float64
	mW, vW       [][][]float64
	mB, vB       [][]float64

	step int
}

func newTrainer(model *Model, cfg TrainConfig) *trainer {
	t := &trainer{model: model, cfg: cfg}
	t.gUser, t.mUser, t.vUser = zerosLike(model.UserEmb), zerosLike(model.UserEmb), zerosLike(model.UserEmb)
	t.gItem, t.mItem, t.vItem = zerosLike(model.ItemEmb), zerosLike(model.ItemEmb), zerosLike(model.ItemEmb)
	for _, layer := range model.MLP.Layers {
		t.gW = append(t.gW, zerosLike(layer.W))
		t.mW = append(t.mW, zerosLike(layer.W))
		t.vW = append(t.vW, zerosLike(layer.W))
		t.gB = append(t.gB, make([]float64, len(layer.B)))
		t.mB = append(t.mB, make([]float64, len(layer.B)))
		t.vB = append(t.vB, make([]float64, len(layer.B)))
	}
	return t
}

// trainBatch accumulates averaged gradients over the batch, applies one Adam
// step, and returns the mean binary cross-entropy of the batch.
func (t *trainer) trainBatch(batch []sample) float64 {
	zeroAll(t.gUser)
	zeroAll(t.gItem)
	for l := range t.gW {
		zeroAll(t.gW[l])
		zeroVec(t.gB[l])
	}

	const eps = 1e-12
	inv := 1.0 / float64(len(batch))
	var loss float64

	layers := t.model.MLP.Layers
	last := len(layers) - 1

	for _, s := range batch {
		x := make([]float64, 0, 2*EmbeddingDim)
		x = append(x, t.model.UserEmb[s.user]...)
		x = append(x, t.model.ItemEmb[s.item]...)

		zs, as := t.model.MLP.forwardTrace(x)
		p := sigmoid(zs[last][0])
		loss += -(s.label*math.Log(p+eps) + (1-s.label)*math.Log(1-p+eps))

		// Sigmoid + BCE: gradient at the output pre-activation is p - y.
		delta := []float64{(p - s.label) * inv}

		for l := last; l >= 0; l-- {
			prev := x
			if l > 0 {
				prev = as[l-1]
			}
			for i, d := range delta {
				row := t.gW[l][i]
				for j, a := range prev {
					row[j] += d * a
				}
				t.gB[l][i] += d
			}

			deltaPrev := make([]float64, len(prev))
			for i, d := range delta {
				for j, wij := range layers[l].W[i] {
					deltaPrev[j] += wij * d
				}
			}
			if l > 0 {
				for j := range deltaPrev {
					if zs[l-1][j] <= 0 {
						deltaPrev[j] = 0
					}
				}
			}
			delta = deltaPrev
		}

		// delta is now the gradient w.r.t. the concatenated input.
		uRow := t.gUser[s.user]
		iRow := t.gItem[s.item]
		for k := 0; k < EmbeddingDim; k++ {
			uRow[k] += delta[k]
			iRow[k] += delta[k+EmbeddingDim]
		}
	}

	t.adamStep()
	return loss * inv
}

// adamStep applies one adaptive-moment update to every parameter tensor.
func (t *trainer) adamStep() {
	const (
		beta1 = 0.9
		beta2 = 0.999
		eps   = 1e-8
	)
	t.step++
	bc1 := 1 - math.Pow(beta1, float64(t.step))
	bc2 := 1 - math.Pow(beta2, float64(t.step))

	update := func(param, grad, m, v []float64) {
		for k := range param {
			g := grad[k]
			m[k] = beta1*m[k] + (1-beta1)*g
			v[k] = beta2*v[k] + (1-beta2)*g*g
			param[k] -= t.cfg.LearningRate * (m[k] / bc1) / (math.Sqrt(v[k]/bc2) + eps)
		}
	}

	for i := range t.model.UserEmb {
		update(t.model.UserEmb[i], t.gUser[i], t.mUser[i], t.vUser[i])
	}
	for i := range t.model.ItemEmb {
		update(t.model.ItemEmb[i], t.gItem[i], t.mItem[i], t.vItem[i])
	}
	for l := range t.model.MLP.Layers {
		layer := &t.model.MLP.Layers[l]
		for i := range layer.W {
			update(layer.W[i], t.gW[l][i], t.mW[l][i], t.vW[l][i])
		}
		update(layer.B, t.gB[l], t.mB[l], t.vB[l])
	}
}

func zerosLike(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i := range m {
		out[i] = make([]float64, len(m[i]))
	}
	return out
}

func zeroAll(m [][]float64) {
	for i := range m {
		zeroVec(m[i])
	}
}

func zeroVec(v []float64) {
	for i := range v {
		v[i] = 0
	}
}
