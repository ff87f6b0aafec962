// Package recommend holds the neural collaborative filtering scorer: learned
// user/item embeddings combined through a small feed-forward network, trained
// offline from swipe history and served through an atomically swappable
// registry.
package recommend

import (
	"time"
)

const (
	// EmbeddingDim is the width of each user/item embedding row.
	EmbeddingDim = 32

	// NeutralScore is served whenever personalization is unavailable: no
	// trained model yet, or an id the current model has never seen.
	NeutralScore = 0.5
)

// Model is one immutable trained snapshot. A training run builds a complete
// Model off to the side and publishes it as a whole; nothing here is mutated
// after publication, which is what makes Score safe for concurrent callers.
//
// UserIndex/ItemIndex map external ids to dense matrix rows. The two index
// spaces are independent: the same person appears in both if they have
// swiped and been swiped on. Indices are only meaningful for the snapshot
// they were built with.
type Model struct {
	Version   string    `json:"version"`
	TrainedAt time.Time `json:"trained_at"`

	UserIndex map[string]int `json:"user_index"`
	ItemIndex map[string]int `json:"item_index"`

	UserEmb [][]float64 `json:"user_emb"`
	ItemEmb [][]float64 `json:"item_emb"`

	MLP *MLP `json:"mlp"`
}

// Score predicts how likely userID is to right-swipe itemID, in [0,1].
// Pure and side-effect free. Unknown ids and a nil model degrade to
// NeutralScore rather than failing, so cold-start users stay rankable.
func (m *Model) Score(userID, itemID string) float64 {
	if m == nil {
		return NeutralScore
	}
	ui, ok := m.UserIndex[userID]
	if !ok {
		return NeutralScore
	}
	ii, ok := m.ItemIndex[itemID]
	if !ok {
		return NeutralScore
	}

	x := make([]float64, 0, 2*EmbeddingDim)
	x = append(x, m.UserEmb[ui]...)
	x = append(x, m.ItemEmb[ii]...)
	return m.MLP.Forward(x)
}
