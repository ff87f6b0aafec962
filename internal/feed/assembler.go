// Package feed composes the ranked discovery page.
package feed

import (
	"context"
	"sort"

	"github.com/oggyb/podmatch/internal/candidate"
	"github.com/oggyb/podmatch/internal/db"
	"github.com/oggyb/podmatch/internal/recommend"
)

const (
	DefaultPageSize = 10
	MaxPageSize     = 50
)

// Ranked is one scored feed entry.
type Ranked struct {
	User  db.User
	Score float64
}

// Assembler turns the eligible-candidate set into a bounded, ranked page.
type Assembler struct {
	index  *candidate.Index
	models *recommend.Registry
}

func NewAssembler(index *candidate.Index, models *recommend.Registry) *Assembler {
	return &Assembler{index: index, models: models}
}

// Feed scores every eligible candidate for the user and returns the top
// pageSize, descending by score with candidate id as the deterministic
// tie-break. An empty eligible set yields an empty (non-nil) page.
func (a *Assembler) Feed(ctx context.Context, user *db.User, pageSize int) ([]Ranked, error) {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if pageSize > MaxPageSize {
		pageSize = MaxPageSize
	}

	eligible, err := a.index.Eligible(ctx, user)
	if err != nil {
		return nil, err
	}

	ranked := make([]Ranked, 0, len(eligible))
	for _, c := range eligible {
		ranked = append(ranked, Ranked{
			User:  c,
			Score: a.models.Score(user.UserID, c.UserID),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].User.UserID < ranked[j].User.UserID
	})

	if len(ranked) > pageSize {
		ranked = ranked[:pageSize]
	}
	return ranked, nil
}
