// Package candidate maintains the eligible-candidate set for discovery:
// complementary-role users minus the requester's swipe history.
package candidate

import (
	"context"
	"log/slog"

	"github.com/oggyb/podmatch/internal/cache"
	"github.com/oggyb/podmatch/internal/db"
	"github.com/oggyb/podmatch/internal/repository"
)

// Index computes eligibility per request. The swiped-target set is kept
// incrementally in Redis (one SADD per swipe) so the full swipe table is not
// rescanned on every feed; a cache miss backfills from the database.
type Index struct {
	users  *repository.UserRepository
	swipes *repository.SwipeRepository
	cache  *cache.RedisCache
	log    *slog.Logger
}

func NewIndex(
	users *repository.UserRepository,
	swipes *repository.SwipeRepository,
	rc *cache.RedisCache,
	log *slog.Logger,
) *Index {
	return &Index{users: users, swipes: swipes, cache: rc, log: log}
}

// Eligible returns every candidate the user may still swipe on: the
// complementary role, a completed profile, not the user themselves, and not
// previously swiped by this user. A user without a role gets an empty set.
func (ix *Index) Eligible(ctx context.Context, user *db.User) ([]db.User, error) {
	comp := db.ComplementRole(user.Role)
	if comp == "" {
		return nil, nil
	}

	candidates, err := ix.users.ListDiscoverable(ctx, comp)
	if err != nil {
		return nil, err
	}

	swiped, err := ix.swipedSet(ctx, user.UserID)
	if err != nil {
		return nil, err
	}

	eligible := make([]db.User, 0, len(candidates))
	for _, c := range candidates {
		if c.UserID == user.UserID {
			continue
		}
		if _, seen := swiped[c.UserID]; seen {
			continue
		}
		eligible = append(eligible, c)
	}
	return eligible, nil
}

// NoteSwipe records a freshly swiped target in the cached set. Best effort:
// a cache failure only costs a rebuild on the next miss.
func (ix *Index) NoteSwipe(ctx context.Context, swiperID, targetID string) {
	if err := ix.cache.AddSwiped(ctx, swiperID, targetID); err != nil {
		ix.log.Warn("failed to update swiped-set cache", "user", swiperID, "err", err)
	}
}

func (ix *Index) swipedSet(ctx context.Context, userID string) (map[string]struct{}, error) {
	set, ok, err := ix.cache.SwipedSet(ctx, userID)
	if err != nil {
		ix.log.Warn("swiped-set cache read failed, falling back to db", "user", userID, "err", err)
	} else if ok {
		return set, nil
	}
	cacheable := err == nil

	ids, err := ix.swipes.SwipedTargets(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cacheable {
		if err := ix.cache.FillSwipedSet(ctx, userID, ids); err != nil {
			ix.log.Warn("failed to backfill swiped-set cache", "user", userID, "err", err)
		} else if set, ok, err := ix.cache.SwipedSet(ctx, userID); err == nil && ok {
			// The merged set also carries swipes that committed while the
			// table read ran; serve it rather than the table snapshot.
			return set, nil
		}
	}

	set = make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}
