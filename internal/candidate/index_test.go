package candidate_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/oggyb/podmatch/internal/cache"
	"github.com/oggyb/podmatch/internal/candidate"
	"github.com/oggyb/podmatch/internal/config"
	"github.com/oggyb/podmatch/internal/db"
	"github.com/oggyb/podmatch/internal/repository"
)

func setupIndex(t *testing.T) (*candidate.Index, *gorm.DB, *repository.SwipeRepository, *cache.RedisCache) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(&db.User{}, &db.Swipe{}))

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	users := repository.NewUserRepository(gdb)
	swipes := repository.NewSwipeRepository(gdb)
	rc := cache.NewRedisCache(cfg)
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	return candidate.NewIndex(users, swipes, rc, log), gdb, swipes, rc
}

func addUser(t *testing.T, gdb *gorm.DB, id, role string, completed bool) db.User {
	t.Helper()
	user := db.User{
		UserID:           id,
		Email:            id + "@test.com",
		Name:             id,
		PasswordHash:     "x",
		Role:             role,
		ProfileCompleted: completed,
		SubscriptionTier: db.TierFree,
	}
	require.NoError(t, gdb.Create(&user).Error)
	return user
}

func ids(users []db.User) []string {
	out := make([]string, len(users))
	for i, u := range users {
		out[i] = u.UserID
	}
	return out
}

func TestEligible_FiltersRoleSelfAndSwiped(t *testing.T) {
	ctx := context.Background()
	ix, gdb, swipes, _ := setupIndex(t)

	host := addUser(t, gdb, "user_host", db.RoleHost, true)
	addUser(t, gdb, "user_g1", db.RoleGuest, true)
	addUser(t, gdb, "user_g2", db.RoleGuest, true)
	addUser(t, gdb, "user_g3", db.RoleGuest, true)
	addUser(t, gdb, "user_h2", db.RoleHost, true)   // same role, excluded
	addUser(t, gdb, "user_g4", db.RoleGuest, false) // incomplete profile, excluded

	// Already swiped on g1, in any direction outcome.
	require.NoError(t, swipes.Record(ctx, &db.Swipe{
		SwipeID: db.NewID("swipe"), SwiperID: host.UserID, SwipedID: "user_g1", Direction: db.DirectionLeft,
	}, 20))

	eligible, err := ix.Eligible(ctx, &host)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"user_g2", "user_g3"}, ids(eligible))
}

func TestEligible_IncrementalCacheUpdate(t *testing.T) {
	ctx := context.Background()
	ix, gdb, _, _ := setupIndex(t)

	host := addUser(t, gdb, "user_host", db.RoleHost, true)
	addUser(t, gdb, "user_g1", db.RoleGuest, true)
	addUser(t, gdb, "user_g2", db.RoleGuest, true)

	// First call backfills the cached swiped set (empty).
	eligible, err := ix.Eligible(ctx, &host)
	require.NoError(t, err)
	assert.Len(t, eligible, 2)

	// A new swipe only touches the cached set; no table rescan needed.
	ix.NoteSwipe(ctx, host.UserID, "user_g1")

	eligible, err = ix.Eligible(ctx, &host)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_g2"}, ids(eligible))
}

func TestEligible_SwipeDuringBackfillNotResurfaced(t *testing.T) {
	ctx := context.Background()
	ix, gdb, _, rc := setupIndex(t)

	host := addUser(t, gdb, "user_host", db.RoleHost, true)
	addUser(t, gdb, "user_g1", db.RoleGuest, true)
	addUser(t, gdb, "user_g2", db.RoleGuest, true)

	// Interleave a swipe with a cache backfill: the backfill finished its
	// table read before the swipe landed, then the swipe commits and updates
	// the cache, then the stale fill arrives last.
	staleIDs := []string{}

	require.NoError(t, gdb.Create(&db.Swipe{
		SwipeID: db.NewID("swipe"), SwiperID: host.UserID, SwipedID: "user_g1", Direction: db.DirectionRight,
	}).Error)
	ix.NoteSwipe(ctx, host.UserID, "user_g1")

	// The cache write alone does not mark the set complete.
	_, ok, err := rc.SwipedSet(ctx, host.UserID)
	require.NoError(t, err)
	assert.False(t, ok)

	// The late fill merges; it must not bury the concurrently swiped target.
	require.NoError(t, rc.FillSwipedSet(ctx, host.UserID, staleIDs))

	eligible, err := ix.Eligible(ctx, &host)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_g2"}, ids(eligible))
}

func TestEligible_GuestSeesHosts(t *testing.T) {
	ctx := context.Background()
	ix, gdb, _, _ := setupIndex(t)

	guest := addUser(t, gdb, "user_guest", db.RoleGuest, true)
	addUser(t, gdb, "user_h1", db.RoleHost, true)
	addUser(t, gdb, "user_g2", db.RoleGuest, true)

	eligible, err := ix.Eligible(ctx, &guest)
	require.NoError(t, err)
	assert.Equal(t, []string{"user_h1"}, ids(eligible))
}

func TestEligible_UnsetRole(t *testing.T) {
	ctx := context.Background()
	ix, gdb, _, _ := setupIndex(t)

	user := addUser(t, gdb, "user_new", "", false)
	addUser(t, gdb, "user_h1", db.RoleHost, true)

	eligible, err := ix.Eligible(ctx, &user)
	require.NoError(t, err)
	assert.Empty(t, eligible)
}
