package repository_test

import (
	"context"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/oggyb/podmatch/internal/db"
	svcErr "github.com/oggyb/podmatch/internal/errors"
	"github.com/oggyb/podmatch/internal/repository"
	"github.com/oggyb/podmatch/internal/utils/pagination"
)

func TestCreateIfAbsent_ExactlyOnce(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewMatchRepository(gdb)

	u1, u2 := db.CanonicalPair("user_b", "user_a")
	assert.Equal(t, "user_a", u1)
	assert.Equal(t, "user_b", u2)

	first := &db.Match{MatchID: db.NewID("match"), User1ID: u1, User2ID: u2}
	created, err := repo.CreateIfAbsent(ctx, first)
	require.NoError(t, err)
	assert.True(t, created)

	// Second resolution path for the same pair loses and gets the winner.
	second := &db.Match{MatchID: db.NewID("match"), User1ID: u1, User2ID: u2}
	created, err = repo.CreateIfAbsent(ctx, second)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.MatchID, second.MatchID)

	var count int64
	require.NoError(t, gdb.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestCreateIfAbsent_ConcurrentResolvers(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	repo := repository.NewMatchRepository(gdb)

	// Both participants' swipe paths race to create the same canonical pair.
	const racers = 8
	winners := make(chan string, racers)
	created := make(chan bool, racers)
	var wg sync.WaitGroup
	for i := 0; i < racers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			match := &db.Match{MatchID: db.NewID("match"), User1ID: "user_a", User2ID: "user_b"}
			ok, err := repo.CreateIfAbsent(ctx, match)
			if err != nil {
				t.Error(err)
				return
			}
			winners <- match.MatchID
			created <- ok
		}()
	}
	wg.Wait()
	close(winners)
	close(created)

	var wins int
	for ok := range created {
		if ok {
			wins++
		}
	}
	assert.Equal(t, 1, wins)

	// Every racer converged on the single winning row.
	unique := map[string]bool{}
	for id := range winners {
		unique[id] = true
	}
	assert.Len(t, unique, 1)

	var count int64
	require.NoError(t, gdb.Model(&db.Match{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestTouch(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewMatchRepository(gdb)

	match := &db.Match{MatchID: db.NewID("match"), User1ID: "user_a", User2ID: "user_b"}
	_, err := repo.CreateIfAbsent(ctx, match)
	require.NoError(t, err)
	assert.Nil(t, match.LastMessageAt)

	ts := time.Now().UTC().Truncate(time.Millisecond)
	require.NoError(t, repo.Touch(ctx, match.MatchID, ts))

	got, err := repo.Get(ctx, match.MatchID)
	require.NoError(t, err)
	require.NotNil(t, got.LastMessageAt)
	assert.Equal(t, ts, got.LastMessageAt.UTC())

	// Everything else is untouched.
	assert.Equal(t, match.User1ID, got.User1ID)
	assert.Equal(t, match.User2ID, got.User2ID)

	assert.ErrorIs(t, repo.Touch(ctx, "match_missing", ts), gorm.ErrRecordNotFound)
}

func TestListForUser_Pagination(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewMatchRepository(gdb)

	base := time.Now().UTC().Truncate(time.Millisecond).Add(-time.Hour)
	for i, other := range []string{"user_b", "user_c", "user_d"} {
		u1, u2 := db.CanonicalPair("user_a", other)
		match := db.Match{
			MatchID:   db.NewID("match"),
			User1ID:   u1,
			User2ID:   u2,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, gdb.Create(&match).Error)
	}
	// A match user_a is not part of.
	require.NoError(t, gdb.Create(&db.Match{
		MatchID: db.NewID("match"), User1ID: "user_x", User2ID: "user_y",
	}).Error)

	page1, next, err := repo.ListForUser(ctx, "user_a", nil, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	require.NotNil(t, next)
	// Newest first.
	assert.True(t, page1[0].CreatedAt.After(page1[1].CreatedAt))

	page2, next, err := repo.ListForUser(ctx, "user_a", next, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Nil(t, next)

	seen := map[string]bool{}
	for _, m := range append(page1, page2...) {
		seen[m.MatchID] = true
	}
	assert.Len(t, seen, 3)
}

func TestListForUser_BadToken(t *testing.T) {
	ctx := context.Background()
	gdb := setupTestDB(t)
	repo := repository.NewMatchRepository(gdb)

	bad := "!!not-a-token!!"
	_, _, err := repo.ListForUser(ctx, "user_a", &bad, 10)
	require.ErrorIs(t, err, pagination.ErrInvalidToken)

	// A client typo answers 400, not 500.
	assert.Equal(t, http.StatusBadRequest, svcErr.HTTPStatus(err))
}
