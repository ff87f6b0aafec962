// Package engine implements the matching and recommendation core: the swipe
// ledger, match resolution, discovery feed and the training trigger.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/oggyb/podmatch/internal/app"
	"github.com/oggyb/podmatch/internal/candidate"
	"github.com/oggyb/podmatch/internal/db"
	svcErr "github.com/oggyb/podmatch/internal/errors"
	"github.com/oggyb/podmatch/internal/feed"
	"github.com/oggyb/podmatch/internal/recommend"
	"github.com/oggyb/podmatch/internal/repository"
)

// Service contains the business logic on top of the repository, cache and
// model layers.
type Service struct {
	appCtx *app.AppContext

	users    *repository.UserRepository
	profiles *repository.ProfileRepository
	swipes   *repository.SwipeRepository
	matches  *repository.MatchRepository

	index    *candidate.Index
	feed     *feed.Assembler
	models   *recommend.Registry
	store    *recommend.Store
	trainCfg recommend.TrainConfig

	freeDailySwipes int
}

// NewService wires the engine from AppContext plus the model store.
func NewService(appCtx *app.AppContext, store *recommend.Store, freeDailySwipes int) *Service {
	users := repository.NewUserRepository(appCtx.DB)
	swipes := repository.NewSwipeRepository(appCtx.DB)
	index := candidate.NewIndex(users, swipes, appCtx.RedisCache, appCtx.Logger)

	return &Service{
		appCtx:          appCtx,
		users:           users,
		profiles:        repository.NewProfileRepository(appCtx.DB),
		swipes:          swipes,
		matches:         repository.NewMatchRepository(appCtx.DB),
		index:           index,
		feed:            feed.NewAssembler(index, appCtx.Models),
		models:          appCtx.Models,
		store:           store,
		trainCfg:        recommend.DefaultTrainConfig(),
		freeDailySwipes: freeDailySwipes,
	}
}

// SwipeResult reports a recorded swipe and whether it completed a match.
type SwipeResult struct {
	SwipeID string
	Matched bool
	MatchID string
}

// Swipe records a directional interest event and, for right swipes, resolves
// mutual interest into a match.
//
// Failure modes: ErrQuotaExceeded when a free user is out of daily swipes,
// ErrDuplicateSwipe when this ordered pair was already swiped (no quota
// consumed), gorm.ErrRecordNotFound for unknown users.
func (s *Service) Swipe(ctx context.Context, swiperID, targetID, direction string) (*SwipeResult, error) {
	if direction != db.DirectionLeft && direction != db.DirectionRight {
		return nil, svcErr.InvalidArgument("direction must be left or right")
	}
	if swiperID == targetID {
		return nil, svcErr.InvalidArgument("cannot swipe on yourself")
	}

	if _, err := s.users.Get(ctx, swiperID); err != nil {
		return nil, err
	}
	if _, err := s.users.Get(ctx, targetID); err != nil {
		return nil, err
	}

	if err := s.users.ResetQuotaIfDue(ctx, swiperID, time.Now().UTC()); err != nil {
		return nil, err
	}

	swipe := &db.Swipe{
		SwipeID:   db.NewID("swipe"),
		SwiperID:  swiperID,
		SwipedID:  targetID,
		Direction: direction,
	}
	if err := s.swipes.Record(ctx, swipe, s.freeDailySwipes); err != nil {
		if errors.Is(err, repository.ErrDuplicateSwipe) {
			// The pair is already in the ledger; make sure the cached
			// swiped set agrees so the feed cannot resurface the target.
			s.index.NoteSwipe(ctx, swiperID, targetID)
		}
		return nil, err
	}
	s.index.NoteSwipe(ctx, swiperID, targetID)

	result := &SwipeResult{SwipeID: swipe.SwipeID}
	if direction == db.DirectionRight {
		match, err := s.resolve(ctx, swipe)
		if err != nil {
			return nil, err
		}
		if match != nil {
			result.Matched = true
			result.MatchID = match.MatchID
		}
	}
	return result, nil
}

// resolve checks for the reciprocal right swipe and creates the match for
// the canonical pair at most once. Both participants' swipe paths can reach
// this concurrently; the conditional insert in the repository makes the
// outcome exactly one match either way.
func (s *Service) resolve(ctx context.Context, swipe *db.Swipe) (*db.Match, error) {
	reciprocal, err := s.swipes.HasRightSwipe(ctx, swipe.SwipedID, swipe.SwiperID)
	if err != nil {
		return nil, err
	}
	if !reciprocal {
		return nil, nil
	}

	u1, u2 := db.CanonicalPair(swipe.SwiperID, swipe.SwipedID)
	match := &db.Match{
		MatchID: db.NewID("match"),
		User1ID: u1,
		User2ID: u2,
	}
	created, err := s.matches.CreateIfAbsent(ctx, match)
	if err != nil {
		return nil, err
	}
	if created {
		s.appCtx.Logger.Info("match created", "match_id", match.MatchID, "user1", u1, "user2", u2)
	}
	return match, nil
}

// FeedEntry is one discovery page row: the candidate, their display profile
// and the model score.
type FeedEntry struct {
	User    db.User
	Profile *db.Profile
	Score   float64
}

// Discover returns the ranked discovery page for a user. Mirrors the ledger's
// quota semantics: an exhausted free user gets ErrQuotaExceeded instead of a
// page they cannot act on.
func (s *Service) Discover(ctx context.Context, userID string, pageSize int) ([]FeedEntry, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.ProfileCompleted {
		return nil, svcErr.InvalidArgument("complete your profile first")
	}

	if err := s.users.ResetQuotaIfDue(ctx, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	user, err = s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.SubscriptionTier == db.TierFree && user.SwipesToday >= s.freeDailySwipes {
		return nil, repository.ErrQuotaExceeded
	}

	ranked, err := s.feed.Feed(ctx, user, pageSize)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(ranked))
	for i, r := range ranked {
		ids[i] = r.User.UserID
	}
	profiles, err := s.profiles.GetMany(ctx, ids)
	if err != nil {
		return nil, err
	}

	entries := make([]FeedEntry, 0, len(ranked))
	for _, r := range ranked {
		entry := FeedEntry{User: r.User, Score: r.Score}
		if p, ok := profiles[r.User.UserID]; ok {
			prof := p
			entry.Profile = &prof
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// MatchEntry is one match listing row with the other participant resolved.
type MatchEntry struct {
	Match        db.Match
	OtherUser    db.User
	OtherProfile *db.Profile
}

// Matches lists matches the user participates in, newest first, with cursor
// pagination.
func (s *Service) Matches(ctx context.Context, userID string, paginationToken *string, limit int) ([]MatchEntry, *string, error) {
	if _, err := s.users.Get(ctx, userID); err != nil {
		return nil, nil, err
	}

	matches, nextToken, err := s.matches.ListForUser(ctx, userID, paginationToken, limit)
	if err != nil {
		return nil, nil, err
	}

	entries := make([]MatchEntry, 0, len(matches))
	for _, m := range matches {
		otherID := m.User2ID
		if otherID == userID {
			otherID = m.User1ID
		}
		other, err := s.users.Get(ctx, otherID)
		if err != nil {
			// A match referencing a removed user is still a match; skip the
			// row rather than failing the whole listing.
			s.appCtx.Logger.Warn("match references unknown user", "match_id", m.MatchID, "user", otherID)
			continue
		}

		entry := MatchEntry{Match: m, OtherUser: *other}
		if profile, err := s.profiles.Get(ctx, otherID); err == nil {
			entry.OtherProfile = profile
		}
		entries = append(entries, entry)
	}
	return entries, nextToken, nil
}

// TouchMatch updates last_message_at for a match. Narrow contract for the
// chat collaborator; nothing else on a match is writable.
func (s *Service) TouchMatch(ctx context.Context, matchID string, ts time.Time) error {
	return s.matches.Touch(ctx, matchID, ts)
}

// TrainReport summarizes a completed training run.
type TrainReport struct {
	SwipesUsed int
	Version    string
}

// TrainModel retrains the recommender from the full swipe history and
// atomically publishes the new snapshot. Operator-triggered; never on the
// request path. On failure the current model keeps serving untouched.
func (s *Service) TrainModel(ctx context.Context) (*TrainReport, error) {
	swipes, err := s.swipes.All(ctx)
	if err != nil {
		return nil, err
	}

	model, err := recommend.Train(swipes, s.trainCfg, s.appCtx.Logger)
	if err != nil {
		if errors.Is(err, recommend.ErrInsufficientTrainingData) {
			s.appCtx.Logger.Warn("training aborted", "swipes", len(swipes), "err", err)
		}
		return nil, err
	}

	if s.store != nil {
		if err := s.store.Save(model); err != nil {
			// Persisting is best effort for serving: the in-memory publish
			// below still happens, but a restart would lose the snapshot.
			s.appCtx.Logger.Error("failed to persist model", "version", model.Version, "err", err)
		}
	}
	s.models.Publish(model)

	return &TrainReport{SwipesUsed: len(swipes), Version: model.Version}, nil
}

// QuotaStatus is the read-only subscription/quota view.
type QuotaStatus struct {
	Tier         string
	SwipesToday  int
	SwipeResetAt *time.Time
}

// SubscriptionStatus reports the user's tier and quota counters after a lazy
// reset check.
func (s *Service) SubscriptionStatus(ctx context.Context, userID string) (*QuotaStatus, error) {
	if err := s.users.ResetQuotaIfDue(ctx, userID, time.Now().UTC()); err != nil {
		return nil, err
	}
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &QuotaStatus{
		Tier:         user.SubscriptionTier,
		SwipesToday:  user.SwipesToday,
		SwipeResetAt: user.SwipeResetAt,
	}, nil
}
