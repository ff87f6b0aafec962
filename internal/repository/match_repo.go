package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/podmatch/internal/db"
	"github.com/oggyb/podmatch/internal/utils/pagination"
)

// MatchRepository provides data access for mutually confirmed pairs.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateIfAbsent inserts a match for the canonical pair unless one already
// exists. The unique (user1_id, user2_id) index turns the existence check and
// the insert into one conditional statement, so both participants' swipe
// paths can race here and exactly one row results.
//
// Returns created=false with the existing row loaded into match when the
// pair was already matched.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, match *db.Match) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
		DoNothing: true,
	}).Create(match)
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected > 0 {
		return true, nil
	}

	// Lost the race (or the pair matched earlier): load the winner.
	err := r.db.WithContext(ctx).
		First(match, "user1_id = ? AND user2_id = ?", match.User1ID, match.User2ID).Error
	if err != nil {
		return false, err
	}
	return false, nil
}

// Get fetches a match by id. Returns gorm.ErrRecordNotFound when absent.
func (r *MatchRepository) Get(ctx context.Context, matchID string) (*db.Match, error) {
	var match db.Match
	if err := r.db.WithContext(ctx).First(&match, "match_id = ?", matchID).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// ListForUser returns matches the user participates in, newest first, with
// cursor-based pagination.
func (r *MatchRepository) ListForUser(
	ctx context.Context,
	userID string,
	paginationToken *string,
	limit int,
) ([]db.Match, *string, error) {
	var matches []db.Match

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Where("user1_id = ? OR user2_id = ?", userID, userID).
		Order("created_at DESC, match_id DESC").
		Limit(limit + 1)

	if cursor.MatchID != "" && cursor.CreatedUnix > 0 {
		ts := time.UnixMilli(cursor.CreatedUnix).UTC()
		query = query.Where(
			"(created_at < ? OR (created_at = ? AND match_id < ?))",
			ts, ts, cursor.MatchID,
		)
	}

	if err := query.Find(&matches).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(matches) > limit {
		last := matches[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			MatchID:     last.MatchID,
			CreatedUnix: last.CreatedAt.UnixMilli(),
		})
		nextToken = &token
		matches = matches[:limit]
	}

	return matches, nextToken, nil
}

// Touch updates last_message_at and nothing else. This is the narrow
// write-back contract used by the chat collaborator.
func (r *MatchRepository) Touch(ctx context.Context, matchID string, ts time.Time) error {
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("match_id = ?", matchID).
		Update("last_message_at", ts)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
