package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/oggyb/podmatch/internal/db"
)

// Swipe ledger failure modes. Both are terminal for the request; neither
// leaves a side effect behind.
var (
	// ErrQuotaExceeded is returned when a free-tier user has used up the
	// daily swipe allowance.
	ErrQuotaExceeded = errors.New("daily swipe quota exceeded")

	// ErrDuplicateSwipe is returned when a swipe already exists for the
	// ordered (swiper, swiped) pair.
	ErrDuplicateSwipe = errors.New("duplicate swipe for this pair")
)

// SwipeRepository provides data access for the immutable swipe ledger.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Record persists a swipe and consumes one unit of the swiper's daily quota
// in a single transaction.
//
// The quota check-and-increment is one conditional UPDATE, so concurrent
// requests from the same user cannot race past the free-tier limit. The
// insert is conflict-guarded by the unique (swiper_id, swiped_id) index; a
// duplicate rolls the transaction back, which also undoes the quota
// increment, so retried requests never double-count.
//
// Error precedence follows the ledger contract: ErrQuotaExceeded before
// ErrDuplicateSwipe.
func (r *SwipeRepository) Record(ctx context.Context, swipe *db.Swipe, freeLimit int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(
			`UPDATE users
			    SET swipes_today = swipes_today + 1
			  WHERE user_id = ?
			    AND (subscription_tier <> ? OR swipes_today < ?)`,
			swipe.SwiperID, db.TierFree, freeLimit,
		)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrQuotaExceeded
		}

		ins := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "swiper_id"}, {Name: "swiped_id"}},
			DoNothing: true,
		}).Create(swipe)
		if ins.Error != nil {
			return ins.Error
		}
		if ins.RowsAffected == 0 {
			return ErrDuplicateSwipe
		}
		return nil
	})
}

// SwipedTargets returns the ids of everyone the given user has already
// swiped on, in either direction outcome.
func (r *SwipeRepository) SwipedTargets(ctx context.Context, swiperID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ?", swiperID).
		Pluck("swiped_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

// HasRightSwipe reports whether swiper right-swiped swiped. Used for the
// reciprocal lookup during match resolution.
func (r *SwipeRepository) HasRightSwipe(ctx context.Context, swiperID, swipedID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("swiper_id = ? AND swiped_id = ? AND direction = ?", swiperID, swipedID, db.DirectionRight).
		Count(&count).Error
	return count > 0, err
}

// All returns the full swipe history, oldest first. The training pipeline
// reads this once as its snapshot; it is never mutated afterwards.
func (r *SwipeRepository) All(ctx context.Context) ([]db.Swipe, error) {
	var swipes []db.Swipe
	err := r.db.WithContext(ctx).
		Order("created_at ASC, swipe_id ASC").
		Find(&swipes).Error
	if err != nil {
		return nil, err
	}
	return swipes, nil
}
