package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/oggyb/podmatch/internal/db"
)

// UserRepository provides read access to users plus the quota reset, the one
// piece of user state the engine owns.
type UserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new repository bound to the given DB connection.
func NewUserRepository(database *gorm.DB) *UserRepository {
	return &UserRepository{db: database}
}

// Get fetches a user by id. Returns gorm.ErrRecordNotFound when absent.
func (r *UserRepository) Get(ctx context.Context, userID string) (*db.User, error) {
	var user db.User
	if err := r.db.WithContext(ctx).First(&user, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListDiscoverable returns all users with the given role and a completed
// profile, ordered by id for deterministic downstream ranking.
func (r *UserRepository) ListDiscoverable(ctx context.Context, role string) ([]db.User, error) {
	var users []db.User
	err := r.db.WithContext(ctx).
		Where("role = ? AND profile_completed = ?", role, true).
		Order("user_id ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return users, nil
}

// ResetQuotaIfDue lazily zeroes the daily swipe counter once the reset
// timestamp has passed, pushing the next reset 24h out. A single conditional
// UPDATE; concurrent callers at the boundary reset at most once.
func (r *UserRepository) ResetQuotaIfDue(ctx context.Context, userID string, now time.Time) error {
	return r.db.WithContext(ctx).Exec(
		`UPDATE users
		    SET swipes_today = 0, swipe_reset_at = ?
		  WHERE user_id = ?
		    AND (swipe_reset_at IS NULL OR swipe_reset_at <= ?)`,
		now.Add(24*time.Hour), userID, now,
	).Error
}
