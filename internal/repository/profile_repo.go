package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/oggyb/podmatch/internal/db"
)

// ProfileRepository provides read access to role-specific display profiles.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get fetches a profile by owning user id. Returns gorm.ErrRecordNotFound
// when absent.
func (r *ProfileRepository) Get(ctx context.Context, userID string) (*db.Profile, error) {
	var profile db.Profile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// GetMany fetches profiles for a batch of user ids, keyed by user id.
// Missing profiles are simply absent from the map.
func (r *ProfileRepository) GetMany(ctx context.Context, userIDs []string) (map[string]db.Profile, error) {
	out := make(map[string]db.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	var profiles []db.Profile
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}
	for _, p := range profiles {
		out[p.UserID] = p
	}
	return out, nil
}
