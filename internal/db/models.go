package db

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role values. A user with an unset role has not finished onboarding and is
// neither discoverable nor able to request a feed.
const (
	RoleHost  = "host"
	RoleGuest = "guest"
)

// Swipe directions.
const (
	DirectionLeft  = "left"
	DirectionRight = "right"
)

// Subscription tiers.
const (
	TierFree = "free"
	TierPro  = "pro"
)

// NewID generates an entity id of the form "<prefix>_<12 hex chars>".
func NewID(prefix string) string {
	return prefix + "_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}

// ComplementRole returns the role a user's discovery feed is drawn from.
// Hosts see guests and vice versa; an unset role has no complement.
func ComplementRole(role string) string {
	switch role {
	case RoleHost:
		return RoleGuest
	case RoleGuest:
		return RoleHost
	}
	return ""
}

// CanonicalPair orders two user ids lexicographically so an unordered pair
// always produces the same (user1, user2) key.
func CanonicalPair(a, b string) (string, string) {
	if a < b {
		return a, b
	}
	return b, a
}

// User is reference data owned by the identity collaborator. The engine only
// mutates the swipe quota fields (SwipesToday, SwipeResetAt).
type User struct {
	UserID           string `gorm:"primaryKey;size:64"`
	Email            string `gorm:"uniqueIndex;size:128;not null"`
	Name             string `gorm:"size:128;not null"`
	PasswordHash     string `gorm:"size:255;not null"`
	Role             string `gorm:"size:16;index:idx_role_completed,priority:1"`
	ProfileCompleted bool   `gorm:"not null;default:false;index:idx_role_completed,priority:2"`
	SubscriptionTier string `gorm:"size:16;not null;default:free"`
	SwipesToday      int    `gorm:"not null;default:0"`
	SwipeResetAt     *time.Time
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// Profile holds role-specific display attributes. The engine treats its
// content as opaque beyond the owning user's role; list fields are stored as
// JSON columns.
type Profile struct {
	UserID       string   `gorm:"primaryKey;size:64"`
	Niche        []string `gorm:"serializer:json"`
	Language     string   `gorm:"size:64"`
	Country      string   `gorm:"size:64"`
	Availability string   `gorm:"size:128"`

	// Host fields
	PodcastName        string   `gorm:"size:128"`
	PodcastDescription string   `gorm:"size:1024"`
	Topics             []string `gorm:"serializer:json"`
	AudienceSize       string   `gorm:"size:32"`

	// Guest fields
	Bio             string   `gorm:"size:1024"`
	Expertise       []string `gorm:"serializer:json"`
	RemoteRecording bool

	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// Swipe is a directional interest event. Immutable once written.
//
// Unique index idx_swiper_swiped enforces at most one swipe per ordered
// (swiper_id, swiped_id) pair; a conflicting insert is the duplicate guard.
type Swipe struct {
	SwipeID   string    `gorm:"primaryKey;size:64"`
	SwiperID  string    `gorm:"size:64;not null;uniqueIndex:idx_swiper_swiped,priority:1"`
	SwipedID  string    `gorm:"size:64;not null;uniqueIndex:idx_swiper_swiped,priority:2;index"`
	Direction string    `gorm:"size:8;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Match is a mutually confirmed pair. User1ID < User2ID lexicographically;
// the unique index on the pair makes creation a single conditional insert.
// Immutable except LastMessageAt, written via the touch contract.
type Match struct {
	MatchID       string     `gorm:"primaryKey;size:64"`
	User1ID       string     `gorm:"size:64;not null;uniqueIndex:idx_match_pair,priority:1"`
	User2ID       string     `gorm:"size:64;not null;uniqueIndex:idx_match_pair,priority:2;index"`
	CreatedAt     time.Time  `gorm:"autoCreateTime"`
	LastMessageAt *time.Time
}
