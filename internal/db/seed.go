package db

import (
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type demoPerson struct {
	name         string
	role         string
	niche        []string
	podcastName  string
	podcastDesc  string
	topics       []string
	audienceSize string
	bio          string
	expertise    []string
}

var demoPeople = []demoPerson{
	{name: "Sarah Chen", role: RoleHost, niche: []string{"Technology", "Business"},
		podcastName:  "Tech Founders Unfiltered",
		podcastDesc:  "Real conversations with startup founders about their journey, failures, and wins.",
		topics:       []string{"Startups", "Product Development", "Venture Capital"},
		audienceSize: "10K-50K"},
	{name: "Marcus Johnson", role: RoleHost, niche: []string{"Marketing", "Business"},
		podcastName:  "The Marketing Maven",
		podcastDesc:  "Breaking down the latest marketing strategies and brand storytelling with industry leaders.",
		topics:       []string{"Digital Marketing", "Content Strategy", "Brand Building"},
		audienceSize: "50K-100K"},
	{name: "Elena Rodriguez", role: RoleHost, niche: []string{"Health", "Personal Development"},
		podcastName:  "Wellness Warriors",
		podcastDesc:  "Exploring holistic health, fitness, and mental wellness with experts who are changing lives.",
		topics:       []string{"Nutrition", "Mental Health", "Mindfulness"},
		audienceSize: "10K-50K"},
	{name: "David Park", role: RoleHost, niche: []string{"Finance", "Business"},
		podcastName:  "Finance Friday",
		podcastDesc:  "Weekly deep-dives into investing, wealth building, and financial independence.",
		topics:       []string{"Investing", "Personal Finance", "Real Estate"},
		audienceSize: "100K+"},
	{name: "Priya Sharma", role: RoleHost, niche: []string{"Science", "Education"},
		podcastName:  "Curious Minds",
		podcastDesc:  "Conversations with researchers making science accessible to everyone.",
		topics:       []string{"Research", "Space", "Biology"},
		audienceSize: "10K-50K"},
	{name: "James Okafor", role: RoleGuest, niche: []string{"Technology", "Entrepreneurship"},
		bio:       "Serial founder, two exits, now angel investing in devtools.",
		expertise: []string{"Startups", "Fundraising", "Developer Tools"}},
	{name: "Lucia Mendez", role: RoleGuest, niche: []string{"Marketing"},
		bio:       "Growth lead turned consultant, writes a newsletter on brand strategy.",
		expertise: []string{"Growth", "Content Strategy", "Social Media"}},
	{name: "Tom Eriksen", role: RoleGuest, niche: []string{"Health", "Fitness"},
		bio:       "Sports physiologist and author on recovery science.",
		expertise: []string{"Fitness", "Recovery", "Nutrition"}},
	{name: "Amara Diallo", role: RoleGuest, niche: []string{"Finance"},
		bio:       "Former hedge fund analyst teaching personal finance.",
		expertise: []string{"Investing", "Personal Finance"}},
	{name: "Kenji Watanabe", role: RoleGuest, niche: []string{"Science"},
		bio:       "Astrophysicist and science communicator.",
		expertise: []string{"Space", "Physics", "Research"}},
}

// SeedDemoData resets the database and populates it with demo hosts, guests
// and swipe history.
//
// Behavior:
//  1. Clears users, profiles, swipes and matches.
//  2. Creates the demo roster with hashed passwords and completed profiles.
//  3. Generates swipe history with ~70% right swipes; every 3rd right swipe
//     gets a reciprocal right swipe plus the resulting match row so the feed,
//     match list and trainer all have material to work with.
func SeedDemoData(db *gorm.DB) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	for _, table := range []string{"matches", "swipes", "profiles", "users"} {
		if err := db.Exec("DELETE FROM " + table).Error; err != nil {
			return fmt.Errorf("failed to clear %s: %w", table, err)
		}
	}
	log.Println("Cleared existing data")

	hash, err := bcrypt.GenerateFromPassword([]byte("password"), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	var hosts, guests []User
	for _, p := range demoPeople {
		user := User{
			UserID:           NewID("user"),
			Email:            emailFor(p.name),
			Name:             p.name,
			PasswordHash:     string(hash),
			Role:             p.role,
			ProfileCompleted: true,
			SubscriptionTier: TierFree,
		}
		if err := db.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to seed user: %w", err)
		}

		profile := Profile{
			UserID:             user.UserID,
			Niche:              p.niche,
			Language:           "English",
			Country:            "United States",
			Availability:       "Flexible",
			PodcastName:        p.podcastName,
			PodcastDescription: p.podcastDesc,
			Topics:             p.topics,
			AudienceSize:       p.audienceSize,
			Bio:                p.bio,
			Expertise:          p.expertise,
			RemoteRecording:    true,
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("failed to seed profile: %w", err)
		}

		if p.role == RoleHost {
			hosts = append(hosts, user)
		} else {
			guests = append(guests, user)
		}
	}
	log.Printf("Seeded %d hosts and %d guests.", len(hosts), len(guests))

	counter := 0
	for _, host := range hosts {
		for _, guest := range guests {
			direction := DirectionLeft
			if r.Intn(100) < 70 {
				direction = DirectionRight
			}

			mutual := false
			if counter%3 == 0 {
				direction = DirectionRight
				mutual = true
			}

			if err := insertSwipe(db, host.UserID, guest.UserID, direction); err != nil {
				return err
			}
			if mutual {
				if err := insertSwipe(db, guest.UserID, host.UserID, DirectionRight); err != nil {
					return err
				}
				u1, u2 := CanonicalPair(host.UserID, guest.UserID)
				match := Match{
					MatchID: NewID("match"),
					User1ID: u1,
					User2ID: u2,
				}
				if err := db.Clauses(clause.OnConflict{
					Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
					DoNothing: true,
				}).Create(&match).Error; err != nil {
					return fmt.Errorf("failed to seed match: %w", err)
				}
			}
			counter++
		}
	}
	log.Printf("Seeded %d swipe pairings.", counter)

	return nil
}

func insertSwipe(db *gorm.DB, swiperID, swipedID, direction string) error {
	swipe := Swipe{
		SwipeID:   NewID("swipe"),
		SwiperID:  swiperID,
		SwipedID:  swipedID,
		Direction: direction,
	}
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "swiper_id"}, {Name: "swiped_id"}},
		DoNothing: true,
	}).Create(&swipe).Error; err != nil {
		return fmt.Errorf("failed to seed swipe: %w", err)
	}
	return nil
}

func emailFor(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, " ", ".")) + "@demo.com"
}
