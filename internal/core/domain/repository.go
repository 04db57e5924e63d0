package domain

import (
	"context"
	"time"
)

type TrackerRepository interface {
	// Create persists a new tracker definition.
	Create(ctx context.Context, tracker *Tracker) error

	// GetByID retrieves a tracker by its unique identifier.
	GetByID(ctx context.Context, id string) (*Tracker, error)

	// ListByUserID retrieves the trackers owned by a user, optionally only active ones.
	ListByUserID(ctx context.Context, userID string, activeOnly bool) ([]*Tracker, error)

	// Update overwrites a tracker. Implementations must reject stale versions with ErrTrackerConflict.
	Update(ctx context.Context, tracker *Tracker) error

	// Delete removes a tracker.
	Delete(ctx context.Context, id string) error

	// IncrementEntryCount atomically adjusts the denormalised entry counter.
	IncrementEntryCount(ctx context.Context, id string, delta int) error

	// ListExpired returns active, time-boxed trackers whose end date is before now.
	ListExpired(ctx context.Context, now time.Time, limit int) ([]*Tracker, error)

	// CompleteMany marks trackers as completed in chunked atomic batches.
	CompleteMany(ctx context.Context, trackers []*Tracker) error
}

type EntryRepository interface {
	Create(ctx context.Context, entry *TrackerEntry) error
	CreateMany(ctx context.Context, entries []*TrackerEntry) error
	GetByID(ctx context.Context, id string) (*TrackerEntry, error)
	Delete(ctx context.Context, id string) error

	// ListByTracker returns a tracker's entries between from and to (inclusive, YYYY-MM-DD).
	// Empty bounds are open.
	ListByTracker(ctx context.Context, trackerID, from, to string) ([]*TrackerEntry, error)

	// ListByUser returns all of a user's entries between from and to (inclusive).
	ListByUser(ctx context.Context, userID, from, to string) ([]*TrackerEntry, error)
}

type JournalRepository interface {
	Create(ctx context.Context, entry *JournalEntry) error
	CreateMany(ctx context.Context, entries []*JournalEntry) error
	ListByUser(ctx context.Context, userID, from, to string) ([]*JournalEntry, error)
}

type StreakRepository interface {
	// CreateOrGet stores the streak when none exists yet for its (user, tracker) pair,
	// otherwise returns the stored one. The boolean reports whether it was created.
	CreateOrGet(ctx context.Context, streak *StreakData) (*StreakData, bool, error)

	Get(ctx context.Context, userID, trackerID string) (*StreakData, error)

	// Update overwrites the streak if its version still matches, else ErrStreakConflict.
	Update(ctx context.Context, streak *StreakData) error

	ListByUser(ctx context.Context, userID string) ([]*StreakData, error)
}

type AchievementRepository interface {
	GetByID(ctx context.Context, id string) (*Achievement, error)

	// ListActive returns active catalog achievements of the given types (all types when empty).
	ListActive(ctx context.Context, types []AchievementType) ([]*Achievement, error)

	// Seed inserts catalog achievements that do not exist yet and reports how many were added.
	Seed(ctx context.Context, catalog []*Achievement) (int, error)
}

type UserAchievementRepository interface {
	CreateOrGet(ctx context.Context, ua *UserAchievement) (*UserAchievement, error)
	Get(ctx context.Context, userID, achievementID string) (*UserAchievement, error)

	// Update overwrites the record if its version still matches, else ErrAchievementConflict.
	Update(ctx context.Context, ua *UserAchievement) error

	ListByUser(ctx context.Context, userID string) ([]*UserAchievement, error)
}

type DailyStatsRepository interface {
	// Increment atomically adds deltas to the day's counters, creating the document if needed.
	Increment(ctx context.Context, userID, date string, deltas map[string]float64) error

	// Replace overwrites the day's document with a freshly computed one.
	Replace(ctx context.Context, stats *UserDailyStats) error

	Get(ctx context.Context, userID, date string) (*UserDailyStats, error)
	ListRange(ctx context.Context, userID, from, to string) ([]*UserDailyStats, error)
}

type UserRepository interface {
	Create(ctx context.Context, user *User) error
	GetByID(ctx context.Context, id string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Update overwrites the profile if its version still matches, else ErrUserConflict.
	Update(ctx context.Context, user *User) error

	// Increment atomically adds deltas to profile counters and merges the set fields.
	Increment(ctx context.Context, userID string, deltas map[string]float64, set map[string]any) error

	// ListActiveSince returns users whose last activity is on or after day.
	ListActiveSince(ctx context.Context, day string) ([]*User, error)

	// ListByStatus returns users with the given subscription status.
	ListByStatus(ctx context.Context, status string) ([]*User, error)
}

type ActivityRepository interface {
	Create(ctx context.Context, activity *Activity) error
	ListByUser(ctx context.Context, userID string, before time.Time, limit int) ([]*Activity, error)
}

type FeedRepository interface {
	Create(ctx context.Context, item *FeedItem) error

	// CreateMany writes the items in a single all-or-nothing batch.
	CreateMany(ctx context.Context, items []*FeedItem) error

	// Exists reports whether a post from sourceID was already created for the user on dateKey.
	Exists(ctx context.Context, userID, sourceID, dateKey string) (bool, error)

	ListByUser(ctx context.Context, userID string, before time.Time, limit int) ([]*FeedItem, error)

	GetByID(ctx context.Context, id string) (*FeedItem, error)
}

type FeedInteractionRepository interface {
	// ToggleLike stores the like, or removes it when it already exists, and moves the
	// item's like counter by the same step. It reports whether the item is now liked.
	ToggleLike(ctx context.Context, like *FeedLike) (bool, error)

	// AddComment stores the comment and increments the item's comment counter atomically.
	AddComment(ctx context.Context, comment *FeedComment) error

	// ListComments returns the item's comments newest first, strictly before the cursor when set.
	ListComments(ctx context.Context, feedItemID string, before time.Time, limit int) ([]*FeedComment, error)
}

type SuggestionRepository interface {
	Get(ctx context.Context, userID, dateKey string) (*TrackerSuggestion, error)
	Save(ctx context.Context, suggestion *TrackerSuggestion) error

	// DeleteOlderThan removes up to limit caches with a date key before dateKey.
	DeleteOlderThan(ctx context.Context, dateKey string, limit int) (int, error)
}

type DailySuggestionRepository interface {
	Get(ctx context.Context, userID, dateKey string) (*DailySuggestions, error)
	Save(ctx context.Context, s *DailySuggestions) error

	// Touch records a cache hit.
	Touch(ctx context.Context, userID, dateKey string, at time.Time) error

	// DeleteOlderThan removes up to limit caches dated before dateKey, for one user
	// when userID is set.
	DeleteOlderThan(ctx context.Context, userID, dateKey string, limit int) (int, error)
}
