package domain

import (
	"errors"
	"fmt"
)

var (
	ErrValidation      = errors.New("validation failed")
	ErrNotFound        = errors.New("not found")
	ErrConflict        = errors.New("version conflict")
	ErrOutOfOrderEntry = errors.New("entry is older than the last recorded activity")
	ErrExternalService = errors.New("external service unavailable")
	ErrForbidden       = errors.New("forbidden")
)

var (
	ErrTrackerNotFound     = fmt.Errorf("tracker %w", ErrNotFound)
	ErrEntryNotFound       = fmt.Errorf("entry %w", ErrNotFound)
	ErrJournalNotFound     = fmt.Errorf("journal entry %w", ErrNotFound)
	ErrUserNotFound        = fmt.Errorf("user %w", ErrNotFound)
	ErrAchievementNotFound = fmt.Errorf("achievement %w", ErrNotFound)
	ErrStreakNotFound      = fmt.Errorf("streak %w", ErrNotFound)
	ErrStatsNotFound       = fmt.Errorf("daily stats %w", ErrNotFound)
	ErrFeedItemNotFound    = fmt.Errorf("feed item %w", ErrNotFound)

	ErrTrackerConflict     = fmt.Errorf("tracker %w", ErrConflict)
	ErrStreakConflict      = fmt.Errorf("streak %w", ErrConflict)
	ErrAchievementConflict = fmt.Errorf("user achievement %w", ErrConflict)
	ErrUserConflict        = fmt.Errorf("user %w", ErrConflict)
)

// Invalid wraps ErrValidation with a human readable reason.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}
