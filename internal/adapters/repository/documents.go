package repository

import (
	"errors"
	"fmt"

	"github.com/comitanigiacomo/regen-engine/internal/adapters/docstore"
)

const (
	CollTrackers         = "trackers"
	CollTrackerEntries   = "tracker-entries"
	CollJournalEntries   = "journal-entries"
	CollTrackerStreaks   = "tracker-streaks"
	CollAchievements     = "achievements"
	CollUserAchievements = "user-achievements"
	CollUserDailyStats   = "user-daily-stats"
	CollActivities       = "activities"
	CollFeedItems        = "feed-items"
	CollUsers            = "users"
	CollUserEmails       = "user-emails"
	CollSuggestions      = "tracker-suggestions"
	CollDailySuggestions = "daily-suggestions"
	CollFeedLikes        = "feed-likes"
	CollFeedComments     = "feed-comments"
)

// translate maps store sentinel errors onto the domain errors of one repository.
func translate(err, notFound, conflict error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, docstore.ErrDocumentNotFound) && notFound != nil:
		return notFound
	case errors.Is(err, docstore.ErrVersionConflict) && conflict != nil:
		return conflict
	}
	return err
}

func decodeAll[T any](docs []*docstore.Document, decode func(*docstore.Document) (*T, error)) ([]*T, error) {
	out := make([]*T, 0, len(docs))
	for _, doc := range docs {
		v, err := decode(doc)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func decodeInto[T any](doc *docstore.Document) (*T, error) {
	var v T
	if err := doc.Decode(&v); err != nil {
		return nil, fmt.Errorf("repository: %w", err)
	}
	return &v, nil
}

// dateRange builds the filters for an inclusive YYYY-MM-DD range. Empty bounds are open.
func dateRange(field, from, to string) []docstore.Filter {
	var filters []docstore.Filter
	if from != "" {
		filters = append(filters, docstore.Where(field, docstore.Gte, from))
	}
	if to != "" {
		filters = append(filters, docstore.Where(field, docstore.Lte, to))
	}
	return filters
}
