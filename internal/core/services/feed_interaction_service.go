package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/comitanigiacomo/regen-engine/internal/core/domain"
	"go.uber.org/zap"
)

const (
	DefaultCommentLimit = 20
	MaxCommentLimit     = 100
)

// FeedInteractionService handles likes and comments on feed items. Callers only
// see items visible to them; anything else is reported as not found.
type FeedInteractionService struct {
	items        domain.FeedRepository
	interactions domain.FeedInteractionRepository
	users        domain.UserRepository
	logger       *zap.Logger
}

func NewFeedInteractionService(items domain.FeedRepository, interactions domain.FeedInteractionRepository, users domain.UserRepository, logger *zap.Logger) *FeedInteractionService {
	return &FeedInteractionService{
		items:        items,
		interactions: interactions,
		users:        users,
		logger:       logger,
	}
}

func (s *FeedInteractionService) visibleItem(ctx context.Context, userID, itemID string) (*domain.FeedItem, error) {
	if itemID == "" {
		return nil, domain.Invalid("feed item id is required")
	}
	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if !item.VisibleTo(userID) {
		return nil, domain.ErrFeedItemNotFound
	}
	return item, nil
}

// ToggleLike likes the item, or unlikes it when the user already did.
func (s *FeedInteractionService) ToggleLike(ctx context.Context, userID, itemID string) (*domain.LikeResult, error) {
	if _, err := s.visibleItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	liked, err := s.interactions.ToggleLike(ctx, domain.NewFeedLike(itemID, userID, time.Now()))
	if err != nil {
		return nil, fmt.Errorf("feed interactions: %w", err)
	}

	item, err := s.items.GetByID(ctx, itemID)
	if err != nil {
		return nil, err
	}
	return &domain.LikeResult{Liked: liked, LikesCount: max(item.LikesCount, 0)}, nil
}

func (s *FeedInteractionService) AddComment(ctx context.Context, userID, itemID, text string) (*domain.FeedComment, error) {
	if _, err := s.visibleItem(ctx, userID, itemID); err != nil {
		return nil, err
	}

	author := ""
	user, err := s.users.GetByID(ctx, userID)
	switch {
	case err == nil:
		author = user.DisplayName
	case errors.Is(err, domain.ErrNotFound):
	default:
		s.logger.Warn("comment author lookup failed", zap.String("user_id", userID), zap.Error(err))
	}

	comment, err := domain.NewFeedComment(itemID, userID, text, author, time.Now())
	if err != nil {
		return nil, err
	}
	if err := s.interactions.AddComment(ctx, comment); err != nil {
		return nil, fmt.Errorf("feed interactions: %w", err)
	}
	return comment, nil
}

// ListComments pages through an item's comments newest first.
func (s *FeedInteractionService) ListComments(ctx context.Context, userID, itemID string, before time.Time, limit int) ([]*domain.FeedComment, error) {
	if _, err := s.visibleItem(ctx, userID, itemID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultCommentLimit
	}
	if limit > MaxCommentLimit {
		limit = MaxCommentLimit
	}
	return s.interactions.ListComments(ctx, itemID, before, limit)
}
