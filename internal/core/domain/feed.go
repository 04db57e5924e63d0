package domain

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

const (
	FeedTypeSystem       = "system"
	FeedTypeMotivational = "motivational"
	FeedTypeAction       = "action"
	FeedTypeInsight      = "insight"
	FeedTypeSummary      = "summary"
	FeedTypeMilestone    = "milestone"

	VisibilityPrivate = "private"
	VisibilityPublic  = "public"

	FieldLikesCount    = "likes_count"
	FieldCommentsCount = "comments_count"

	MaxCommentLen = 500

	ActivityAchievement = "achievement"
	ActivityMilestone   = "milestone"
)

type FeedSource struct {
	Kind string `json:"kind"`
	ID   string `json:"id"`
}

// FeedItem is a post in a user's feed. Timestamp mirrors CreatedAt in unix
// milliseconds and is the field used for ordering and paging.
type FeedItem struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	Type       string     `json:"type"`
	Title      string     `json:"title"`
	Subtitle   string     `json:"subtitle,omitempty"`
	Body       string     `json:"body"`
	Author     string     `json:"author,omitempty"`
	Tags       []string   `json:"tags,omitempty"`
	DateKey    string     `json:"date_key"`
	Source     FeedSource `json:"source"`
	Visibility string     `json:"visibility"`
	ActionLink string     `json:"action_link,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	Timestamp  int64      `json:"ts"`

	LikesCount    int64 `json:"likes_count"`
	CommentsCount int64 `json:"comments_count"`
}

// VisibleTo reports whether userID may read and react to the item.
func (f *FeedItem) VisibleTo(userID string) bool {
	return f.UserID == userID || f.Visibility == VisibilityPublic
}

func NewFeedItem(userID, itemType, title, body string, source FeedSource, now time.Time) *FeedItem {
	now = now.UTC()
	return &FeedItem{
		ID:         uuid.NewString(),
		UserID:     userID,
		Type:       itemType,
		Title:      title,
		Body:       body,
		DateKey:    DayKey(now),
		Source:     source,
		Visibility: VisibilityPrivate,
		CreatedAt:  now,
		Timestamp:  now.UnixMilli(),
	}
}

// FeedLike marks that a user liked a feed item. There is at most one per pair.
type FeedLike struct {
	ID         string    `json:"id"`
	FeedItemID string    `json:"feed_item_id"`
	UserID     string    `json:"user_id"`
	CreatedAt  time.Time `json:"created_at"`
}

func FeedLikeID(feedItemID, userID string) string {
	return feedItemID + "_" + userID
}

func NewFeedLike(feedItemID, userID string, now time.Time) *FeedLike {
	return &FeedLike{
		ID:         FeedLikeID(feedItemID, userID),
		FeedItemID: feedItemID,
		UserID:     userID,
		CreatedAt:  now.UTC(),
	}
}

type LikeResult struct {
	Liked      bool  `json:"has_liked"`
	LikesCount int64 `json:"likes_count"`
}

type CommentAuthor struct {
	Name string `json:"name"`
}

type FeedComment struct {
	ID         string        `json:"id"`
	FeedItemID string        `json:"feed_item_id"`
	UserID     string        `json:"user_id"`
	Text       string        `json:"text"`
	Author     CommentAuthor `json:"author"`
	CreatedAt  time.Time     `json:"created_at"`
	Timestamp  int64         `json:"ts"`
}

func NewFeedComment(feedItemID, userID, text, authorName string, now time.Time) (*FeedComment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Invalid("comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLen {
		return nil, Invalid("comment is too long (max %d chars)", MaxCommentLen)
	}
	if authorName == "" {
		authorName = "Anonymous"
	}
	now = now.UTC()
	return &FeedComment{
		ID:         uuid.NewString(),
		FeedItemID: feedItemID,
		UserID:     userID,
		Text:       text,
		Author:     CommentAuthor{Name: authorName},
		CreatedAt:  now,
		Timestamp:  now.UnixMilli(),
	}, nil
}

// Activity is a user event shown in the feed next to posts.
type Activity struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Icon        string    `json:"icon,omitempty"`
	RefID       string    `json:"ref_id,omitempty"`
	Points      int64     `json:"points,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	Timestamp   int64     `json:"ts"`
}

func NewActivity(userID, activityType, title, description string, now time.Time) *Activity {
	now = now.UTC()
	return &Activity{
		ID:          uuid.NewString(),
		UserID:      userID,
		Type:        activityType,
		Title:       title,
		Description: description,
		CreatedAt:   now,
		Timestamp:   now.UnixMilli(),
	}
}

// FeedEntry is one element of a composed feed: either a post or an activity.
type FeedEntry struct {
	Kind      string    `json:"kind"`
	Post      *FeedItem `json:"post,omitempty"`
	Activity  *Activity `json:"activity,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (e FeedEntry) ID() string {
	if e.Post != nil {
		return e.Post.ID
	}
	if e.Activity != nil {
		return e.Activity.ID
	}
	return ""
}
