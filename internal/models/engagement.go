package models

import "time"

// EngagementKind is the kind of relationship a user can toggle on a target.
type EngagementKind string

const (
	KindLike     EngagementKind = "like"
	KindBookmark EngagementKind = "bookmark"
)

// Valid reports whether k is a known kind.
func (k EngagementKind) Valid() bool {
	return k == KindLike || k == KindBookmark
}

// TargetType is the type of record an engagement points at.
type TargetType string

const (
	TargetContent TargetType = "content"
	TargetComment TargetType = "comment"
)

// Valid reports whether t is a known target type.
func (t TargetType) Valid() bool {
	return t == TargetContent || t == TargetComment
}

// ContentLike records that a user liked a content item.
type ContentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_content_likes_user_content" json:"user_id"`
	ContentID uint      `gorm:"not null;uniqueIndex:idx_content_likes_user_content;index" json:"content_id"`
	CreatedAt time.Time `json:"created_at"`
}

// CommentLike records that a user liked a comment.
type CommentLike struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment" json:"user_id"`
	CommentID uint      `gorm:"not null;uniqueIndex:idx_comment_likes_user_comment;index" json:"comment_id"`
	CreatedAt time.Time `json:"created_at"`
}

// Bookmark records that a user saved a content item.
type Bookmark struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_content" json:"user_id"`
	ContentID uint      `gorm:"not null;uniqueIndex:idx_bookmarks_user_content;index" json:"content_id"`
	CreatedAt time.Time `json:"created_at"`
}

// ReconcileReport counts the rows whose denormalized counter had drifted
// from the relationship rows and was rewritten.
type ReconcileReport struct {
	ContentLikes     int64 `json:"content_likes"`
	ContentComments  int64 `json:"content_comments"`
	ContentBookmarks int64 `json:"content_bookmarks"`
	CommentLikes     int64 `json:"comment_likes"`
}

// Total is the number of rows corrected across all counters.
func (r ReconcileReport) Total() int64 {
	return r.ContentLikes + r.ContentComments + r.ContentBookmarks + r.CommentLikes
}
