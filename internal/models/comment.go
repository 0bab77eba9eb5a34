package models

import "time"

// CommentStatus is the moderation state of a comment.
type CommentStatus string

const (
	CommentStatusApproved CommentStatus = "approved"
	CommentStatusPending  CommentStatus = "pending"
	CommentStatusRejected CommentStatus = "rejected"
)

// Valid reports whether s is a known status.
func (s CommentStatus) Valid() bool {
	switch s {
	case CommentStatusApproved, CommentStatusPending, CommentStatusRejected:
		return true
	}
	return false
}

// ModerationMode decides the status a freshly posted comment starts in.
type ModerationMode string

const (
	// ModerationAuto approves every new comment immediately.
	ModerationAuto ModerationMode = "auto"
	// ModerationManual holds new comments as pending until an admin decides.
	ModerationManual ModerationMode = "manual"
)

// InitialStatus returns the status new comments receive under this mode.
func (m ModerationMode) InitialStatus() CommentStatus {
	if m == ModerationManual {
		return CommentStatusPending
	}
	return CommentStatusApproved
}

// CommentDeletePolicy decides what happens to the replies of a deleted comment.
type CommentDeletePolicy string

const (
	// DeleteOrphan removes only the target row; its replies keep a dangling
	// parent id and drop out of the thread.
	DeleteOrphan CommentDeletePolicy = "orphan"
	// DeleteReparent moves direct replies up to the deleted comment's parent.
	DeleteReparent CommentDeletePolicy = "reparent"
	// DeleteCascade removes the whole subtree.
	DeleteCascade CommentDeletePolicy = "cascade"
)

// Valid reports whether p is a known policy.
func (p CommentDeletePolicy) Valid() bool {
	switch p {
	case DeleteOrphan, DeleteReparent, DeleteCascade:
		return true
	}
	return false
}

// Comment is one flat comment row. ParentID nil means top-level.
type Comment struct {
	ID           uint          `gorm:"primaryKey" json:"id"`
	ContentID    uint          `gorm:"not null;index" json:"content_id"`
	UserID       uint          `gorm:"not null;index" json:"user_id"`
	AuthorName   string        `gorm:"size:64" json:"author_name"`
	AuthorAvatar string        `json:"author_avatar"`
	ParentID     *uint         `gorm:"index" json:"parent_id,omitempty"`
	Body         string        `gorm:"type:text;not null" json:"body"`
	Likes        int           `gorm:"not null;default:0" json:"likes"`
	Status       CommentStatus `gorm:"size:16;not null;default:approved;index" json:"status"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// ThreadNode is one comment in a rendered reply tree.
// IsLiked is only set when the thread was fetched on behalf of a viewer.
type ThreadNode struct {
	ID           uint          `json:"id"`
	UserID       uint          `json:"user_id"`
	Body         string        `json:"body"`
	AuthorName   string        `json:"author_name"`
	AuthorAvatar string        `json:"author_avatar"`
	CreatedAt    time.Time     `json:"created_at"`
	Likes        int           `json:"likes"`
	IsLiked      *bool         `json:"is_liked,omitempty"`
	Replies      []*ThreadNode `json:"replies"`
}
