package notifications

import (
	"time"

	"inkwell/internal/models"
)

// Thread event types pushed to live subscribers of a content item.
const (
	EventCommentCreated = "comment.created"
	EventCommentUpdated = "comment.updated"
	EventCommentDeleted = "comment.deleted"
	EventCommentLiked   = "comment.liked"
	EventMessagesDrop   = "messages_dropped"
)

// ThreadEvent is the envelope published for every change to a content thread.
type ThreadEvent struct {
	Type      string          `json:"type"`
	ContentID uint            `json:"content_id"`
	Comment   *models.Comment `json:"comment,omitempty"`
	CommentID uint            `json:"comment_id,omitempty"`
	Liked     *bool           `json:"liked,omitempty"`
	At        time.Time       `json:"at"`
}
