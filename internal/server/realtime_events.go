package server

import (
	"context"
	"time"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
)

// publishThreadEvent pushes a thread change to live subscribers. Delivery is
// best effort and detached from the request so a slow Redis never delays the
// response.
func (s *Server) publishThreadEvent(viewer uint, event notifications.ThreadEvent) {
	if s.hub == nil || !s.featureFlags.EnabledDefault(featureflags.LiveThreads, viewer, true) {
		return
	}
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.hub.Dispatch(ctx, event)
}

// publishCommentEvent only announces approved comments; pending ones stay
// invisible until moderated.
func (s *Server) publishCommentEvent(viewer uint, eventType string, comment *models.Comment) {
	if comment == nil || comment.Status != models.CommentStatusApproved {
		return
	}
	s.publishThreadEvent(viewer, notifications.ThreadEvent{
		Type:      eventType,
		ContentID: comment.ContentID,
		Comment:   comment,
		CommentID: comment.ID,
	})
}

func (s *Server) publishCommentLike(ctx context.Context, viewer, commentID uint, liked bool) {
	comment, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil || comment.Status != models.CommentStatusApproved {
		return
	}
	s.publishThreadEvent(viewer, notifications.ThreadEvent{
		Type:      notifications.EventCommentLiked,
		ContentID: comment.ContentID,
		CommentID: comment.ID,
		Liked:     &liked,
	})
}
