package server

import (
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type postCommentRequest struct {
	Body     string `json:"body" validate:"required"`
	ParentID *uint  `json:"parent_id" validate:"omitempty,gt=0"`
}

type editCommentRequest struct {
	Body string `json:"body" validate:"required"`
}

// GetThread handles GET /api/contents/:id/comments
// @Summary Comment thread
// @Description Approved comments as a reply forest. Roots newest first, replies oldest first. is_liked is present only for authenticated viewers.
// @Tags comments
// @Produce json
// @Param id path int true "Content ID"
// @Success 200 {array} models.ThreadNode
// @Router /contents/{id}/comments [get]
func (s *Server) GetThread(c *fiber.Ctx) error {
	contentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	forest, err := s.commentService.GetThread(c.UserContext(), contentID, viewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(forest)
}

// PostComment handles POST /api/contents/:id/comments
// @Summary Post a comment or reply
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Param request body postCommentRequest true "Comment"
// @Success 201 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /contents/{id}/comments [post]
func (s *Server) PostComment(c *fiber.Ctx) error {
	contentID, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	var req postCommentRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	userID := viewerID(c)
	comment, err := s.commentService.PostComment(c.UserContext(), service.PostCommentInput{
		ContentID: contentID,
		UserID:    userID,
		Body:      req.Body,
		ParentID:  req.ParentID,
	})
	if err != nil {
		return respond(c, err)
	}

	s.publishCommentEvent(userID, notifications.EventCommentCreated, comment)
	return c.Status(fiber.StatusCreated).JSON(comment)
}

// EditComment handles PATCH /api/comments/:commentId
// @Summary Edit a comment
// @Description Author or admin only.
// @Tags comments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Param request body editCommentRequest true "New body"
// @Success 200 {object} models.Comment
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{commentId} [patch]
func (s *Server) EditComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}
	var req editCommentRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	userID := viewerID(c)
	comment, err := s.commentService.EditComment(c.UserContext(), service.EditCommentInput{
		CommentID: commentID,
		EditorID:  userID,
		Body:      req.Body,
	})
	if err != nil {
		return respond(c, err)
	}

	s.publishCommentEvent(userID, notifications.EventCommentUpdated, comment)
	return c.JSON(comment)
}

// DeleteComment handles DELETE /api/comments/:commentId
// @Summary Delete a comment
// @Description Author or admin only. Replies are handled by the configured delete policy.
// @Tags comments
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{commentId} [delete]
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}

	userID := viewerID(c)
	comment, err := s.commentService.DeleteComment(c.UserContext(), service.DeleteCommentInput{
		CommentID:   commentID,
		RequesterID: userID,
	})
	if err != nil {
		return respond(c, err)
	}

	s.publishCommentEvent(userID, notifications.EventCommentDeleted, comment)
	return c.SendStatus(fiber.StatusNoContent)
}

// ToggleCommentLike handles POST /api/comments/:commentId/like
// @Summary Toggle a comment like
// @Tags comments
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Success 200 {object} object{liked=bool}
// @Failure 404 {object} models.ErrorResponse
// @Router /comments/{commentId}/like [post]
func (s *Server) ToggleCommentLike(c *fiber.Ctx) error {
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}

	userID := viewerID(c)
	liked, err := s.commentService.ToggleCommentLike(c.UserContext(), commentID, userID)
	if err != nil {
		return respond(c, err)
	}

	s.publishCommentLike(c.UserContext(), userID, commentID, liked)
	return c.JSON(fiber.Map{"liked": liked})
}

// SetCommentStatus handles PATCH /api/admin/comments/:commentId/status
// @Summary Moderate a comment
// @Tags admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param commentId path int true "Comment ID"
// @Param request body object{status=string} true "approved, pending or rejected"
// @Success 200 {object} models.Comment
// @Failure 400 {object} models.ErrorResponse
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/comments/{commentId}/status [patch]
func (s *Server) SetCommentStatus(c *fiber.Ctx) error {
	commentID, err := parseID(c, "commentId")
	if err != nil {
		return nil
	}
	var req struct {
		Status string `json:"status" validate:"required,oneof=approved pending rejected"`
	}
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	userID := viewerID(c)
	comment, err := s.commentService.SetCommentStatus(c.UserContext(), service.SetCommentStatusInput{
		CommentID:   commentID,
		ModeratorID: userID,
		Status:      models.CommentStatus(req.Status),
	})
	if err != nil {
		return respond(c, err)
	}

	if comment.Status == models.CommentStatusApproved {
		s.publishCommentEvent(userID, notifications.EventCommentCreated, comment)
	} else {
		s.publishThreadEvent(userID, notifications.ThreadEvent{
			Type:      notifications.EventCommentDeleted,
			ContentID: comment.ContentID,
			CommentID: comment.ID,
		})
	}
	return c.JSON(comment)
}

// ListPendingComments handles GET /api/admin/comments/pending
// @Summary Comments awaiting moderation
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Comment
// @Router /admin/comments/pending [get]
func (s *Server) ListPendingComments(c *fiber.Ctx) error {
	page := parsePagination(c, 50)
	comments, err := s.commentService.ListPending(c.UserContext(), viewerID(c), page.Limit, page.Offset)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(comments)
}
