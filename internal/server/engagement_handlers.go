package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type toggleRequest struct {
	Kind       string `json:"kind" validate:"required,oneof=like bookmark"`
	TargetType string `json:"target_type" validate:"required,oneof=content comment"`
	TargetID   uint   `json:"target_id" validate:"required,gt=0"`
}

// ToggleEngagement handles POST /api/engagement/toggle
// @Summary Toggle a like or bookmark
// @Description Flips the caller's relationship with the target and reports the new state. Bookmarks only apply to content.
// @Tags engagement
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body toggleRequest true "Toggle"
// @Success 200 {object} object{active=bool}
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /engagement/toggle [post]
func (s *Server) ToggleEngagement(c *fiber.Ctx) error {
	var req toggleRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}

	userID := viewerID(c)
	in := service.ToggleInput{
		Kind:     models.EngagementKind(req.Kind),
		Target:   models.TargetType(req.TargetType),
		UserID:   userID,
		TargetID: req.TargetID,
	}
	active, err := s.engagementService.Toggle(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}

	if in.Kind == models.KindLike && in.Target == models.TargetComment {
		s.publishCommentLike(c.UserContext(), userID, in.TargetID, active)
	}
	return c.JSON(fiber.Map{"active": active})
}
