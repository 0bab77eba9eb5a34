package server

import (
	"github.com/gofiber/fiber/v2"
)

// RunReconcile handles POST /api/admin/reconcile
// @Summary Recompute engagement counters
// @Description Rewrites every denormalized counter that drifted from its relationship rows and reports how many rows changed.
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.ReconcileReport
// @Failure 403 {object} models.ErrorResponse
// @Router /admin/reconcile [post]
func (s *Server) RunReconcile(c *fiber.Ctx) error {
	report, err := s.reconciler.Reconcile(c.UserContext())
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(report)
}

// GetFeatureFlags returns configured feature flags and evaluated state for current user.
// @Summary Feature flags
// @Tags admin
// @Produce json
// @Security BearerAuth
// @Success 200 {object} object{raw=map[string]string,evaluated=map[string]bool}
// @Router /admin/feature-flags [get]
func (s *Server) GetFeatureFlags(c *fiber.Ctx) error {
	userID := viewerID(c)
	return c.JSON(fiber.Map{
		"raw":       s.featureFlags.Raw(),
		"evaluated": s.featureFlags.Snapshot(userID),
	})
}
