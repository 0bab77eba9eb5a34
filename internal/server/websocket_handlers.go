package server

import (
	"errors"
	"log/slog"

	"inkwell/internal/featureflags"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/notifications"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

// upgradeRequired admits only websocket upgrades for existing content and
// resolves the optional ?token= viewer. Browsers cannot set headers on an
// upgrade, so the token travels in the query string here.
func (s *Server) upgradeRequired(c *fiber.Ctx) error {
	if !websocket.IsWebSocketUpgrade(c) {
		return models.RespondWithError(c, fiber.StatusUpgradeRequired,
			models.NewValidationError("WebSocket upgrade required"))
	}

	if token := c.Query("token"); token != "" {
		userID, err := s.auth.ParseUserID(token)
		if err != nil {
			return models.RespondWithError(c, fiber.StatusUnauthorized,
				models.NewUnauthorizedError("Invalid or expired token"))
		}
		c.Locals("userID", userID)
	}

	if !s.featureFlags.EnabledDefault(featureflags.LiveThreads, viewerID(c), true) {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Live thread", c.Params("id")))
	}
	return c.Next()
}

// ThreadWebSocketHandler streams thread events for one content item.
// @Summary Live thread events
// @Description WebSocket stream of comment.created, comment.updated, comment.deleted and comment.liked events for a content item.
// @Tags comments
// @Param id path int true "Content ID"
// @Param token query string false "Bearer token of the viewer"
// @Success 101
// @Router /ws/contents/{id} [get]
func (s *Server) ThreadWebSocketHandler() fiber.Handler {
	upgrade := websocket.New(func(conn *websocket.Conn) {
		middleware.ActiveWebSockets.Inc()
		defer middleware.ActiveWebSockets.Dec()

		contentID, _ := conn.Locals("contentID").(uint)
		userID, _ := conn.Locals("userID").(uint)

		client, err := s.hub.Register(contentID, userID, conn)
		if err != nil {
			middleware.Logger.Warn("thread subscription rejected",
				slog.Uint64("content_id", uint64(contentID)),
				slog.String("error", err.Error()))
			reason := "subscription rejected"
			if errors.Is(err, notifications.ErrRoomFull) || errors.Is(err, notifications.ErrServerFull) {
				reason = err.Error()
			}
			_ = conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, reason))
			_ = conn.Close()
			return
		}

		// The connection is recycled once this handler returns, so wait for the writer.
		written := make(chan struct{})
		go func() {
			client.WritePump()
			close(written)
		}()
		client.ReadPump()
		<-written
	})

	return func(c *fiber.Ctx) error {
		contentID, err := parseID(c, "id")
		if err != nil {
			return nil
		}
		exists, err := s.contentRepo.Exists(c.UserContext(), contentID)
		if err != nil {
			return respond(c, err)
		}
		if !exists {
			return respond(c, models.NewNotFoundError("Content", contentID))
		}
		c.Locals("contentID", contentID)
		return upgrade(c)
	}
}
