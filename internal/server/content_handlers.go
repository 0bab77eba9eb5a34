package server

import (
	"inkwell/internal/models"
	"inkwell/internal/service"

	"github.com/gofiber/fiber/v2"
)

type createContentRequest struct {
	Title      string   `json:"title" validate:"required,notblank,max=200"`
	Body       string   `json:"body" validate:"required,notblank"`
	Type       string   `json:"type" validate:"omitempty,max=32"`
	Slug       string   `json:"slug" validate:"omitempty,slug,max=200"`
	Categories []string `json:"categories" validate:"max=20"`
	Tags       []string `json:"tags" validate:"max=20"`
	Published  *bool    `json:"published"`
	Featured   bool     `json:"featured"`
}

// ListContents handles GET /api/contents
// @Summary List published content
// @Description Published feed filtered by type, category, tag, author and featured flag.
// @Tags contents
// @Produce json
// @Param type query string false "Content type name"
// @Param category query string false "Category slug"
// @Param tag query string false "Tag"
// @Param author_id query int false "Author ID"
// @Param featured query bool false "Featured only"
// @Param sort query string false "new or top"
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.Content
// @Failure 400 {object} models.ErrorResponse
// @Router /contents [get]
func (s *Server) ListContents(c *fiber.Ctx) error {
	page := parsePagination(c, 20)
	in := service.FeedInput{
		Type:     c.Query("type"),
		Category: c.Query("category"),
		Tag:      c.Query("tag"),
		AuthorID: uint(max(c.QueryInt("author_id", 0), 0)),
		Sort:     c.Query("sort"),
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	if raw := c.Query("featured"); raw != "" {
		featured := c.QueryBool("featured")
		in.Featured = &featured
	}

	contents, err := s.contentService.ListFeed(c.UserContext(), in)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(contents)
}

// GetContent handles GET /api/contents/:id
// @Summary Get content
// @Tags contents
// @Produce json
// @Param id path int true "Content ID"
// @Success 200 {object} models.Content
// @Failure 404 {object} models.ErrorResponse
// @Router /contents/{id} [get]
func (s *Server) GetContent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	content, err := s.contentService.GetContent(c.UserContext(), id, viewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(content)
}

// GetContentBySlug handles GET /api/contents/slug/:slug
// @Summary Get content by slug
// @Tags contents
// @Produce json
// @Param slug path string true "Content slug"
// @Success 200 {object} models.Content
// @Failure 404 {object} models.ErrorResponse
// @Router /contents/slug/{slug} [get]
func (s *Server) GetContentBySlug(c *fiber.Ctx) error {
	content, err := s.contentService.GetContentBySlug(c.UserContext(), c.Params("slug"), viewerID(c))
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(content)
}

// CreateContent handles POST /api/contents
// @Summary Create content
// @Tags contents
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body createContentRequest true "Content"
// @Success 201 {object} models.Content
// @Failure 400 {object} models.ErrorResponse
// @Router /contents [post]
func (s *Server) CreateContent(c *fiber.Ctx) error {
	var req createContentRequest
	if err := bindJSON(c, &req); err != nil {
		return nil
	}
	published := true
	if req.Published != nil {
		published = *req.Published
	}

	content, err := s.contentService.CreateContent(c.UserContext(), service.CreateContentInput{
		AuthorID:   viewerID(c),
		Title:      req.Title,
		Body:       req.Body,
		Type:       req.Type,
		Slug:       req.Slug,
		Categories: req.Categories,
		Tags:       req.Tags,
		Published:  published,
		Featured:   req.Featured,
	})
	if err != nil {
		return respond(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(content)
}

// DeleteContent handles DELETE /api/contents/:id
// @Summary Delete content
// @Description Author or admin only. Removes the item with its comments, likes, bookmarks and tags.
// @Tags contents
// @Security BearerAuth
// @Param id path int true "Content ID"
// @Success 204
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /contents/{id} [delete]
func (s *Server) DeleteContent(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.contentService.DeleteContent(c.UserContext(), id, viewerID(c)); err != nil {
		return respond(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetRelated handles GET /api/contents/:id/related
// @Summary Related content
// @Description Published items ranked by shared type, categories, tags, author, popularity and recency.
// @Tags contents
// @Produce json
// @Param id path int true "Content ID"
// @Param limit query int false "Maximum results (1-50)"
// @Success 200 {array} models.Content
// @Router /contents/{id}/related [get]
func (s *Server) GetRelated(c *fiber.Ctx) error {
	id, err := parseID(c, "id")
	if err != nil {
		return nil
	}
	limit := c.QueryInt("limit", 0)
	if limit < 0 {
		return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("limit must not be negative"))
	}
	related, err := s.relatedService.Related(c.UserContext(), id, limit)
	if err != nil {
		return respond(c, err)
	}
	return c.JSON(related)
}
