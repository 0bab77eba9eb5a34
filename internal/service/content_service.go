package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/slug"
)

const (
	maxTitleLen      = 200
	maxTagLen        = 64
	maxTagsPerItem   = 20
	defaultFeedLimit = 20
	maxFeedLimit     = 100
)

type ContentService struct {
	contentRepo  repository.ContentRepository
	taxonomyRepo repository.TaxonomyRepository
	userRepo     repository.UserRepository
	isAdmin      AdminChecker
	flags        *featureflags.Manager
	now          func() time.Time
}

type CreateContentInput struct {
	AuthorID   uint
	Title      string
	Body       string
	Type       string
	Slug       string
	Categories []string
	Tags       []string
	Published  bool
	Featured   bool
}

type FeedInput struct {
	Type     string
	Category string
	Tag      string
	AuthorID uint
	Featured *bool
	Sort     string
	Limit    int
	Offset   int
}

func NewContentService(
	contentRepo repository.ContentRepository,
	taxonomyRepo repository.TaxonomyRepository,
	userRepo repository.UserRepository,
	isAdmin AdminChecker,
	flags *featureflags.Manager,
) *ContentService {
	return &ContentService{
		contentRepo:  contentRepo,
		taxonomyRepo: taxonomyRepo,
		userRepo:     userRepo,
		isAdmin:      isAdmin,
		flags:        flags,
		now:          time.Now,
	}
}

// CreateContent stores a new item. The slug comes from the title unless one
// is given; a generated slug that collides is retried once with a random suffix.
func (s *ContentService) CreateContent(ctx context.Context, in CreateContentInput) (*models.Content, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, models.NewValidationError("Title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLen {
		return nil, models.NewValidationError(fmt.Sprintf("Title too long (max %d characters)", maxTitleLen))
	}
	if strings.TrimSpace(in.Body) == "" {
		return nil, models.NewValidationError("Body is required")
	}

	explicitSlug := strings.TrimSpace(in.Slug)
	if explicitSlug != "" && !slug.Valid(explicitSlug) {
		return nil, models.NewValidationError("Slug must contain only lowercase letters, numbers and single hyphens")
	}

	tags, err := normalizeTags(in.Tags)
	if err != nil {
		return nil, err
	}

	typeName := strings.ToLower(strings.TrimSpace(in.Type))
	if typeName == "" {
		typeName = models.ContentTypeArticle
	}
	contentType, err := s.taxonomyRepo.GetTypeByName(ctx, typeName)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return nil, models.NewValidationError(fmt.Sprintf("Unknown content type %q", typeName))
		}
		return nil, err
	}

	categories, err := s.resolveCategories(ctx, in.Categories)
	if err != nil {
		return nil, err
	}

	author, err := s.userRepo.GetByID(ctx, in.AuthorID)
	if err != nil {
		return nil, err
	}

	content := &models.Content{
		Title:         title,
		Slug:          explicitSlug,
		Body:          in.Body,
		ContentTypeID: contentType.ID,
		Categories:    categories,
		Tags:          tags,
		AuthorID:      author.ID,
		AuthorName:    author.Username,
		AuthorAvatar:  author.Avatar,
		Published:     in.Published,
		Featured:      in.Featured,
	}
	if content.Slug == "" {
		content.Slug = slug.Generate(title, s.now())
	}

	err = s.contentRepo.Create(ctx, content)
	if errors.Is(err, repository.ErrSlugTaken) {
		if explicitSlug != "" {
			return nil, models.NewValidationError("Slug is already in use")
		}
		content.ID = 0
		content.Slug = slug.WithSuffix(content.Slug)
		for i := range content.Tags {
			content.Tags[i].ID = 0
			content.Tags[i].ContentID = 0
		}
		err = s.contentRepo.Create(ctx, content)
	}
	if err != nil {
		if errors.Is(err, repository.ErrSlugTaken) {
			return nil, models.NewValidationError("Slug is already in use")
		}
		return nil, err
	}

	content.ContentType = *contentType
	return content, nil
}

// GetContent loads an item by id. Drafts are visible to their author and admins only.
func (s *ContentService) GetContent(ctx context.Context, id, viewerID uint) (*models.Content, error) {
	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, content, viewerID)
}

// GetContentBySlug is GetContent keyed by slug.
func (s *ContentService) GetContentBySlug(ctx context.Context, contentSlug string, viewerID uint) (*models.Content, error) {
	content, err := s.contentRepo.GetBySlug(ctx, contentSlug)
	if err != nil {
		return nil, err
	}
	return s.present(ctx, content, viewerID)
}

// present applies draft visibility and counts the view for anyone but the author.
func (s *ContentService) present(ctx context.Context, content *models.Content, viewerID uint) (*models.Content, error) {
	if !content.Published {
		ok, err := authorOrAdmin(ctx, s.isAdmin, content.AuthorID, viewerID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, models.NewNotFoundError("Content", content.ID)
		}
	}

	if content.Published && viewerID != content.AuthorID && s.flags.EnabledDefault(featureflags.ViewCounting, viewerID, true) {
		if err := s.contentRepo.IncrementViews(ctx, content.ID); err != nil {
			return nil, err
		}
		content.ViewCount++
	}
	return content, nil
}

// ListFeed returns published items matching the filter.
func (s *ContentService) ListFeed(ctx context.Context, in FeedInput) ([]*models.Content, error) {
	sort := strings.ToLower(strings.TrimSpace(in.Sort))
	switch sort {
	case "":
		sort = repository.SortNew
	case repository.SortNew, repository.SortTop:
	default:
		return nil, models.NewValidationError("sort must be new or top")
	}

	limit := in.Limit
	if limit <= 0 {
		limit = defaultFeedLimit
	}
	if limit > maxFeedLimit {
		limit = maxFeedLimit
	}
	offset := in.Offset
	if offset < 0 {
		offset = 0
	}

	return s.contentRepo.List(ctx, repository.ContentFilter{
		TypeName:     strings.ToLower(strings.TrimSpace(in.Type)),
		CategorySlug: strings.TrimSpace(in.Category),
		Tag:          strings.ToLower(strings.TrimSpace(in.Tag)),
		AuthorID:     in.AuthorID,
		Featured:     in.Featured,
		Sort:         sort,
		Limit:        limit,
		Offset:       offset,
	})
}

// DeleteContent removes an item and everything hanging off it. Author or admin only.
func (s *ContentService) DeleteContent(ctx context.Context, id, requesterID uint) error {
	content, err := s.contentRepo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	ok, err := authorOrAdmin(ctx, s.isAdmin, content.AuthorID, requesterID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("You can only delete your own content")
	}
	return s.contentRepo.Delete(ctx, id)
}

func (s *ContentService) resolveCategories(ctx context.Context, slugs []string) ([]models.Category, error) {
	wanted := make([]string, 0, len(slugs))
	seen := make(map[string]struct{}, len(slugs))
	for _, raw := range slugs {
		sl := strings.ToLower(strings.TrimSpace(raw))
		if sl == "" {
			continue
		}
		if _, dup := seen[sl]; dup {
			continue
		}
		seen[sl] = struct{}{}
		wanted = append(wanted, sl)
	}
	if len(wanted) == 0 {
		return nil, nil
	}

	cats, err := s.taxonomyRepo.CategoriesBySlugs(ctx, wanted)
	if err != nil {
		return nil, err
	}
	if len(cats) != len(wanted) {
		found := make(map[string]struct{}, len(cats))
		for _, c := range cats {
			found[c.Slug] = struct{}{}
		}
		for _, sl := range wanted {
			if _, ok := found[sl]; !ok {
				return nil, models.NewValidationError(fmt.Sprintf("Unknown category %q", sl))
			}
		}
	}
	return cats, nil
}

// normalizeTags lower-cases, trims and de-duplicates tags, keeping first-seen order.
func normalizeTags(raw []string) ([]models.ContentTag, error) {
	tags := make([]models.ContentTag, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))
	for _, t := range raw {
		tag := strings.ToLower(strings.TrimSpace(t))
		if tag == "" {
			continue
		}
		if utf8.RuneCountInString(tag) > maxTagLen {
			return nil, models.NewValidationError(fmt.Sprintf("Tag too long (max %d characters)", maxTagLen))
		}
		if _, dup := seen[tag]; dup {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, models.ContentTag{Tag: tag})
	}
	if len(tags) > maxTagsPerItem {
		return nil, models.NewValidationError(fmt.Sprintf("Too many tags (max %d)", maxTagsPerItem))
	}
	return tags, nil
}
