package service

import (
	"context"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/featureflags"
	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/recommend"
	"inkwell/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

const (
	// DefaultRelatedLimit is used when the caller does not ask for a size.
	DefaultRelatedLimit = 6
	// MaxRelatedLimit bounds any related request. The cache always holds this many ids.
	MaxRelatedLimit = 50
)

// RelatedService ranks published content against a source item.
type RelatedService struct {
	contentRepo  repository.ContentRepository
	scorer       *recommend.Scorer
	flags        *featureflags.Manager
	defaultLimit int
	cacheTTL     time.Duration
}

type RelatedOptions struct {
	DefaultLimit int
	CacheTTL     time.Duration
	Flags        *featureflags.Manager
}

func NewRelatedService(contentRepo repository.ContentRepository, scorer *recommend.Scorer, opts RelatedOptions) *RelatedService {
	if scorer == nil {
		scorer = recommend.NewScorer()
	}
	if opts.DefaultLimit <= 0 || opts.DefaultLimit > MaxRelatedLimit {
		opts.DefaultLimit = DefaultRelatedLimit
	}
	return &RelatedService{
		contentRepo:  contentRepo,
		scorer:       scorer,
		flags:        opts.Flags,
		defaultLimit: opts.DefaultLimit,
		cacheTTL:     opts.CacheTTL,
	}
}

// Related returns up to limit published items most relevant to contentID,
// best first. The source never appears in its own list. An unknown source
// gives an empty list.
func (s *RelatedService) Related(ctx context.Context, contentID uint, limit int) ([]*models.Content, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > MaxRelatedLimit {
		limit = MaxRelatedLimit
	}

	span, ctx := observability.NewSpan(ctx, "content.related",
		attribute.Int64("content.id", int64(contentID)),
		attribute.Int("limit", limit))
	defer span.End()

	source, err := s.contentRepo.GetByID(ctx, contentID)
	if err != nil {
		if models.HasCode(err, models.CodeNotFound) {
			return []*models.Content{}, nil
		}
		span.SetError(err)
		return nil, err
	}

	var ranked []uint
	fill := func() error {
		ids, err := s.rank(ctx, source)
		ranked = ids
		return err
	}

	outcome := "bypass"
	if s.flags.EnabledDefault(featureflags.RelatedCache, 0, true) && s.cacheTTL > 0 && cache.GetClient() != nil {
		hit, err := cache.Aside(ctx, cache.RelatedKey(contentID), &ranked, s.cacheTTL, fill)
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		outcome = "miss"
		if hit {
			outcome = "hit"
		}
	} else if err := fill(); err != nil {
		span.SetError(err)
		return nil, err
	}
	observability.RelatedRequests.WithLabelValues(outcome).Inc()
	span.AddAttributes(attribute.String("cache", outcome))

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	return s.load(ctx, contentID, ranked)
}

// rank scores every published candidate and returns the best MaxRelatedLimit ids.
func (s *RelatedService) rank(ctx context.Context, source *models.Content) ([]uint, error) {
	candidates, err := s.contentRepo.ListPublishedCandidates(ctx, source.ID)
	if err != nil {
		return nil, err
	}
	items := make([]recommend.Item, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, toItem(c))
	}

	scored := s.scorer.Rank(toItem(source), items, MaxRelatedLimit)
	ids := make([]uint, 0, len(scored))
	for _, sc := range scored {
		ids = append(ids, sc.Item.ID)
	}
	return ids, nil
}

// load fetches ids in rank order. Cached ids may be stale, so anything since
// deleted or unpublished is dropped here.
func (s *RelatedService) load(ctx context.Context, sourceID uint, ids []uint) ([]*models.Content, error) {
	out := make([]*models.Content, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	rows, err := s.contentRepo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]*models.Content, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	for _, id := range ids {
		c, ok := byID[id]
		if !ok || !c.Published || c.ID == sourceID {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func toItem(c *models.Content) recommend.Item {
	return recommend.Item{
		ID:         c.ID,
		TypeID:     c.ContentTypeID,
		AuthorID:   c.AuthorID,
		Categories: c.CategoryIDs(),
		Tags:       c.TagNames(),
		Likes:      c.LikesCount,
		Views:      c.ViewCount,
		Published:  c.Published,
		CreatedAt:  c.CreatedAt,
	}
}
