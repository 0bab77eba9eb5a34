package repository

import (
	"context"
	"errors"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// Feed sort orders.
const (
	SortNew = "new"
	SortTop = "top"
)

// ContentFilter narrows the published feed. Zero values mean "any".
type ContentFilter struct {
	TypeName     string
	CategorySlug string
	Tag          string
	AuthorID     uint
	Featured     *bool
	Sort         string
	Limit        int
	Offset       int
}

// ContentRepository defines persistence operations for content items.
type ContentRepository interface {
	Create(ctx context.Context, content *models.Content) error
	GetByID(ctx context.Context, id uint) (*models.Content, error)
	GetBySlug(ctx context.Context, slug string) (*models.Content, error)
	GetByIDs(ctx context.Context, ids []uint) ([]*models.Content, error)
	Exists(ctx context.Context, id uint) (bool, error)
	List(ctx context.Context, filter ContentFilter) ([]*models.Content, error)
	ListPublishedCandidates(ctx context.Context, excludeID uint) ([]*models.Content, error)
	IncrementViews(ctx context.Context, id uint) error
	Delete(ctx context.Context, id uint) error
}

type contentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewContentRepository creates a new ContentRepository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db, log: observability.NewRepoLogger("contents")}
}

func withTaxonomy(db *gorm.DB) *gorm.DB {
	return db.Preload("ContentType").Preload("Categories").Preload("Tags")
}

// Create inserts content together with its tags and category links. Categories
// must already exist; only the join rows are written for them.
func (r *contentRepository) Create(ctx context.Context, content *models.Content) error {
	err := r.db.WithContext(ctx).
		Omit("ContentType", "Categories.*").
		Create(content).Error
	if err != nil {
		if isUniqueViolation(err) {
			return ErrSlugTaken
		}
		r.log.LogError(ctx, err, "create")
		return translate(err, "Content", content.Slug)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"content_id": content.ID, "slug": content.Slug})
	cache.InvalidateRelated(ctx)
	return nil
}

func (r *contentRepository) GetByID(ctx context.Context, id uint) (*models.Content, error) {
	var content models.Content
	if err := withTaxonomy(r.db.WithContext(ctx)).First(&content, id).Error; err != nil {
		return nil, translate(err, "Content", id)
	}
	return &content, nil
}

func (r *contentRepository) GetBySlug(ctx context.Context, slug string) (*models.Content, error) {
	var content models.Content
	if err := withTaxonomy(r.db.WithContext(ctx)).Where("slug = ?", slug).First(&content).Error; err != nil {
		return nil, translate(err, "Content", slug)
	}
	return &content, nil
}

// GetByIDs loads the given items in no particular order. Missing ids are skipped.
func (r *contentRepository) GetByIDs(ctx context.Context, ids []uint) ([]*models.Content, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var contents []*models.Content
	if err := withTaxonomy(r.db.WithContext(ctx)).Where("id IN ?", ids).Find(&contents).Error; err != nil {
		return nil, translate(err, "Content", ids)
	}
	return contents, nil
}

func (r *contentRepository) Exists(ctx context.Context, id uint) (bool, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Content{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return false, translate(err, "Content", id)
	}
	return n > 0, nil
}

// List returns published items matching filter.
func (r *contentRepository) List(ctx context.Context, filter ContentFilter) ([]*models.Content, error) {
	db := r.db.WithContext(ctx)
	q := withTaxonomy(db).Model(&models.Content{}).Where("contents.published = ?", true)

	if filter.TypeName != "" {
		q = q.Where("contents.content_type_id IN (?)",
			db.Model(&models.ContentType{}).Select("id").Where("name = ?", filter.TypeName))
	}
	if filter.CategorySlug != "" {
		q = q.Where("contents.id IN (?)",
			db.Table("content_categories").
				Select("content_categories.content_id").
				Joins("JOIN categories ON categories.id = content_categories.category_id").
				Where("categories.slug = ?", filter.CategorySlug))
	}
	if filter.Tag != "" {
		q = q.Where("contents.id IN (?)",
			db.Model(&models.ContentTag{}).Select("content_id").Where("tag = ?", filter.Tag))
	}
	if filter.AuthorID != 0 {
		q = q.Where("contents.author_id = ?", filter.AuthorID)
	}
	if filter.Featured != nil {
		q = q.Where("contents.featured = ?", *filter.Featured)
	}

	switch filter.Sort {
	case SortTop:
		q = q.Order("contents.likes_count DESC, contents.created_at DESC, contents.id DESC")
	default:
		q = q.Order("contents.created_at DESC, contents.id DESC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}

	var contents []*models.Content
	if err := q.Find(&contents).Error; err != nil {
		return nil, translate(err, "Content", "feed")
	}
	return contents, nil
}

// ListPublishedCandidates returns every published item other than excludeID
// with the taxonomy the scorer reads.
func (r *contentRepository) ListPublishedCandidates(ctx context.Context, excludeID uint) ([]*models.Content, error) {
	var contents []*models.Content
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Preload("Tags").
		Where("published = ? AND id <> ?", true, excludeID).
		Find(&contents).Error
	if err != nil {
		return nil, translate(err, "Content", "candidates")
	}
	return contents, nil
}

func (r *contentRepository) IncrementViews(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).
		Model(&models.Content{}).
		Where("id = ?", id).
		UpdateColumn("view_count", gorm.Expr("view_count + ?", 1)).Error
	return translate(err, "Content", id)
}

// Delete removes the item and everything that references it in one transaction:
// likes on its comments, the comments, content likes, bookmarks, tags and
// category links.
func (r *contentRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		commentIDs := tx.Model(&models.Comment{}).Select("id").Where("content_id = ?", id)
		if err := tx.Where("comment_id IN (?)", commentIDs).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", id).Delete(&models.Comment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", id).Delete(&models.ContentLike{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", id).Delete(&models.Bookmark{}).Error; err != nil {
			return err
		}
		if err := tx.Where("content_id = ?", id).Delete(&models.ContentTag{}).Error; err != nil {
			return err
		}
		if err := tx.Exec("DELETE FROM content_categories WHERE content_id = ?", id).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Content{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.LogError(ctx, err, "delete")
		}
		return translate(err, "Content", id)
	}

	r.log.LogDelete(ctx, map[string]interface{}{"content_id": id})
	cache.Invalidate(ctx, cache.RelatedKey(id))
	cache.InvalidateRelated(ctx)
	return nil
}
