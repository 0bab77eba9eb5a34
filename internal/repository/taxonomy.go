package repository

import (
	"context"

	"inkwell/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TaxonomyRepository manages content types and categories.
type TaxonomyRepository interface {
	EnsureContentTypes(ctx context.Context) error
	GetTypeByName(ctx context.Context, name string) (*models.ContentType, error)
	CategoriesBySlugs(ctx context.Context, slugs []string) ([]models.Category, error)
	UpsertCategory(ctx context.Context, category *models.Category) error
}

type taxonomyRepository struct {
	db *gorm.DB
}

// NewTaxonomyRepository creates a new TaxonomyRepository.
func NewTaxonomyRepository(db *gorm.DB) TaxonomyRepository {
	return &taxonomyRepository{db: db}
}

// EnsureContentTypes inserts any missing built-in content type. It is safe to call repeatedly.
func (r *taxonomyRepository) EnsureContentTypes(ctx context.Context) error {
	types := make([]models.ContentType, len(models.BuiltinContentTypes))
	copy(types, models.BuiltinContentTypes)
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "name"}}, DoNothing: true}).
		Create(&types).Error
	return translate(err, "ContentType", "builtin")
}

func (r *taxonomyRepository) GetTypeByName(ctx context.Context, name string) (*models.ContentType, error) {
	var ct models.ContentType
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&ct).Error; err != nil {
		return nil, translate(err, "ContentType", name)
	}
	return &ct, nil
}

// CategoriesBySlugs returns the categories with the given slugs. Unknown slugs are skipped.
func (r *taxonomyRepository) CategoriesBySlugs(ctx context.Context, slugs []string) ([]models.Category, error) {
	if len(slugs) == 0 {
		return nil, nil
	}
	var cats []models.Category
	if err := r.db.WithContext(ctx).Where("slug IN ?", slugs).Order("id").Find(&cats).Error; err != nil {
		return nil, translate(err, "Category", slugs)
	}
	return cats, nil
}

// UpsertCategory inserts category or, when the slug exists, loads the stored row into it.
func (r *taxonomyRepository) UpsertCategory(ctx context.Context, category *models.Category) error {
	err := r.db.WithContext(ctx).
		Where(models.Category{Slug: category.Slug}).
		Attrs(models.Category{Name: category.Name}).
		FirstOrCreate(category).Error
	return translate(err, "Category", category.Slug)
}
