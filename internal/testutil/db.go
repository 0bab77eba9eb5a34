// Package testutil provides shared fixtures for tests that need a real database.
package testutil

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var seq atomic.Int64

// NewSQLiteDB returns a migrated in-memory database that lives as long as t.
// A single connection keeps every statement on the same in-memory instance.
func NewSQLiteDB(t testing.TB) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.AutoMigrate(db))
	types := make([]models.ContentType, len(models.BuiltinContentTypes))
	copy(types, models.BuiltinContentTypes)
	require.NoError(t, db.Create(&types).Error)
	return db
}

// CreateUser inserts a user with a unique username derived from name.
func CreateUser(t testing.TB, db *gorm.DB, name string, admin bool) *models.User {
	t.Helper()
	n := seq.Add(1)
	u := &models.User{
		Username: fmt.Sprintf("%s%d", name, n),
		Email:    fmt.Sprintf("%s%d@example.com", name, n),
		Password: "x",
		Avatar:   "https://example.com/" + name + ".png",
		IsAdmin:  admin,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

// ContentType returns the id of a built-in content type.
func ContentType(t testing.TB, db *gorm.DB, name string) uint {
	t.Helper()
	var ct models.ContentType
	require.NoError(t, db.Where("name = ?", name).First(&ct).Error)
	return ct.ID
}

// CreateCategory inserts a category with the given slug.
func CreateCategory(t testing.TB, db *gorm.DB, slug string) models.Category {
	t.Helper()
	c := models.Category{Name: slug, Slug: slug}
	require.NoError(t, db.Create(&c).Error)
	return c
}

// ContentOption customises CreateContent.
type ContentOption func(*models.Content)

func Draft() ContentOption { return func(c *models.Content) { c.Published = false } }

func WithType(id uint) ContentOption { return func(c *models.Content) { c.ContentTypeID = id } }

func WithCategories(cats ...models.Category) ContentOption {
	return func(c *models.Content) { c.Categories = cats }
}

func WithTags(tags ...string) ContentOption {
	return func(c *models.Content) {
		for _, tag := range tags {
			c.Tags = append(c.Tags, models.ContentTag{Tag: tag})
		}
	}
}

func WithStats(likes, views int) ContentOption {
	return func(c *models.Content) {
		c.LikesCount = likes
		c.ViewCount = views
	}
}

func CreatedAt(at time.Time) ContentOption {
	return func(c *models.Content) {
		c.CreatedAt = at
		c.UpdatedAt = at
	}
}

// CreateContent inserts a published article by author unless options say otherwise.
func CreateContent(t testing.TB, db *gorm.DB, author *models.User, opts ...ContentOption) *models.Content {
	t.Helper()
	n := seq.Add(1)
	c := &models.Content{
		Title:         fmt.Sprintf("Item %d", n),
		Slug:          fmt.Sprintf("item-%d", n),
		Body:          "body",
		ContentTypeID: ContentType(t, db, models.ContentTypeArticle),
		AuthorID:      author.ID,
		AuthorName:    author.Username,
		Published:     true,
	}
	for _, opt := range opts {
		opt(c)
	}
	require.NoError(t, db.Omit("Categories.*").Create(c).Error)
	return c
}

// CreateComment inserts an approved comment row directly, without touching
// the content's comments_count, at a fixed time so ordering is deterministic.
func CreateComment(t testing.TB, db *gorm.DB, content *models.Content, user *models.User, parent *models.Comment, at time.Time) *models.Comment {
	t.Helper()
	c := &models.Comment{
		ContentID:  content.ID,
		UserID:     user.ID,
		AuthorName: user.Username,
		Body:       "comment",
		Status:     models.CommentStatusApproved,
		CreatedAt:  at,
		UpdatedAt:  at,
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// ReloadContent reads the stored row for id.
func ReloadContent(t testing.TB, db *gorm.DB, id uint) models.Content {
	t.Helper()
	var c models.Content
	require.NoError(t, db.First(&c, id).Error)
	return c
}

// Count returns the number of model rows matching where.
func Count(t testing.TB, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}
