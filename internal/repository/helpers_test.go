package repository

import (
	"fmt"
	"testing"
	"time"

	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)

	return gormDB, mock
}

// setupSQLiteDB returns a migrated in-memory database. A single connection
// keeps every statement on the same in-memory instance.
func setupSQLiteDB(t *testing.T) *gorm.DB {
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
	return db
}

func createUser(t *testing.T, db *gorm.DB, username string, admin bool) *models.User {
	t.Helper()
	u := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Password: "x",
		IsAdmin:  admin,
	}
	require.NoError(t, db.Create(u).Error)
	return u
}

func articleType(t *testing.T, db *gorm.DB) *models.ContentType {
	t.Helper()
	var ct models.ContentType
	require.NoError(t, db.Where(models.ContentType{Name: models.ContentTypeArticle}).
		Attrs(models.ContentType{Label: "Article"}).
		FirstOrCreate(&ct).Error)
	return &ct
}

var contentSeq int

func createContent(t *testing.T, db *gorm.DB, author *models.User, published bool) *models.Content {
	t.Helper()
	contentSeq++
	c := &models.Content{
		Title:         fmt.Sprintf("Item %d", contentSeq),
		Slug:          fmt.Sprintf("item-%d-%d", contentSeq, time.Now().UnixNano()),
		Body:          "body",
		ContentTypeID: articleType(t, db).ID,
		AuthorID:      author.ID,
		AuthorName:    author.Username,
		Published:     published,
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

// createComment inserts a comment row directly, bypassing the counter, with
// an explicit timestamp so ordering is deterministic.
func createComment(t *testing.T, db *gorm.DB, content *models.Content, user *models.User, parent *models.Comment, at time.Time, status models.CommentStatus) *models.Comment {
	t.Helper()
	c := &models.Comment{
		ContentID: content.ID,
		UserID:    user.ID,
		Body:      "comment",
		Status:    status,
		CreatedAt: at,
		UpdatedAt: at,
	}
	if parent != nil {
		c.ParentID = &parent.ID
	}
	require.NoError(t, db.Create(c).Error)
	return c
}

func reloadContent(t *testing.T, db *gorm.DB, id uint) models.Content {
	t.Helper()
	var c models.Content
	require.NoError(t, db.First(&c, id).Error)
	return c
}

func reloadComment(t *testing.T, db *gorm.DB, id uint) models.Comment {
	t.Helper()
	var c models.Comment
	require.NoError(t, db.First(&c, id).Error)
	return c
}

func countRows(t *testing.T, db *gorm.DB, model interface{}, where string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(model).Where(where, args...).Count(&n).Error)
	return n
}
