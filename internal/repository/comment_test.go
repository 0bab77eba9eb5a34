package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// threadFixture builds:
//
//	content
//	├── a (approved)
//	│   └── a1 (approved)
//	│       └── a1x (approved)
//	├── b (approved)
//	│   ├── b1 (approved)
//	│   └── b2 (approved)
//	├── c (pending)
//	│   └── c1 (approved, unreachable)
//	└── other content's comment
type threadFixture struct {
	db                        *gorm.DB
	author, reader            *models.User
	content, other            *models.Content
	a, a1, a1x, b, b1, b2, c1 *models.Comment
	c                         *models.Comment
}

func newThreadFixture(t *testing.T) *threadFixture {
	db := setupSQLiteDB(t)
	f := &threadFixture{db: db}
	f.author = createUser(t, db, "author", false)
	f.reader = createUser(t, db, "reader", false)
	f.content = createContent(t, db, f.author, true)
	f.other = createContent(t, db, f.author, true)

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	at := func(m int) time.Time { return base.Add(time.Duration(m) * time.Minute) }
	ok := models.CommentStatusApproved

	f.a = createComment(t, db, f.content, f.reader, nil, at(1), ok)
	f.a1 = createComment(t, db, f.content, f.author, f.a, at(2), ok)
	f.a1x = createComment(t, db, f.content, f.reader, f.a1, at(3), ok)
	f.b = createComment(t, db, f.content, f.reader, nil, at(4), ok)
	f.b1 = createComment(t, db, f.content, f.author, f.b, at(5), ok)
	f.b2 = createComment(t, db, f.content, f.reader, f.b, at(6), ok)
	f.c = createComment(t, db, f.content, f.reader, nil, at(7), models.CommentStatusPending)
	f.c1 = createComment(t, db, f.content, f.author, f.c, at(8), ok)
	createComment(t, db, f.other, f.reader, nil, at(9), ok)

	// counters as if every row had gone through Create
	require.NoError(t, db.Model(&models.Content{}).Where("id = ?", f.content.ID).UpdateColumn("comments_count", 8).Error)
	require.NoError(t, db.Model(&models.Content{}).Where("id = ?", f.other.ID).UpdateColumn("comments_count", 1).Error)
	return f
}

func ids(comments []*models.Comment) []uint {
	out := make([]uint, len(comments))
	for i, c := range comments {
		out[i] = c.ID
	}
	return out
}

func TestCommentRepository_ListThread(t *testing.T) {
	f := newThreadFixture(t)
	repo := NewCommentRepository(f.db)

	got, err := repo.ListThread(context.Background(), f.content.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.a.ID, f.a1.ID, f.a1x.ID, f.b.ID, f.b1.ID, f.b2.ID}, ids(got))

	empty, err := repo.ListThread(context.Background(), 999)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestCommentRepository_CreateBumpsCounter(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewCommentRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author", false)
	content := createContent(t, db, author, true)

	for i := 0; i < 3; i++ {
		require.NoError(t, repo.Create(ctx, &models.Comment{ContentID: content.ID, UserID: author.ID, Body: "x", Status: models.CommentStatusApproved}))
	}
	assert.Equal(t, 3, reloadContent(t, db, content.ID).CommentsCount)

	err := repo.Create(ctx, &models.Comment{ContentID: 9999, UserID: author.ID, Body: "x"})
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Zero(t, countRows(t, db, &models.Comment{}, "content_id = ?", 9999), "row must roll back with the counter")
}

func TestCommentRepository_DeleteOrphan(t *testing.T) {
	f := newThreadFixture(t)
	repo := NewCommentRepository(f.db)
	eng := NewEngagementRepository(f.db)
	ctx := context.Background()

	_, err := eng.Toggle(ctx, models.KindLike, models.TargetComment, f.author.ID, f.b.ID)
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, f.b, models.DeleteOrphan)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 7, reloadContent(t, f.db, f.content.ID).CommentsCount)
	assert.Zero(t, countRows(t, f.db, &models.CommentLike{}, "comment_id = ?", f.b.ID))

	// replies survive with a dangling parent and drop out of the thread
	b1 := reloadComment(t, f.db, f.b1.ID)
	require.NotNil(t, b1.ParentID)
	assert.Equal(t, f.b.ID, *b1.ParentID)

	got, err := repo.ListThread(ctx, f.content.ID)
	require.NoError(t, err)
	assert.Equal(t, []uint{f.a.ID, f.a1.ID, f.a1x.ID}, ids(got))

	_, err = repo.Delete(ctx, f.b, models.DeleteOrphan)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Equal(t, 7, reloadContent(t, f.db, f.content.ID).CommentsCount)
}

func TestCommentRepository_DeleteCascade(t *testing.T) {
	f := newThreadFixture(t)
	repo := NewCommentRepository(f.db)
	eng := NewEngagementRepository(f.db)
	ctx := context.Background()

	_, err := eng.Toggle(ctx, models.KindLike, models.TargetComment, f.author.ID, f.a1x.ID)
	require.NoError(t, err)

	removed, err := repo.Delete(ctx, f.a, models.DeleteCascade)
	require.NoError(t, err)
	assert.Equal(t, int64(3), removed)
	assert.Equal(t, 5, reloadContent(t, f.db, f.content.ID).CommentsCount)
	assert.Zero(t, countRows(t, f.db, &models.Comment{}, "id IN ?", []uint{f.a.ID, f.a1.ID, f.a1x.ID}))
	assert.Zero(t, countRows(t, f.db, &models.CommentLike{}, "1 = 1"))
}

func TestCommentRepository_DeleteReparent(t *testing.T) {
	f := newThreadFixture(t)
	repo := NewCommentRepository(f.db)
	ctx := context.Background()

	removed, err := repo.Delete(ctx, f.a1, models.DeleteReparent)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
	assert.Equal(t, 7, reloadContent(t, f.db, f.content.ID).CommentsCount)

	a1x := reloadComment(t, f.db, f.a1x.ID)
	require.NotNil(t, a1x.ParentID)
	assert.Equal(t, f.a.ID, *a1x.ParentID)

	// reparenting a top-level comment's replies makes them top-level
	_, err = repo.Delete(ctx, f.b, models.DeleteReparent)
	require.NoError(t, err)
	assert.Nil(t, reloadComment(t, f.db, f.b1.ID).ParentID)

	got, err := repo.ListThread(ctx, f.content.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uint{f.a.ID, f.a1x.ID, f.b1.ID, f.b2.ID}, ids(got))
}

func TestCommentRepository_UpdateBodyAndStatus(t *testing.T) {
	f := newThreadFixture(t)
	repo := NewCommentRepository(f.db)
	ctx := context.Background()

	require.NoError(t, repo.UpdateBody(ctx, f.a, "edited"))
	got := reloadComment(t, f.db, f.a.ID)
	assert.Equal(t, "edited", got.Body)
	assert.Equal(t, models.CommentStatusApproved, got.Status)
	assert.Equal(t, f.a.ParentID, got.ParentID)

	require.NoError(t, repo.SetStatus(ctx, f.c, models.CommentStatusApproved))
	thread, err := repo.ListThread(ctx, f.content.ID)
	require.NoError(t, err)
	assert.Contains(t, ids(thread), f.c1.ID, "approving the parent makes its replies reachable")

	pending, err := repo.ListByStatus(ctx, models.CommentStatusPending, 10, 0)
	require.NoError(t, err)
	assert.Empty(t, pending)

	err = repo.UpdateBody(ctx, &models.Comment{ID: 9999}, "nope")
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestCommentRepository_GetByIDQuery(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "comments" WHERE "comments"."id" = $1`)).
		WithArgs(5, 1).
		WillReturnRows(sqlmock.NewRows([]string{"id", "content_id", "body", "status"}).
			AddRow(5, 2, "hello", "approved"))

	c, err := repo.GetByID(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", c.Body)
	assert.Equal(t, uint(2), c.ContentID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCommentRepository_CreateContentDeletedConcurrently(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewCommentRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "comments"`)).
		WillReturnError(&pgconn.PgError{Code: "23503", Message: "violates foreign key constraint"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Comment{ContentID: 9, UserID: 1, Body: "late"})
	require.Error(t, err)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
