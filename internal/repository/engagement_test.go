package repository

import (
	"context"
	"sync"
	"testing"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngagementRepository_ToggleContentLikeIsInvolution(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author", false)
	reader := createUser(t, db, "reader", false)
	content := createContent(t, db, author, true)

	active, err := repo.Toggle(ctx, models.KindLike, models.TargetContent, reader.ID, content.ID)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, 1, reloadContent(t, db, content.ID).LikesCount)

	active, err = repo.Toggle(ctx, models.KindLike, models.TargetContent, reader.ID, content.ID)
	require.NoError(t, err)
	assert.False(t, active)
	assert.Equal(t, 0, reloadContent(t, db, content.ID).LikesCount)
	assert.Zero(t, countRows(t, db, &models.ContentLike{}, "content_id = ?", content.ID))
}

func TestEngagementRepository_ToggleEachRelation(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author", false)
	reader := createUser(t, db, "reader", false)
	content := createContent(t, db, author, true)
	comment := createComment(t, db, content, author, nil, content.CreatedAt, models.CommentStatusApproved)

	active, err := repo.Toggle(ctx, models.KindBookmark, models.TargetContent, reader.ID, content.ID)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, 1, reloadContent(t, db, content.ID).BookmarksCount)

	active, err = repo.Toggle(ctx, models.KindLike, models.TargetComment, reader.ID, comment.ID)
	require.NoError(t, err)
	assert.True(t, active)
	assert.Equal(t, 1, reloadComment(t, db, comment.ID).Likes)

	// a like does not touch the bookmark counter and vice versa
	c := reloadContent(t, db, content.ID)
	assert.Equal(t, 0, c.LikesCount)
	assert.Equal(t, 1, c.BookmarksCount)
}

func TestEngagementRepository_ToggleRejections(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()
	reader := createUser(t, db, "reader", false)

	_, err := repo.Toggle(ctx, models.KindBookmark, models.TargetComment, reader.ID, 1)
	assert.True(t, models.HasCode(err, models.CodeValidation))

	_, err = repo.Toggle(ctx, models.KindLike, models.TargetContent, reader.ID, 424242)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
	assert.Zero(t, countRows(t, db, &models.ContentLike{}, "1 = 1"))
}

func TestEngagementRepository_ConcurrentTogglesKeepCounterExact(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author", false)
	content := createContent(t, db, author, true)

	const readers = 12
	users := make([]*models.User, readers)
	for i := range users {
		users[i] = createUser(t, db, "reader"+string(rune('a'+i)), false)
	}

	var wg sync.WaitGroup
	errs := make(chan error, readers)
	for _, u := range users {
		wg.Add(1)
		go func(id uint) {
			defer wg.Done()
			if _, err := repo.Toggle(ctx, models.KindLike, models.TargetContent, id, content.ID); err != nil {
				errs <- err
			}
		}(u.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	assert.Equal(t, readers, reloadContent(t, db, content.ID).LikesCount)
	assert.Equal(t, int64(readers), countRows(t, db, &models.ContentLike{}, "content_id = ?", content.ID))
}

func TestEngagementRepository_ActiveTargetIDs(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEngagementRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author", false)
	reader := createUser(t, db, "reader", false)
	content := createContent(t, db, author, true)
	c1 := createComment(t, db, content, author, nil, content.CreatedAt, models.CommentStatusApproved)
	c2 := createComment(t, db, content, author, nil, content.CreatedAt, models.CommentStatusApproved)

	_, err := repo.Toggle(ctx, models.KindLike, models.TargetComment, reader.ID, c2.ID)
	require.NoError(t, err)

	ids, err := repo.ActiveTargetIDs(ctx, models.KindLike, models.TargetComment, reader.ID, []uint{c1.ID, c2.ID})
	require.NoError(t, err)
	assert.Equal(t, []uint{c2.ID}, ids)

	ids, err = repo.ActiveTargetIDs(ctx, models.KindLike, models.TargetComment, 0, []uint{c1.ID})
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestEngagementRepository_ReconcileCounters(t *testing.T) {
	db := setupSQLiteDB(t)
	repo := NewEngagementRepository(db)
	comments := NewCommentRepository(db)
	ctx := context.Background()

	author := createUser(t, db, "author", false)
	reader := createUser(t, db, "reader", false)
	content := createContent(t, db, author, true)
	other := createContent(t, db, author, true)

	comment := &models.Comment{ContentID: content.ID, UserID: reader.ID, Body: "hi", Status: models.CommentStatusApproved}
	require.NoError(t, comments.Create(ctx, comment))
	_, err := repo.Toggle(ctx, models.KindLike, models.TargetContent, reader.ID, content.ID)
	require.NoError(t, err)
	_, err = repo.Toggle(ctx, models.KindLike, models.TargetComment, reader.ID, comment.ID)
	require.NoError(t, err)

	report, err := repo.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Zero(t, report.Total(), "consistent writes must leave nothing to fix")

	// corrupt every counter behind the repository's back
	require.NoError(t, db.Model(&models.Content{}).Where("id = ?", content.ID).
		UpdateColumns(map[string]interface{}{"likes_count": 7, "comments_count": 0, "bookmarks_count": 3}).Error)
	require.NoError(t, db.Model(&models.Content{}).Where("id = ?", other.ID).UpdateColumn("likes_count", 2).Error)
	require.NoError(t, db.Model(&models.Comment{}).Where("id = ?", comment.ID).UpdateColumn("likes", 5).Error)

	report, err = repo.ReconcileCounters(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.ReconcileReport{ContentLikes: 2, ContentComments: 1, ContentBookmarks: 1, CommentLikes: 1}, report)

	fixed := reloadContent(t, db, content.ID)
	assert.Equal(t, 1, fixed.LikesCount)
	assert.Equal(t, 1, fixed.CommentsCount)
	assert.Equal(t, 0, fixed.BookmarksCount)
	assert.Equal(t, 0, reloadContent(t, db, other.ID).LikesCount)
	assert.Equal(t, 1, reloadComment(t, db, comment.ID).Likes)
}
