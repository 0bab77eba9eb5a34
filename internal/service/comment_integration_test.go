package service

import (
	"context"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type commentEnv struct {
	db      *gorm.DB
	svc     *CommentService
	author  *models.User
	other   *models.User
	admin   *models.User
	content *models.Content
}

func newCommentEnv(t *testing.T, policy CommentPolicy) *commentEnv {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	userRepo := repository.NewUserRepository(db)
	env := &commentEnv{
		db:     db,
		author: testutil.CreateUser(t, db, "author", false),
		other:  testutil.CreateUser(t, db, "other", false),
		admin:  testutil.CreateUser(t, db, "admin", true),
	}
	env.content = testutil.CreateContent(t, db, env.author)
	env.svc = NewCommentService(
		repository.NewCommentRepository(db),
		repository.NewContentRepository(db),
		userRepo,
		repository.NewEngagementRepository(db),
		userRepo.IsAdmin,
		policy,
	)
	return env
}

func (e *commentEnv) post(t *testing.T, user *models.User, parent *models.Comment) *models.Comment {
	t.Helper()
	in := PostCommentInput{ContentID: e.content.ID, UserID: user.ID, Body: "hello"}
	if parent != nil {
		in.ParentID = &parent.ID
	}
	c, err := e.svc.PostComment(context.Background(), in)
	require.NoError(t, err)
	return c
}

func (e *commentEnv) commentsCount(t *testing.T) int {
	t.Helper()
	return testutil.ReloadContent(t, e.db, e.content.ID).CommentsCount
}

func (e *commentEnv) rows(t *testing.T) int64 {
	t.Helper()
	return testutil.Count(t, e.db, &models.Comment{}, "content_id = ?", e.content.ID)
}

func flatten(nodes []*models.ThreadNode) []uint {
	var out []uint
	for _, n := range nodes {
		out = append(out, n.ID)
		out = append(out, flatten(n.Replies)...)
	}
	return out
}

func TestCommentThread_OrphanDeleteScenario(t *testing.T) {
	env := newCommentEnv(t, DefaultCommentPolicy)
	ctx := context.Background()

	first := env.post(t, env.author, nil)
	second := env.post(t, env.other, nil)
	third := env.post(t, env.author, nil)
	r1 := env.post(t, env.author, second)
	r2 := env.post(t, env.other, second)
	require.Equal(t, 5, env.commentsCount(t))

	_, err := env.svc.DeleteComment(ctx, DeleteCommentInput{CommentID: second.ID, RequesterID: env.other.ID})
	require.NoError(t, err)

	assert.Equal(t, 4, env.commentsCount(t))
	assert.EqualValues(t, 4, env.rows(t))

	var dangling models.Comment
	require.NoError(t, env.db.First(&dangling, r1.ID).Error)
	require.NotNil(t, dangling.ParentID)
	assert.Equal(t, second.ID, *dangling.ParentID)

	forest, err := env.svc.GetThread(ctx, env.content.ID, 0)
	require.NoError(t, err)
	ids := flatten(forest)
	assert.ElementsMatch(t, []uint{first.ID, third.ID}, ids)
	assert.NotContains(t, ids, r1.ID)
	assert.NotContains(t, ids, r2.ID)
}

func TestCommentThread_ReparentAndCascade(t *testing.T) {
	t.Run("reparent", func(t *testing.T) {
		env := newCommentEnv(t, CommentPolicy{Moderation: models.ModerationAuto, Delete: models.DeleteReparent})
		root := env.post(t, env.author, nil)
		mid := env.post(t, env.other, root)
		leaf := env.post(t, env.author, mid)

		_, err := env.svc.DeleteComment(context.Background(), DeleteCommentInput{CommentID: mid.ID, RequesterID: env.admin.ID})
		require.NoError(t, err)
		assert.Equal(t, 2, env.commentsCount(t))

		forest, err := env.svc.GetThread(context.Background(), env.content.ID, 0)
		require.NoError(t, err)
		require.Len(t, forest, 1)
		require.Len(t, forest[0].Replies, 1)
		assert.Equal(t, leaf.ID, forest[0].Replies[0].ID)
	})

	t.Run("cascade", func(t *testing.T) {
		env := newCommentEnv(t, CommentPolicy{Moderation: models.ModerationAuto, Delete: models.DeleteCascade})
		keep := env.post(t, env.author, nil)
		root := env.post(t, env.other, nil)
		mid := env.post(t, env.author, root)
		leaf := env.post(t, env.other, mid)
		_, err := env.svc.ToggleCommentLike(context.Background(), leaf.ID, env.author.ID)
		require.NoError(t, err)

		_, err = env.svc.DeleteComment(context.Background(), DeleteCommentInput{CommentID: root.ID, RequesterID: env.other.ID})
		require.NoError(t, err)

		assert.Equal(t, 1, env.commentsCount(t))
		assert.EqualValues(t, 1, env.rows(t))
		assert.EqualValues(t, 0, testutil.Count(t, env.db, &models.CommentLike{}, "comment_id = ?", leaf.ID))

		forest, err := env.svc.GetThread(context.Background(), env.content.ID, 0)
		require.NoError(t, err)
		assert.Equal(t, []uint{keep.ID}, flatten(forest))
	})
}

func TestCommentThread_CounterConsistencyAcrossPostsAndDeletes(t *testing.T) {
	env := newCommentEnv(t, DefaultCommentPolicy)
	ctx := context.Background()

	var live []*models.Comment
	for i := 0; i < 6; i++ {
		var parent *models.Comment
		if i%2 == 1 {
			parent = live[len(live)-1]
		}
		live = append(live, env.post(t, env.author, parent))
	}
	for _, c := range []*models.Comment{live[1], live[4]} {
		_, err := env.svc.DeleteComment(ctx, DeleteCommentInput{CommentID: c.ID, RequesterID: env.author.ID})
		require.NoError(t, err)
	}

	assert.EqualValues(t, env.rows(t), env.commentsCount(t))

	_, err := env.svc.DeleteComment(ctx, DeleteCommentInput{CommentID: live[1].ID, RequesterID: env.author.ID})
	assertNotFoundError(t, err)
	assert.EqualValues(t, env.rows(t), env.commentsCount(t))
}

func TestCommentThread_ViewerLikesAndOrdering(t *testing.T) {
	env := newCommentEnv(t, DefaultCommentPolicy)
	ctx := context.Background()
	base := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	older := testutil.CreateComment(t, env.db, env.content, env.author, nil, base)
	newer := testutil.CreateComment(t, env.db, env.content, env.other, nil, base.Add(time.Hour))
	lateReply := testutil.CreateComment(t, env.db, env.content, env.other, older, base.Add(3*time.Hour))
	earlyReply := testutil.CreateComment(t, env.db, env.content, env.author, older, base.Add(2*time.Hour))

	liked, err := env.svc.ToggleCommentLike(ctx, lateReply.ID, env.admin.ID)
	require.NoError(t, err)
	assert.True(t, liked)

	forest, err := env.svc.GetThread(ctx, env.content.ID, env.admin.ID)
	require.NoError(t, err)
	require.Len(t, forest, 2)
	assert.Equal(t, newer.ID, forest[0].ID)
	assert.Equal(t, older.ID, forest[1].ID)
	require.Len(t, forest[1].Replies, 2)
	assert.Equal(t, earlyReply.ID, forest[1].Replies[0].ID)
	assert.Equal(t, lateReply.ID, forest[1].Replies[1].ID)
	assert.False(t, *forest[1].Replies[0].IsLiked)
	assert.True(t, *forest[1].Replies[1].IsLiked)
	assert.Equal(t, 1, forest[1].Replies[1].Likes)

	liked, err = env.svc.ToggleCommentLike(ctx, lateReply.ID, env.admin.ID)
	require.NoError(t, err)
	assert.False(t, liked)
	var reloaded models.Comment
	require.NoError(t, env.db.First(&reloaded, lateReply.ID).Error)
	assert.Equal(t, 0, reloaded.Likes)
}

func TestCommentThread_UnknownContentIsEmpty(t *testing.T) {
	env := newCommentEnv(t, DefaultCommentPolicy)
	forest, err := env.svc.GetThread(context.Background(), 999999, env.author.ID)
	require.NoError(t, err)
	assert.Empty(t, forest)
}

func TestCommentThread_ManualModeration(t *testing.T) {
	env := newCommentEnv(t, CommentPolicy{Moderation: models.ModerationManual, Delete: models.DeleteOrphan})
	ctx := context.Background()

	c := env.post(t, env.other, nil)
	assert.Equal(t, models.CommentStatusPending, c.Status)
	assert.Equal(t, 1, env.commentsCount(t))

	forest, err := env.svc.GetThread(ctx, env.content.ID, 0)
	require.NoError(t, err)
	assert.Empty(t, forest)

	pending, err := env.svc.ListPending(ctx, env.admin.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, c.ID, pending[0].ID)

	_, err = env.svc.SetCommentStatus(ctx, SetCommentStatusInput{CommentID: c.ID, ModeratorID: env.admin.ID, Status: models.CommentStatusApproved})
	require.NoError(t, err)

	forest, err = env.svc.GetThread(ctx, env.content.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []uint{c.ID}, flatten(forest))

	// only the comment author may edit, whatever its status
	_, err = env.svc.SetCommentStatus(ctx, SetCommentStatusInput{CommentID: c.ID, ModeratorID: env.admin.ID, Status: models.CommentStatusRejected})
	require.NoError(t, err)
	_, err = env.svc.EditComment(ctx, EditCommentInput{CommentID: c.ID, EditorID: env.author.ID, Body: "nope"})
	assertForbiddenError(t, err)
	edited, err := env.svc.EditComment(ctx, EditCommentInput{CommentID: c.ID, EditorID: env.other.ID, Body: "fixed"})
	require.NoError(t, err)
	assert.Equal(t, "fixed", edited.Body)
	assert.Equal(t, models.CommentStatusRejected, edited.Status)
}
