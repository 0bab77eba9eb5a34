package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStubCommentService(commentRepo *commentRepoStub, contentRepo *contentRepoStub, engagementRepo *engagementRepoStub, isAdmin AdminChecker) *CommentService {
	return NewCommentService(commentRepo, contentRepo, noopUserRepo(), engagementRepo, isAdmin, DefaultCommentPolicy)
}

func TestCommentService_PostComment_Validation(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("blank body", func(t *testing.T) {
		t.Parallel()
		svc := newStubCommentService(noopCommentRepo(), noopContentRepo(), noopEngagementRepo(), nil)
		_, err := svc.PostComment(ctx, PostCommentInput{ContentID: 1, UserID: 1, Body: "  \n\t "})
		assertValidationError(t, err)
	})

	t.Run("body too long", func(t *testing.T) {
		t.Parallel()
		svc := newStubCommentService(noopCommentRepo(), noopContentRepo(), noopEngagementRepo(), nil)
		_, err := svc.PostComment(ctx, PostCommentInput{ContentID: 1, UserID: 1, Body: strings.Repeat("é", maxCommentLen+1)})
		assertValidationError(t, err)
	})

	t.Run("multibyte body at the limit is accepted", func(t *testing.T) {
		t.Parallel()
		svc := newStubCommentService(noopCommentRepo(), noopContentRepo(), noopEngagementRepo(), nil)
		_, err := svc.PostComment(ctx, PostCommentInput{ContentID: 1, UserID: 1, Body: strings.Repeat("é", maxCommentLen)})
		assert.NoError(t, err)
	})

	t.Run("unknown content", func(t *testing.T) {
		t.Parallel()
		contentRepo := noopContentRepo()
		contentRepo.existsFn = func(_ context.Context, _ uint) (bool, error) { return false, nil }
		svc := newStubCommentService(noopCommentRepo(), contentRepo, noopEngagementRepo(), nil)
		_, err := svc.PostComment(ctx, PostCommentInput{ContentID: 9, UserID: 1, Body: "hi"})
		assertNotFoundError(t, err)
	})

	t.Run("missing parent", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		svc := newStubCommentService(commentRepo, noopContentRepo(), noopEngagementRepo(), nil)
		parent := uint(5)
		_, err := svc.PostComment(ctx, PostCommentInput{ContentID: 1, UserID: 1, Body: "hi", ParentID: &parent})
		assertValidationError(t, err)
	})

	t.Run("parent on other content", func(t *testing.T) {
		t.Parallel()
		commentRepo := noopCommentRepo()
		commentRepo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, ContentID: 2}, nil
		}
		created := false
		commentRepo.createFn = func(_ context.Context, _ *models.Comment) error {
			created = true
			return nil
		}
		svc := newStubCommentService(commentRepo, noopContentRepo(), noopEngagementRepo(), nil)
		parent := uint(5)
		_, err := svc.PostComment(ctx, PostCommentInput{ContentID: 1, UserID: 1, Body: "hi", ParentID: &parent})
		assertValidationError(t, err)
		assert.False(t, created)
	})

	t.Run("store failure propagates", func(t *testing.T) {
		t.Parallel()
		storeErr := models.NewStoreUnavailableError(errors.New("dial tcp"))
		contentRepo := noopContentRepo()
		contentRepo.existsFn = func(_ context.Context, _ uint) (bool, error) { return false, storeErr }
		svc := newStubCommentService(noopCommentRepo(), contentRepo, noopEngagementRepo(), nil)
		_, err := svc.PostComment(ctx, PostCommentInput{ContentID: 1, UserID: 1, Body: "hi"})
		assert.ErrorIs(t, err, storeErr)
	})
}

func TestCommentService_PostComment_SnapshotAndModeration(t *testing.T) {
	t.Parallel()

	for _, tt := range []struct {
		mode models.ModerationMode
		want models.CommentStatus
	}{
		{models.ModerationAuto, models.CommentStatusApproved},
		{models.ModerationManual, models.CommentStatusPending},
	} {
		t.Run(string(tt.mode), func(t *testing.T) {
			t.Parallel()
			var stored *models.Comment
			commentRepo := noopCommentRepo()
			commentRepo.createFn = func(_ context.Context, c *models.Comment) error {
				c.ID = 42
				stored = c
				return nil
			}
			svc := NewCommentService(commentRepo, noopContentRepo(), noopUserRepo(), noopEngagementRepo(), nil,
				CommentPolicy{Moderation: tt.mode, Delete: models.DeleteOrphan})

			c, err := svc.PostComment(context.Background(), PostCommentInput{ContentID: 1, UserID: 7, Body: "  hello  "})
			require.NoError(t, err)
			require.NotNil(t, stored)
			assert.Equal(t, uint(42), c.ID)
			assert.Equal(t, "hello", c.Body)
			assert.Equal(t, "reader", c.AuthorName)
			assert.Equal(t, "a.png", c.AuthorAvatar)
			assert.Equal(t, tt.want, c.Status)
			assert.Nil(t, c.ParentID)
		})
	}
}

func TestCommentService_EditComment_Permissions(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	owned := func() *commentRepoStub {
		repo := noopCommentRepo()
		body := "old"
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return &models.Comment{ID: id, UserID: 10, Body: body, Status: models.CommentStatusPending}, nil
		}
		repo.updateBodyFn = func(_ context.Context, _ *models.Comment, b string) error {
			body = b
			return nil
		}
		return repo
	}

	t.Run("not found comes before permission", func(t *testing.T) {
		t.Parallel()
		repo := noopCommentRepo()
		repo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
			return nil, models.NewNotFoundError("Comment", id)
		}
		svc := newStubCommentService(repo, noopContentRepo(), noopEngagementRepo(), nil)
		_, err := svc.EditComment(ctx, EditCommentInput{CommentID: 1, EditorID: 99, Body: "x"})
		assertNotFoundError(t, err)
	})

	t.Run("stranger is forbidden regardless of status", func(t *testing.T) {
		t.Parallel()
		svc := newStubCommentService(owned(), noopContentRepo(), noopEngagementRepo(), adminIDs(1))
		_, err := svc.EditComment(ctx, EditCommentInput{CommentID: 1, EditorID: 99, Body: "x"})
		assertForbiddenError(t, err)
	})

	t.Run("forbidden before body validation", func(t *testing.T) {
		t.Parallel()
		svc := newStubCommentService(owned(), noopContentRepo(), noopEngagementRepo(), nil)
		_, err := svc.EditComment(ctx, EditCommentInput{CommentID: 1, EditorID: 99, Body: ""})
		assertForbiddenError(t, err)
	})

	t.Run("author with blank body", func(t *testing.T) {
		t.Parallel()
		svc := newStubCommentService(owned(), noopContentRepo(), noopEngagementRepo(), nil)
		_, err := svc.EditComment(ctx, EditCommentInput{CommentID: 1, EditorID: 10, Body: " "})
		assertValidationError(t, err)
	})

	t.Run("author edits", func(t *testing.T) {
		t.Parallel()
		svc := newStubCommentService(owned(), noopContentRepo(), noopEngagementRepo(), nil)
		c, err := svc.EditComment(ctx, EditCommentInput{CommentID: 1, EditorID: 10, Body: " new "})
		require.NoError(t, err)
		assert.Equal(t, "new", c.Body)
		assert.Equal(t, models.CommentStatusPending, c.Status)
	})

	t.Run("admin edits", func(t *testing.T) {
		t.Parallel()
		svc := newStubCommentService(owned(), noopContentRepo(), noopEngagementRepo(), adminIDs(1))
		c, err := svc.EditComment(ctx, EditCommentInput{CommentID: 1, EditorID: 1, Body: "moderated"})
		require.NoError(t, err)
		assert.Equal(t, "moderated", c.Body)
	})

	t.Run("admin lookup failure propagates", func(t *testing.T) {
		t.Parallel()
		lookupErr := errors.New("admin lookup failed")
		svc := newStubCommentService(owned(), noopContentRepo(), noopEngagementRepo(),
			func(_ context.Context, _ uint) (bool, error) { return false, lookupErr })
		_, err := svc.EditComment(ctx, EditCommentInput{CommentID: 1, EditorID: 2, Body: "x"})
		assert.ErrorIs(t, err, lookupErr)
	})
}

func TestCommentService_DeleteComment_UsesPolicy(t *testing.T) {
	t.Parallel()

	var gotPolicy models.CommentDeletePolicy
	repo := noopCommentRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		return &models.Comment{ID: id, UserID: 3}, nil
	}
	repo.deleteFn = func(_ context.Context, _ *models.Comment, p models.CommentDeletePolicy) (int64, error) {
		gotPolicy = p
		return 4, nil
	}
	svc := NewCommentService(repo, noopContentRepo(), noopUserRepo(), noopEngagementRepo(), nil,
		CommentPolicy{Moderation: models.ModerationAuto, Delete: models.DeleteCascade})

	_, err := svc.DeleteComment(context.Background(), DeleteCommentInput{CommentID: 8, RequesterID: 4})
	assertForbiddenError(t, err)
	assert.Empty(t, gotPolicy)

	c, err := svc.DeleteComment(context.Background(), DeleteCommentInput{CommentID: 8, RequesterID: 3})
	require.NoError(t, err)
	assert.Equal(t, uint(8), c.ID)
	assert.Equal(t, models.DeleteCascade, gotPolicy)
}

func TestNewCommentService_DefaultsPolicy(t *testing.T) {
	t.Parallel()
	svc := NewCommentService(noopCommentRepo(), noopContentRepo(), noopUserRepo(), noopEngagementRepo(), nil, CommentPolicy{Delete: "shred"})
	assert.Equal(t, DefaultCommentPolicy, svc.Policy())
}

func TestCommentService_GetThread_SingleLikeLookup(t *testing.T) {
	t.Parallel()

	at := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	one, two := uint(1), uint(2)
	rows := []*models.Comment{
		{ID: 1, CreatedAt: at},
		{ID: 2, ParentID: &one, CreatedAt: at.Add(time.Minute)},
		{ID: 3, ParentID: &two, CreatedAt: at.Add(2 * time.Minute)},
		{ID: 4, CreatedAt: at.Add(3 * time.Minute)},
	}
	repo := noopCommentRepo()
	repo.listThreadFn = func(_ context.Context, _ uint) ([]*models.Comment, error) { return rows, nil }

	calls := 0
	engagement := noopEngagementRepo()
	engagement.activeFn = func(_ context.Context, kind models.EngagementKind, target models.TargetType, userID uint, ids []uint) ([]uint, error) {
		calls++
		assert.Equal(t, models.KindLike, kind)
		assert.Equal(t, models.TargetComment, target)
		assert.Equal(t, uint(77), userID)
		assert.ElementsMatch(t, []uint{1, 2, 3, 4}, ids)
		return []uint{3}, nil
	}
	svc := newStubCommentService(repo, noopContentRepo(), engagement, nil)

	forest, err := svc.GetThread(context.Background(), 1, 77)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	require.Len(t, forest, 2)
	assert.Equal(t, uint(4), forest[0].ID)
	deep := forest[1].Replies[0].Replies[0]
	assert.Equal(t, uint(3), deep.ID)
	require.NotNil(t, deep.IsLiked)
	assert.True(t, *deep.IsLiked)

	anon, err := svc.GetThread(context.Background(), 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Nil(t, anon[0].IsLiked)
}

func TestCommentService_SetCommentStatus(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	var written models.CommentStatus
	repo := noopCommentRepo()
	repo.getByIDFn = func(_ context.Context, id uint) (*models.Comment, error) {
		return &models.Comment{ID: id, Status: models.CommentStatusPending}, nil
	}
	repo.setStatusFn = func(_ context.Context, _ *models.Comment, s models.CommentStatus) error {
		written = s
		return nil
	}
	svc := newStubCommentService(repo, noopContentRepo(), noopEngagementRepo(), adminIDs(1))

	_, err := svc.SetCommentStatus(ctx, SetCommentStatusInput{CommentID: 5, ModeratorID: 2, Status: models.CommentStatusApproved})
	assertForbiddenError(t, err)

	_, err = svc.SetCommentStatus(ctx, SetCommentStatusInput{CommentID: 5, ModeratorID: 1, Status: "spam"})
	assertValidationError(t, err)

	c, err := svc.SetCommentStatus(ctx, SetCommentStatusInput{CommentID: 5, ModeratorID: 1, Status: models.CommentStatusRejected})
	require.NoError(t, err)
	assert.Equal(t, models.CommentStatusRejected, c.Status)
	assert.Equal(t, models.CommentStatusRejected, written)
}
