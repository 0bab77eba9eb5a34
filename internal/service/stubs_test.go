package service

import (
	"context"
	"errors"
	"testing"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// commentRepoStub is a stub for repository.CommentRepository.
type commentRepoStub struct {
	createFn       func(context.Context, *models.Comment) error
	getByIDFn      func(context.Context, uint) (*models.Comment, error)
	listThreadFn   func(context.Context, uint) ([]*models.Comment, error)
	listByStatusFn func(context.Context, models.CommentStatus, int, int) ([]*models.Comment, error)
	updateBodyFn   func(context.Context, *models.Comment, string) error
	setStatusFn    func(context.Context, *models.Comment, models.CommentStatus) error
	deleteFn       func(context.Context, *models.Comment, models.CommentDeletePolicy) (int64, error)
}

func (s *commentRepoStub) Create(ctx context.Context, c *models.Comment) error {
	return s.createFn(ctx, c)
}
func (s *commentRepoStub) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	return s.getByIDFn(ctx, id)
}
func (s *commentRepoStub) ListThread(ctx context.Context, contentID uint) ([]*models.Comment, error) {
	return s.listThreadFn(ctx, contentID)
}
func (s *commentRepoStub) ListByStatus(ctx context.Context, status models.CommentStatus, limit, offset int) ([]*models.Comment, error) {
	return s.listByStatusFn(ctx, status, limit, offset)
}
func (s *commentRepoStub) UpdateBody(ctx context.Context, c *models.Comment, body string) error {
	return s.updateBodyFn(ctx, c, body)
}
func (s *commentRepoStub) SetStatus(ctx context.Context, c *models.Comment, status models.CommentStatus) error {
	return s.setStatusFn(ctx, c, status)
}
func (s *commentRepoStub) Delete(ctx context.Context, c *models.Comment, policy models.CommentDeletePolicy) (int64, error) {
	return s.deleteFn(ctx, c, policy)
}

func noopCommentRepo() *commentRepoStub {
	return &commentRepoStub{
		createFn:  func(_ context.Context, _ *models.Comment) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Comment, error) { return &models.Comment{ID: id}, nil },
		listThreadFn: func(_ context.Context, _ uint) ([]*models.Comment, error) {
			return nil, nil
		},
		listByStatusFn: func(_ context.Context, _ models.CommentStatus, _, _ int) ([]*models.Comment, error) {
			return nil, nil
		},
		updateBodyFn: func(_ context.Context, _ *models.Comment, _ string) error { return nil },
		setStatusFn:  func(_ context.Context, _ *models.Comment, _ models.CommentStatus) error { return nil },
		deleteFn: func(_ context.Context, _ *models.Comment, _ models.CommentDeletePolicy) (int64, error) {
			return 1, nil
		},
	}
}

// contentRepoStub is a stub for repository.ContentRepository.
type contentRepoStub struct {
	createFn         func(context.Context, *models.Content) error
	getByIDFn        func(context.Context, uint) (*models.Content, error)
	getBySlugFn      func(context.Context, string) (*models.Content, error)
	getByIDsFn       func(context.Context, []uint) ([]*models.Content, error)
	existsFn         func(context.Context, uint) (bool, error)
	listFn           func(context.Context, repository.ContentFilter) ([]*models.Content, error)
	candidatesFn     func(context.Context, uint) ([]*models.Content, error)
	incrementViewsFn func(context.Context, uint) error
	deleteFn         func(context.Context, uint) error
}

func (s *contentRepoStub) Create(ctx context.Context, c *models.Content) error {
	return s.createFn(ctx, c)
}
func (s *contentRepoStub) GetByID(ctx context.Context, id uint) (*models.Content, error) {
	return s.getByIDFn(ctx, id)
}
func (s *contentRepoStub) GetBySlug(ctx context.Context, slug string) (*models.Content, error) {
	return s.getBySlugFn(ctx, slug)
}
func (s *contentRepoStub) GetByIDs(ctx context.Context, ids []uint) ([]*models.Content, error) {
	return s.getByIDsFn(ctx, ids)
}
func (s *contentRepoStub) Exists(ctx context.Context, id uint) (bool, error) {
	return s.existsFn(ctx, id)
}
func (s *contentRepoStub) List(ctx context.Context, f repository.ContentFilter) ([]*models.Content, error) {
	return s.listFn(ctx, f)
}
func (s *contentRepoStub) ListPublishedCandidates(ctx context.Context, excludeID uint) ([]*models.Content, error) {
	return s.candidatesFn(ctx, excludeID)
}
func (s *contentRepoStub) IncrementViews(ctx context.Context, id uint) error {
	return s.incrementViewsFn(ctx, id)
}
func (s *contentRepoStub) Delete(ctx context.Context, id uint) error {
	return s.deleteFn(ctx, id)
}

func noopContentRepo() *contentRepoStub {
	return &contentRepoStub{
		createFn:  func(_ context.Context, _ *models.Content) error { return nil },
		getByIDFn: func(_ context.Context, id uint) (*models.Content, error) { return &models.Content{ID: id, Published: true}, nil },
		getBySlugFn: func(_ context.Context, _ string) (*models.Content, error) {
			return &models.Content{Published: true}, nil
		},
		getByIDsFn:       func(_ context.Context, _ []uint) ([]*models.Content, error) { return nil, nil },
		existsFn:         func(_ context.Context, _ uint) (bool, error) { return true, nil },
		listFn:           func(_ context.Context, _ repository.ContentFilter) ([]*models.Content, error) { return nil, nil },
		candidatesFn:     func(_ context.Context, _ uint) ([]*models.Content, error) { return nil, nil },
		incrementViewsFn: func(_ context.Context, _ uint) error { return nil },
		deleteFn:         func(_ context.Context, _ uint) error { return nil },
	}
}

// userRepoStub is a stub for repository.UserRepository.
type userRepoStub struct {
	getByIDFn func(context.Context, uint) (*models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id uint) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return nil, models.NewNotFoundError("User", username)
}
func (s *userRepoStub) Create(_ context.Context, _ *models.User) error { return nil }
func (s *userRepoStub) IsAdmin(_ context.Context, _ uint) (bool, error) {
	return false, nil
}

func noopUserRepo() *userRepoStub {
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id uint) (*models.User, error) {
			return &models.User{ID: id, Username: "reader", Avatar: "a.png"}, nil
		},
	}
}

// engagementRepoStub is a stub for repository.EngagementRepository.
type engagementRepoStub struct {
	toggleFn    func(context.Context, models.EngagementKind, models.TargetType, uint, uint) (bool, error)
	activeFn    func(context.Context, models.EngagementKind, models.TargetType, uint, []uint) ([]uint, error)
	reconcileFn func(context.Context) (models.ReconcileReport, error)
}

func (s *engagementRepoStub) Toggle(ctx context.Context, kind models.EngagementKind, target models.TargetType, userID, targetID uint) (bool, error) {
	return s.toggleFn(ctx, kind, target, userID, targetID)
}
func (s *engagementRepoStub) ActiveTargetIDs(ctx context.Context, kind models.EngagementKind, target models.TargetType, userID uint, ids []uint) ([]uint, error) {
	return s.activeFn(ctx, kind, target, userID, ids)
}
func (s *engagementRepoStub) ReconcileCounters(ctx context.Context) (models.ReconcileReport, error) {
	return s.reconcileFn(ctx)
}

func noopEngagementRepo() *engagementRepoStub {
	return &engagementRepoStub{
		toggleFn: func(_ context.Context, _ models.EngagementKind, _ models.TargetType, _, _ uint) (bool, error) {
			return true, nil
		},
		activeFn: func(_ context.Context, _ models.EngagementKind, _ models.TargetType, _ uint, _ []uint) ([]uint, error) {
			return nil, nil
		},
		reconcileFn: func(_ context.Context) (models.ReconcileReport, error) { return models.ReconcileReport{}, nil },
	}
}

func adminIDs(ids ...uint) AdminChecker {
	return func(_ context.Context, userID uint) (bool, error) {
		for _, id := range ids {
			if id == userID {
				return true, nil
			}
		}
		return false, nil
	}
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}

func assertForbiddenError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeForbidden)
}

func assertNotFoundError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeNotFound)
}
