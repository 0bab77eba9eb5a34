package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
	"inkwell/internal/thread"

	"go.opentelemetry.io/otel/attribute"
)

const maxCommentLen = 10000

// CommentPolicy carries the configurable parts of comment handling.
type CommentPolicy struct {
	Moderation models.ModerationMode
	Delete     models.CommentDeletePolicy
}

// DefaultCommentPolicy auto-approves new comments and orphans replies on delete.
var DefaultCommentPolicy = CommentPolicy{
	Moderation: models.ModerationAuto,
	Delete:     models.DeleteOrphan,
}

type CommentService struct {
	commentRepo    repository.CommentRepository
	contentRepo    repository.ContentRepository
	userRepo       repository.UserRepository
	engagementRepo repository.EngagementRepository
	isAdmin        AdminChecker
	policy         CommentPolicy
}

type PostCommentInput struct {
	ContentID uint
	UserID    uint
	Body      string
	ParentID  *uint
}

type EditCommentInput struct {
	CommentID uint
	EditorID  uint
	Body      string
}

type DeleteCommentInput struct {
	CommentID   uint
	RequesterID uint
}

type SetCommentStatusInput struct {
	CommentID   uint
	ModeratorID uint
	Status      models.CommentStatus
}

func NewCommentService(
	commentRepo repository.CommentRepository,
	contentRepo repository.ContentRepository,
	userRepo repository.UserRepository,
	engagementRepo repository.EngagementRepository,
	isAdmin AdminChecker,
	policy CommentPolicy,
) *CommentService {
	if policy.Moderation == "" {
		policy.Moderation = DefaultCommentPolicy.Moderation
	}
	if !policy.Delete.Valid() {
		policy.Delete = DefaultCommentPolicy.Delete
	}
	return &CommentService{
		commentRepo:    commentRepo,
		contentRepo:    contentRepo,
		userRepo:       userRepo,
		engagementRepo: engagementRepo,
		isAdmin:        isAdmin,
		policy:         policy,
	}
}

// Policy returns the policy the service was built with, defaults applied.
func (s *CommentService) Policy() CommentPolicy {
	return s.policy
}

// GetThread returns the approved comments of a content item as a reply forest.
// viewerID 0 means anonymous; otherwise every node carries IsLiked, filled
// from a single lookup over all ids in the forest. Unknown content yields an
// empty forest.
func (s *CommentService) GetThread(ctx context.Context, contentID, viewerID uint) ([]*models.ThreadNode, error) {
	span, ctx := observability.NewSpan(ctx, "comments.thread",
		attribute.Int64("content.id", int64(contentID)),
		attribute.Bool("viewer", viewerID != 0))
	defer span.End()
	defer observability.ObserveSince(observability.ThreadBuildLatency, time.Now())

	rows, err := s.commentRepo.ListThread(ctx, contentID)
	if err != nil {
		span.SetError(err)
		return nil, err
	}

	var liked map[uint]bool
	if viewerID != 0 {
		ids, err := s.engagementRepo.ActiveTargetIDs(ctx, models.KindLike, models.TargetComment, viewerID, thread.IDs(rows))
		if err != nil {
			span.SetError(err)
			return nil, err
		}
		liked = thread.LikedSet(ids)
	}

	forest := thread.Build(rows, liked)
	span.AddAttributes(attribute.Int("comments.count", thread.Count(forest)))
	return forest, nil
}

// PostComment validates and stores a new comment or reply. The content's
// comments_count moves in the same transaction as the insert.
func (s *CommentService) PostComment(ctx context.Context, in PostCommentInput) (*models.Comment, error) {
	body, err := normalizeBody(in.Body)
	if err != nil {
		return nil, err
	}

	exists, err := s.contentRepo.Exists(ctx, in.ContentID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, models.NewNotFoundError("Content", in.ContentID)
	}

	if in.ParentID != nil {
		parent, err := s.commentRepo.GetByID(ctx, *in.ParentID)
		if err != nil {
			if models.HasCode(err, models.CodeNotFound) {
				return nil, models.NewValidationError("Parent comment not found")
			}
			return nil, err
		}
		if parent.ContentID != in.ContentID {
			return nil, models.NewValidationError("Parent comment belongs to different content")
		}
	}

	author, err := s.userRepo.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	comment := &models.Comment{
		ContentID:    in.ContentID,
		UserID:       author.ID,
		AuthorName:   author.Username,
		AuthorAvatar: author.Avatar,
		ParentID:     in.ParentID,
		Body:         body,
		Status:       s.policy.Moderation.InitialStatus(),
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, err
	}
	return comment, nil
}

// EditComment replaces the body of a comment. Status and parent are untouched.
func (s *CommentService) EditComment(ctx context.Context, in EditCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAuthorOrAdmin(ctx, comment, in.EditorID, "edit"); err != nil {
		return nil, err
	}

	body, err := normalizeBody(in.Body)
	if err != nil {
		return nil, err
	}
	if err := s.commentRepo.UpdateBody(ctx, comment, body); err != nil {
		return nil, err
	}

	return s.commentRepo.GetByID(ctx, comment.ID)
}

// DeleteComment removes a comment under the configured delete policy and
// returns the deleted row.
func (s *CommentService) DeleteComment(ctx context.Context, in DeleteCommentInput) (*models.Comment, error) {
	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if err := s.requireAuthorOrAdmin(ctx, comment, in.RequesterID, "delete"); err != nil {
		return nil, err
	}

	if _, err := s.commentRepo.Delete(ctx, comment, s.policy.Delete); err != nil {
		return nil, err
	}
	return comment, nil
}

// ToggleCommentLike flips the user's like on a comment and reports whether it is now liked.
func (s *CommentService) ToggleCommentLike(ctx context.Context, commentID, userID uint) (bool, error) {
	liked, err := s.engagementRepo.Toggle(ctx, models.KindLike, models.TargetComment, userID, commentID)
	if err != nil {
		return false, err
	}
	observability.EngagementToggles.WithLabelValues(string(models.KindLike), string(models.TargetComment), stateLabel(liked)).Inc()
	return liked, nil
}

// SetCommentStatus moves a comment between moderation states. Admin only.
func (s *CommentService) SetCommentStatus(ctx context.Context, in SetCommentStatusInput) (*models.Comment, error) {
	if !in.Status.Valid() {
		return nil, models.NewValidationError("Status must be one of approved, pending, rejected")
	}

	admin := false
	if s.isAdmin != nil && in.ModeratorID != 0 {
		var err error
		if admin, err = s.isAdmin(ctx, in.ModeratorID); err != nil {
			return nil, err
		}
	}
	if !admin {
		return nil, models.NewForbiddenError("Only admins can moderate comments")
	}

	comment, err := s.commentRepo.GetByID(ctx, in.CommentID)
	if err != nil {
		return nil, err
	}
	if comment.Status == in.Status {
		return comment, nil
	}
	if err := s.commentRepo.SetStatus(ctx, comment, in.Status); err != nil {
		return nil, err
	}
	comment.Status = in.Status
	return comment, nil
}

// ListPending pages through comments awaiting moderation. Admin only.
func (s *CommentService) ListPending(ctx context.Context, moderatorID uint, limit, offset int) ([]*models.Comment, error) {
	admin := false
	if s.isAdmin != nil && moderatorID != 0 {
		var err error
		if admin, err = s.isAdmin(ctx, moderatorID); err != nil {
			return nil, err
		}
	}
	if !admin {
		return nil, models.NewForbiddenError("Only admins can moderate comments")
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return s.commentRepo.ListByStatus(ctx, models.CommentStatusPending, limit, offset)
}

func (s *CommentService) requireAuthorOrAdmin(ctx context.Context, comment *models.Comment, actorID uint, action string) error {
	ok, err := authorOrAdmin(ctx, s.isAdmin, comment.UserID, actorID)
	if err != nil {
		return err
	}
	if !ok {
		return models.NewForbiddenError("You can only " + action + " your own comments")
	}
	return nil
}

func normalizeBody(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if body == "" {
		return "", models.NewValidationError("Comment body is required")
	}
	if utf8.RuneCountInString(body) > maxCommentLen {
		return "", models.NewValidationError("Comment too long (max 10000 characters)")
	}
	return body, nil
}

func stateLabel(active bool) string {
	if active {
		return "on"
	}
	return "off"
}
