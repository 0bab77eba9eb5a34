package repository

import (
	"context"
	"errors"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
)

// CommentRepository defines persistence operations for comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id uint) (*models.Comment, error)
	ListThread(ctx context.Context, contentID uint) ([]*models.Comment, error)
	ListByStatus(ctx context.Context, status models.CommentStatus, limit, offset int) ([]*models.Comment, error)
	UpdateBody(ctx context.Context, comment *models.Comment, body string) error
	SetStatus(ctx context.Context, comment *models.Comment, status models.CommentStatus) error
	Delete(ctx context.Context, comment *models.Comment, policy models.CommentDeletePolicy) (int64, error)
}

type commentRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *gorm.DB) CommentRepository {
	return &commentRepository{db: db, log: observability.NewRepoLogger("comments")}
}

// threadSQL collects every approved comment reachable from an approved
// top-level comment of one content item.
const threadSQL = `
WITH RECURSIVE thread AS (
	SELECT id FROM comments
	WHERE content_id = ? AND status = ? AND parent_id IS NULL
	UNION
	SELECT c.id FROM comments c
	JOIN thread t ON c.parent_id = t.id
	WHERE c.content_id = ? AND c.status = ?
)
SELECT * FROM comments
WHERE id IN (SELECT id FROM thread)
ORDER BY created_at ASC, id ASC`

// subtreeSQL collects a comment and all of its descendants regardless of status.
const subtreeSQL = `
WITH RECURSIVE subtree AS (
	SELECT id FROM comments WHERE id = ?
	UNION
	SELECT c.id FROM comments c
	JOIN subtree s ON c.parent_id = s.id
	WHERE c.content_id = ?
)
SELECT id FROM subtree`

// Create inserts comment and bumps the owning content's comments_count in the
// same transaction. A missing content row rolls both back.
func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(comment).Error; err != nil {
			return err
		}
		return bumpCounter(tx, "contents", "comments_count", comment.ContentID, 1)
	})
	if err != nil {
		r.log.LogError(ctx, err, "create")
		return translate(err, "Content", comment.ContentID)
	}
	observability.CommentWrites.WithLabelValues("create").Inc()
	r.log.LogCreate(ctx, map[string]interface{}{"comment_id": comment.ID, "content_id": comment.ContentID})
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id uint) (*models.Comment, error) {
	var comment models.Comment
	if err := r.db.WithContext(ctx).First(&comment, id).Error; err != nil {
		return nil, translate(err, "Comment", id)
	}
	return &comment, nil
}

// ListThread returns the flat set of thread comments ordered oldest first.
func (r *commentRepository) ListThread(ctx context.Context, contentID uint) ([]*models.Comment, error) {
	approved := string(models.CommentStatusApproved)
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Raw(threadSQL, contentID, approved, contentID, approved).
		Scan(&comments).Error
	if err != nil {
		return nil, translate(err, "Content", contentID)
	}
	return comments, nil
}

// ListByStatus pages through comments in a moderation state, oldest first.
func (r *commentRepository) ListByStatus(ctx context.Context, status models.CommentStatus, limit, offset int) ([]*models.Comment, error) {
	var comments []*models.Comment
	err := r.db.WithContext(ctx).
		Where("status = ?", status).
		Order("created_at ASC, id ASC").
		Limit(limit).
		Offset(offset).
		Find(&comments).Error
	if err != nil {
		return nil, translate(err, "Comment", status)
	}
	return comments, nil
}

// UpdateBody rewrites body and updated_at only.
func (r *commentRepository) UpdateBody(ctx context.Context, comment *models.Comment, body string) error {
	res := r.db.WithContext(ctx).Model(comment).Select("body", "updated_at").Updates(models.Comment{Body: body})
	if res.Error != nil {
		return translate(res.Error, "Comment", comment.ID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", comment.ID)
	}
	observability.CommentWrites.WithLabelValues("edit").Inc()
	r.log.LogUpdate(ctx, map[string]interface{}{"comment_id": comment.ID})
	return nil
}

func (r *commentRepository) SetStatus(ctx context.Context, comment *models.Comment, status models.CommentStatus) error {
	res := r.db.WithContext(ctx).Model(comment).Select("status", "updated_at").Updates(models.Comment{Status: status})
	if res.Error != nil {
		return translate(res.Error, "Comment", comment.ID)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Comment", comment.ID)
	}
	observability.CommentWrites.WithLabelValues("moderate").Inc()
	r.log.LogUpdate(ctx, map[string]interface{}{"comment_id": comment.ID, "status": status})
	return nil
}

// Delete removes comment according to policy and returns how many comment
// rows were removed. Likes on every removed comment go with it, and the
// content's comments_count drops by the number removed, all in one transaction.
func (r *commentRepository) Delete(ctx context.Context, comment *models.Comment, policy models.CommentDeletePolicy) (int64, error) {
	var removed int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := []uint{comment.ID}

		switch policy {
		case models.DeleteCascade:
			var subtree []uint
			if err := tx.Raw(subtreeSQL, comment.ID, comment.ContentID).Scan(&subtree).Error; err != nil {
				return err
			}
			if len(subtree) == 0 {
				return gorm.ErrRecordNotFound
			}
			ids = subtree
		case models.DeleteReparent:
			err := tx.Model(&models.Comment{}).
				Where("parent_id = ?", comment.ID).
				UpdateColumn("parent_id", comment.ParentID).Error
			if err != nil {
				return err
			}
		}

		if err := tx.Where("comment_id IN ?", ids).Delete(&models.CommentLike{}).Error; err != nil {
			return err
		}
		res := tx.Where("id IN ?", ids).Delete(&models.Comment{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		removed = res.RowsAffected
		return bumpCounter(tx, "contents", "comments_count", comment.ContentID, -removed)
	})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			r.log.LogError(ctx, err, "delete")
		}
		return 0, translate(err, "Comment", comment.ID)
	}

	observability.CommentWrites.WithLabelValues("delete").Add(float64(removed))
	r.log.LogDelete(ctx, map[string]interface{}{
		"comment_id": comment.ID,
		"policy":     policy,
		"removed":    removed,
	})
	return removed, nil
}

// bumpCounter adds delta to table.column for row id. It fails with
// ErrRecordNotFound when the row is gone so the caller's transaction rolls back.
func bumpCounter(tx *gorm.DB, table, column string, id uint, delta int64) error {
	res := tx.Table(table).
		Where("id = ?", id).
		UpdateColumn(column, gorm.Expr(column+" + ?", delta))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
