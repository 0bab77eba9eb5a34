package repository

import (
	"context"
	"fmt"

	"inkwell/internal/models"
	"inkwell/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// relation describes where a (kind, target) pair keeps its rows and counter.
type relation struct {
	table        string
	targetColumn string
	counterTable string
	counterCol   string
	resource     string
	newRow       func(userID, targetID uint) interface{}
}

var relations = map[models.EngagementKind]map[models.TargetType]relation{
	models.KindLike: {
		models.TargetContent: {
			table:        "content_likes",
			targetColumn: "content_id",
			counterTable: "contents",
			counterCol:   "likes_count",
			resource:     "Content",
			newRow: func(u, t uint) interface{} {
				return &models.ContentLike{UserID: u, ContentID: t}
			},
		},
		models.TargetComment: {
			table:        "comment_likes",
			targetColumn: "comment_id",
			counterTable: "comments",
			counterCol:   "likes",
			resource:     "Comment",
			newRow: func(u, t uint) interface{} {
				return &models.CommentLike{UserID: u, CommentID: t}
			},
		},
	},
	models.KindBookmark: {
		models.TargetContent: {
			table:        "bookmarks",
			targetColumn: "content_id",
			counterTable: "contents",
			counterCol:   "bookmarks_count",
			resource:     "Content",
			newRow: func(u, t uint) interface{} {
				return &models.Bookmark{UserID: u, ContentID: t}
			},
		},
	},
}

func relationFor(kind models.EngagementKind, target models.TargetType) (relation, error) {
	rel, ok := relations[kind][target]
	if !ok {
		return relation{}, models.NewValidationError(fmt.Sprintf("%s is not supported on %s", kind, target))
	}
	return rel, nil
}

// EngagementRepository toggles relationship rows and keeps their counters in step.
type EngagementRepository interface {
	Toggle(ctx context.Context, kind models.EngagementKind, target models.TargetType, userID, targetID uint) (bool, error)
	ActiveTargetIDs(ctx context.Context, kind models.EngagementKind, target models.TargetType, userID uint, targetIDs []uint) ([]uint, error)
	ReconcileCounters(ctx context.Context) (models.ReconcileReport, error)
}

type engagementRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewEngagementRepository creates a new EngagementRepository.
func NewEngagementRepository(db *gorm.DB) EngagementRepository {
	return &engagementRepository{db: db, log: observability.NewRepoLogger("engagement")}
}

// Toggle flips the (user, target) relationship and reports whether it is now active.
//
// Everything runs in one transaction: delete-if-present, otherwise
// insert-if-absent against the unique (user, target) index. The counter moves
// only by the number of rows actually deleted or inserted, so a concurrent
// twin request that loses the insert race leaves the counter untouched.
func (r *engagementRepository) Toggle(ctx context.Context, kind models.EngagementKind, target models.TargetType, userID, targetID uint) (bool, error) {
	rel, err := relationFor(kind, target)
	if err != nil {
		return false, err
	}

	var active bool
	err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Table(rel.counterTable).Where("id = ?", targetID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return gorm.ErrRecordNotFound
		}

		del := tx.Where("user_id = ? AND "+rel.targetColumn+" = ?", userID, targetID).Delete(rel.newRow(0, 0))
		if del.Error != nil {
			return del.Error
		}
		if del.RowsAffected > 0 {
			active = false
			return bumpCounter(tx, rel.counterTable, rel.counterCol, targetID, -del.RowsAffected)
		}

		ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rel.newRow(userID, targetID))
		if ins.Error != nil {
			return ins.Error
		}
		active = true
		if ins.RowsAffected == 0 {
			return nil
		}
		return bumpCounter(tx, rel.counterTable, rel.counterCol, targetID, ins.RowsAffected)
	})
	if err != nil {
		return false, translate(err, rel.resource, targetID)
	}

	r.log.LogUpdate(ctx, map[string]interface{}{
		"kind":      kind,
		"target":    target,
		"target_id": targetID,
		"active":    active,
	})
	return active, nil
}

// ActiveTargetIDs returns the subset of targetIDs userID currently has an active
// relationship with, in one query.
func (r *engagementRepository) ActiveTargetIDs(ctx context.Context, kind models.EngagementKind, target models.TargetType, userID uint, targetIDs []uint) ([]uint, error) {
	if userID == 0 || len(targetIDs) == 0 {
		return nil, nil
	}
	rel, err := relationFor(kind, target)
	if err != nil {
		return nil, err
	}
	var ids []uint
	err = r.db.WithContext(ctx).
		Table(rel.table).
		Where("user_id = ? AND "+rel.targetColumn+" IN ?", userID, targetIDs).
		Pluck(rel.targetColumn, &ids).Error
	if err != nil {
		return nil, translate(err, rel.resource, targetIDs)
	}
	return ids, nil
}

// reconcileSQL rewrites a counter only where it disagrees with the rows it mirrors.
var reconcileSQL = map[string]string{
	"content_likes": `UPDATE contents SET likes_count = (SELECT COUNT(*) FROM content_likes WHERE content_likes.content_id = contents.id)
WHERE likes_count <> (SELECT COUNT(*) FROM content_likes WHERE content_likes.content_id = contents.id)`,
	"content_comments": `UPDATE contents SET comments_count = (SELECT COUNT(*) FROM comments WHERE comments.content_id = contents.id)
WHERE comments_count <> (SELECT COUNT(*) FROM comments WHERE comments.content_id = contents.id)`,
	"content_bookmarks": `UPDATE contents SET bookmarks_count = (SELECT COUNT(*) FROM bookmarks WHERE bookmarks.content_id = contents.id)
WHERE bookmarks_count <> (SELECT COUNT(*) FROM bookmarks WHERE bookmarks.content_id = contents.id)`,
	"comment_likes": `UPDATE comments SET likes = (SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id)
WHERE likes <> (SELECT COUNT(*) FROM comment_likes WHERE comment_likes.comment_id = comments.id)`,
}

// ReconcileCounters recomputes every denormalized counter from its
// relationship rows and reports how many rows had drifted.
func (r *engagementRepository) ReconcileCounters(ctx context.Context) (models.ReconcileReport, error) {
	var report models.ReconcileReport
	targets := []struct {
		name string
		dst  *int64
	}{
		{"content_likes", &report.ContentLikes},
		{"content_comments", &report.ContentComments},
		{"content_bookmarks", &report.ContentBookmarks},
		{"comment_likes", &report.CommentLikes},
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, t := range targets {
			res := tx.Exec(reconcileSQL[t.name])
			if res.Error != nil {
				return fmt.Errorf("reconcile %s: %w", t.name, res.Error)
			}
			*t.dst = res.RowsAffected
		}
		return nil
	})
	if err != nil {
		r.log.LogError(ctx, err, "reconcile")
		return models.ReconcileReport{}, translate(err, "Counter", "all")
	}
	return report, nil
}
