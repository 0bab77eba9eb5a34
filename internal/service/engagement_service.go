package service

import (
	"context"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// EngagementService toggles likes and bookmarks on content and comments.
type EngagementService struct {
	repo repository.EngagementRepository
}

type ToggleInput struct {
	Kind     models.EngagementKind
	Target   models.TargetType
	UserID   uint
	TargetID uint
}

func NewEngagementService(repo repository.EngagementRepository) *EngagementService {
	return &EngagementService{repo: repo}
}

// Toggle flips the relationship and reports whether it is active afterwards.
// Calling it twice in a row restores both the row set and the counter.
func (s *EngagementService) Toggle(ctx context.Context, in ToggleInput) (bool, error) {
	if !in.Kind.Valid() {
		return false, models.NewValidationError("kind must be like or bookmark")
	}
	if !in.Target.Valid() {
		return false, models.NewValidationError("target_type must be content or comment")
	}
	if in.TargetID == 0 {
		return false, models.NewValidationError("target_id is required")
	}
	if in.UserID == 0 {
		return false, models.NewUnauthorizedError("Authentication required")
	}

	span, ctx := observability.NewSpan(ctx, "engagement.toggle",
		attribute.String("engagement.kind", string(in.Kind)),
		attribute.String("engagement.target", string(in.Target)),
		attribute.Int64("engagement.target_id", int64(in.TargetID)))
	defer span.End()

	active, err := s.repo.Toggle(ctx, in.Kind, in.Target, in.UserID, in.TargetID)
	if err != nil {
		span.SetError(err)
		return false, err
	}
	span.AddAttributes(attribute.Bool("engagement.active", active))
	observability.EngagementToggles.WithLabelValues(string(in.Kind), string(in.Target), stateLabel(active)).Inc()
	return active, nil
}
