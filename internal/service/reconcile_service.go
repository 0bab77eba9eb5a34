package service

import (
	"context"
	"log/slog"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/observability"
	"inkwell/internal/repository"
)

// reconcileTimeout bounds a single reconciliation pass.
const reconcileTimeout = 5 * time.Minute

// CounterReconciler rewrites denormalized counters that drifted from the
// relationship rows they mirror. It runs on demand and, under a supervisor,
// on a fixed interval.
type CounterReconciler struct {
	repo     repository.EngagementRepository
	interval time.Duration
	name     string
}

func NewCounterReconciler(repo repository.EngagementRepository, interval time.Duration) *CounterReconciler {
	return &CounterReconciler{repo: repo, interval: interval, name: "counter-reconciler"}
}

// Reconcile runs one pass and reports how many rows were corrected per counter.
func (r *CounterReconciler) Reconcile(ctx context.Context) (models.ReconcileReport, error) {
	span, ctx := observability.NewSpan(ctx, "counters.reconcile")
	defer span.End()

	start := time.Now()
	report, err := r.repo.ReconcileCounters(ctx)
	if err != nil {
		span.SetError(err)
		observability.ReconcileRuns.WithLabelValues("error").Inc()
		observability.GlobalLogger.ErrorContext(ctx, "counter reconciliation failed",
			slog.String("error", err.Error()))
		return models.ReconcileReport{}, err
	}

	observability.CounterDrift.WithLabelValues("content_likes").Add(float64(report.ContentLikes))
	observability.CounterDrift.WithLabelValues("content_comments").Add(float64(report.ContentComments))
	observability.CounterDrift.WithLabelValues("content_bookmarks").Add(float64(report.ContentBookmarks))
	observability.CounterDrift.WithLabelValues("comment_likes").Add(float64(report.CommentLikes))

	outcome := "clean"
	level := slog.LevelInfo
	if report.Total() > 0 {
		outcome = "corrected"
		level = slog.LevelWarn
	}
	observability.ReconcileRuns.WithLabelValues(outcome).Inc()
	observability.GlobalLogger.Log(ctx, level, "counter reconciliation finished",
		slog.Int64("content_likes", report.ContentLikes),
		slog.Int64("content_comments", report.ContentComments),
		slog.Int64("content_bookmarks", report.ContentBookmarks),
		slog.Int64("comment_likes", report.CommentLikes),
		slog.Duration("duration", time.Since(start)))
	return report, nil
}

// Serve implements suture.Service. A zero interval leaves the reconciler
// idle until shutdown.
func (r *CounterReconciler) Serve(ctx context.Context) error {
	if r.interval <= 0 {
		<-ctx.Done()
		return ctx.Err()
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			passCtx, cancel := context.WithTimeout(ctx, reconcileTimeout)
			_, _ = r.Reconcile(passCtx)
			cancel()
		}
	}
}

func (r *CounterReconciler) String() string {
	return r.name
}
