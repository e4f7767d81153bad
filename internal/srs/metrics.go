package srs

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("recall.srs")

var (
	reviewsTotal          metric.Int64Counter
	queueBuildsTotal      metric.Int64Counter
	itemsQueuedTotal      metric.Int64Counter
	documentsUntracked    metric.Int64Counter
	existenceCheckFailed  metric.Int64Counter
	queueBuildDurationSec metric.Float64Histogram

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the instruments. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		reviewsTotal, err = meter.Int64Counter(
			"recall_reviews_total",
			metric.WithDescription("Total number of submitted reviews"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queueBuildsTotal, err = meter.Int64Counter(
			"recall_queue_builds_total",
			metric.WithDescription("Total number of queue builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		itemsQueuedTotal, err = meter.Int64Counter(
			"recall_items_queued_total",
			metric.WithDescription("Items appended to the due queue by queue builds"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		documentsUntracked, err = meter.Int64Counter(
			"recall_documents_untracked_total",
			metric.WithDescription("Documents untracked because their file disappeared"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		existenceCheckFailed, err = meter.Int64Counter(
			"recall_existence_check_failures_total",
			metric.WithDescription("Existence checks that failed or timed out"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		queueBuildDurationSec, err = meter.Float64Histogram(
			"recall_queue_build_duration_seconds",
			metric.WithDescription("Duration of queue builds"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func recordReview(ctx context.Context, correct, retry bool) {
	if initMetrics() != nil {
		return
	}
	reviewsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("correct", correct),
		attribute.Bool("retry", retry),
	))
}

func recordQueueBuild(ctx context.Context, newQueued, dueQueued, untracked, failures int, seconds float64) {
	if initMetrics() != nil {
		return
	}
	queueBuildsTotal.Add(ctx, 1)
	queueBuildDurationSec.Record(ctx, seconds)
	if newQueued > 0 {
		itemsQueuedTotal.Add(ctx, int64(newQueued), metric.WithAttributes(attribute.String("kind", "new")))
	}
	if dueQueued > 0 {
		itemsQueuedTotal.Add(ctx, int64(dueQueued), metric.WithAttributes(attribute.String("kind", "due")))
	}
	if untracked > 0 {
		documentsUntracked.Add(ctx, int64(untracked))
	}
	if failures > 0 {
		existenceCheckFailed.Add(ctx, int64(failures))
	}
}
