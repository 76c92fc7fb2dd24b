package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricDiffsTotal    = "astdiff.diffs.total"
	metricDiffDuration  = "astdiff.diff.duration.seconds"
	metricActionsTotal  = "astdiff.actions.total"
	metricInflightDiffs = "astdiff.diffs.inflight"

	attrStatus = "status"
	attrAction = "action"

	// StatusOK marks a diff that was computed and stored.
	StatusOK = "ok"
	// StatusError marks a diff that failed and was discarded.
	StatusError = "error"
	// StatusTimeout marks a diff abandoned after its deadline.
	StatusTimeout = "timeout"
)

// diffBuckets spans single small files (milliseconds) to pathological
// generated sources (a minute).
var diffBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60} //nolint:gochecknoglobals // Bucket layout.

// DiffMetrics holds the instruments recorded per file-pair diff.
type DiffMetrics struct {
	diffsTotal   metric.Int64Counter
	diffDuration metric.Float64Histogram
	actionsTotal metric.Int64Counter
	inflight     metric.Int64UpDownCounter
}

// NewDiffMetrics creates the diff instruments on meter.
func NewDiffMetrics(meter metric.Meter) (*DiffMetrics, error) {
	diffsTotal, err := meter.Int64Counter(metricDiffsTotal,
		metric.WithDescription("File-pair diffs processed"),
		metric.WithUnit("{diff}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDiffsTotal, err)
	}

	diffDuration, err := meter.Float64Histogram(metricDiffDuration,
		metric.WithDescription("Time to compute one file-pair diff"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(diffBuckets...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricDiffDuration, err)
	}

	actionsTotal, err := meter.Int64Counter(metricActionsTotal,
		metric.WithDescription("Edit actions emitted, by kind"),
		metric.WithUnit("{action}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricActionsTotal, err)
	}

	inflight, err := meter.Int64UpDownCounter(metricInflightDiffs,
		metric.WithDescription("Diffs currently being computed"),
		metric.WithUnit("{diff}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricInflightDiffs, err)
	}

	return &DiffMetrics{
		diffsTotal:   diffsTotal,
		diffDuration: diffDuration,
		actionsTotal: actionsTotal,
		inflight:     inflight,
	}, nil
}

// RecordDiff records one finished diff with its status and duration.
// A nil receiver records nothing.
func (dm *DiffMetrics) RecordDiff(ctx context.Context, status string, duration time.Duration) {
	if dm == nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String(attrStatus, status))

	dm.diffsTotal.Add(ctx, 1, attrs)
	dm.diffDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordActions adds per-kind action counts, keyed by action name.
func (dm *DiffMetrics) RecordActions(ctx context.Context, counts map[string]int) {
	if dm == nil {
		return
	}

	for action, count := range counts {
		if count == 0 {
			continue
		}

		dm.actionsTotal.Add(ctx, int64(count), metric.WithAttributes(attribute.String(attrAction, action)))
	}
}

// TrackInflight increments the in-flight gauge and returns its decrement.
func (dm *DiffMetrics) TrackInflight(ctx context.Context) func() {
	if dm == nil {
		return func() {}
	}

	dm.inflight.Add(ctx, 1)

	return func() {
		dm.inflight.Add(ctx, -1)
	}
}
