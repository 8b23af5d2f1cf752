package collect

import (
	"context"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/alertsage/internal/prometheus"
	"github.com/kiranshivaraju/alertsage/pkg/models"
	"github.com/kiranshivaraju/alertsage/pkg/promql"
)

const DefaultStep = 15 * time.Second

// MetricCollector runs the metric queries derived from an alert's labels.
type MetricCollector struct {
	client   prometheus.Client
	builder  promql.QueryBuilder
	step     time.Duration
	recorder Recorder
}

// NewMetricCollector creates a MetricCollector. A zero step uses DefaultStep.
func NewMetricCollector(client prometheus.Client, step time.Duration, rec Recorder) *MetricCollector {
	if step <= 0 {
		step = DefaultStep
	}
	return &MetricCollector{client: client, step: step, recorder: orNop(rec)}
}

// Collect returns the non-empty series for every synthesized query plus the
// outcome of each. Only context cancellation produces an error.
func (c *MetricCollector) Collect(ctx context.Context, labels map[string]string, w Window) ([]models.MetricSeries, []Outcome, error) {
	queries := c.builder.Build(labels)

	var results []models.MetricSeries
	outcomes := make([]Outcome, 0, len(queries))

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return results, outcomes, err
		}

		slog.Debug("executing metric query", "query", q.Name, "expr", q.Query)
		series, err := c.client.QueryRange(ctx, prometheus.QueryRangeRequest{
			Query: q.Query,
			Start: w.Start,
			End:   w.End,
			Step:  c.step,
		})

		o := Outcome{Name: q.Name, Query: q.Query}
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return results, outcomes, ctx.Err()
			}
			slog.Warn("metric query failed", "query", q.Name, "error", err)
			o.Status, o.Err = StatusFailed, err
		case len(series) == 0:
			o.Status = StatusEmpty
		default:
			o.Status = StatusData
			results = append(results, models.MetricSeries{Name: q.Name, Query: q.Query, Series: series})
		}
		c.recorder.BackendQuery("prometheus", string(o.Status))
		outcomes = append(outcomes, o)
	}

	return results, outcomes, nil
}
