package collect

import (
	"context"
	"log/slog"

	"github.com/kiranshivaraju/alertsage/internal/loki"
	"github.com/kiranshivaraju/alertsage/pkg/logql"
	"github.com/kiranshivaraju/alertsage/pkg/models"
)

const DefaultMaxLines = 500

// LogCollector runs the log queries derived from an alert's labels.
type LogCollector struct {
	client   loki.Client
	builder  logql.QueryBuilder
	limit    int
	recorder Recorder
}

// NewLogCollector creates a LogCollector capped at limit lines per query.
func NewLogCollector(client loki.Client, limit int, rec Recorder) *LogCollector {
	if limit <= 0 {
		limit = DefaultMaxLines
	}
	return &LogCollector{client: client, limit: limit, recorder: orNop(rec)}
}

// Collect returns the non-empty batches for every synthesized query, newest
// line first, plus the outcome of each. Only context cancellation produces an error.
func (c *LogCollector) Collect(ctx context.Context, labels map[string]string, w Window) ([]models.LogBatch, []Outcome, error) {
	queries := c.builder.Build(labels)

	var results []models.LogBatch
	outcomes := make([]Outcome, 0, len(queries))

	for _, q := range queries {
		if err := ctx.Err(); err != nil {
			return results, outcomes, err
		}

		slog.Debug("executing log query", "query", q.Name, "expr", q.Query)
		lines, err := c.client.QueryRange(ctx, loki.QueryRangeRequest{
			Query:     q.Query,
			Start:     w.Start,
			End:       w.End,
			Limit:     c.limit,
			Direction: loki.DirectionBackward,
		})

		o := Outcome{Name: q.Name, Query: q.Query}
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return results, outcomes, ctx.Err()
			}
			slog.Warn("log query failed", "query", q.Name, "error", err)
			o.Status, o.Err = StatusFailed, err
		case len(lines) == 0:
			o.Status = StatusEmpty
		default:
			o.Status = StatusData
			results = append(results, models.LogBatch{Name: q.Name, Query: q.Query, Lines: lines})
		}
		c.recorder.BackendQuery("loki", string(o.Status))
		outcomes = append(outcomes, o)
	}

	return results, outcomes, nil
}
