package collect

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// Report summarizes one gathering run.
type Report struct {
	Window  Window
	Metrics []Outcome
	Logs    []Outcome
}

// Gatherer collects metrics and logs for an alert concurrently.
type Gatherer struct {
	metrics       *MetricCollector
	logs          *LogCollector
	windowMinutes int
	now           func() time.Time
}

// NewGatherer creates a Gatherer searching windowMinutes either side of the alert start.
func NewGatherer(metrics *MetricCollector, logs *LogCollector, windowMinutes int) *Gatherer {
	if windowMinutes <= 0 {
		windowMinutes = 15
	}
	return &Gatherer{metrics: metrics, logs: logs, windowMinutes: windowMinutes, now: time.Now}
}

// Gather builds the analysis context for alert. Both collectors finish before it
// returns; an error means the context was cancelled.
func (g *Gatherer) Gather(ctx context.Context, alert models.Alert) (models.AnalysisContext, Report, error) {
	w := WindowAround(alert.StartTime(g.now().UTC()), g.windowMinutes)
	report := Report{Window: w}

	var (
		series  []models.MetricSeries
		batches []models.LogBatch
	)

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		var err error
		series, report.Metrics, err = g.metrics.Collect(egCtx, alert.Labels, w)
		return err
	})
	eg.Go(func() error {
		var err error
		batches, report.Logs, err = g.logs.Collect(egCtx, alert.Labels, w)
		return err
	})
	if err := eg.Wait(); err != nil {
		return models.AnalysisContext{}, report, err
	}

	return models.NewAnalysisContext(alert, series, batches), report, nil
}
