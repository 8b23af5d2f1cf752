// Package pipeline runs alerts through context gathering, analysis and
// notification on a single worker.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/alertsage/internal/collect"
	"github.com/kiranshivaraju/alertsage/internal/notify"
	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// Stage names one step of an alert's lifecycle.
type Stage string

const (
	StageReceived        Stage = "received"
	StageContextGathered Stage = "context-gathered"
	StageAnalyzed        Stage = "analyzed"
	StageNotified        Stage = "notified"
	StageDone            Stage = "done"
	StageFailed          Stage = "failed"
)

// DefaultErrorBackoff is how long the worker pauses after a loop-level failure.
const DefaultErrorBackoff = 5 * time.Second

type Gatherer interface {
	Gather(ctx context.Context, alert models.Alert) (models.AnalysisContext, collect.Report, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, actx models.AnalysisContext) (models.AnalysisResult, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, p notify.Payload) models.NotificationOutcome
}

// Recorder receives pipeline metrics.
type Recorder interface {
	AlertProcessed(result string)
	ObserveStage(stage string, d time.Duration)
	SetQueueDepth(n int)
}

type nopRecorder struct{}

func (nopRecorder) AlertProcessed(string)               {}
func (nopRecorder) ObserveStage(string, time.Duration) {}
func (nopRecorder) SetQueueDepth(int)                  {}

// Result is the outcome of processing one alert.
type Result struct {
	ID           uuid.UUID                  `json:"id"`
	Analysis     models.AnalysisResult      `json:"analysis"`
	Notification models.NotificationOutcome `json:"notification"`
	Err          error                      `json:"-"`
}

// Options configures a Coordinator.
type Options struct {
	PrometheusURL string
	ErrorBackoff  time.Duration
	Recorder      Recorder
}

// Coordinator owns the alert queue and the single worker draining it.
type Coordinator struct {
	queue         *Queue
	gatherer      Gatherer
	analyzer      Analyzer
	notifier      Notifier
	prometheusURL string
	errorBackoff  time.Duration
	recorder      Recorder
	processing    atomic.Bool
}

// NewCoordinator creates a Coordinator. Call Run to start the worker.
func NewCoordinator(g Gatherer, a Analyzer, n Notifier, opts Options) *Coordinator {
	if opts.ErrorBackoff <= 0 {
		opts.ErrorBackoff = DefaultErrorBackoff
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Coordinator{
		queue:         NewQueue(),
		gatherer:      g,
		analyzer:      a,
		notifier:      n,
		prometheusURL: opts.PrometheusURL,
		errorBackoff:  opts.ErrorBackoff,
		recorder:      opts.Recorder,
	}
}

// QueueSize returns the number of alerts waiting for the worker.
func (c *Coordinator) QueueSize() int { return c.queue.Len() }

// Processing reports whether the worker is busy with an alert.
func (c *Coordinator) Processing() bool { return c.processing.Load() }

// Enqueue queues a firing alert for background processing.
func (c *Coordinator) Enqueue(alert models.Alert) (uuid.UUID, error) {
	if !alert.IsFiring() {
		return uuid.Nil, ErrNotFiring
	}
	id := uuid.New()
	if err := c.queue.push(item{id: id, alert: alert, enqueuedAt: time.Now()}); err != nil {
		return uuid.Nil, err
	}
	c.recorder.SetQueueDepth(c.queue.Len())
	slog.Info("alert queued", "alert", alert.Name(), "id", id, "stage", StageReceived, "queue_size", c.queue.Len())
	return id, nil
}

// Submit queues alert behind any pending work and waits for its result.
func (c *Coordinator) Submit(ctx context.Context, alert models.Alert) (Result, error) {
	if !alert.IsFiring() {
		return Result{}, ErrNotFiring
	}
	it := item{id: uuid.New(), alert: alert, enqueuedAt: time.Now(), reply: make(chan Result, 1)}
	if err := c.queue.push(it); err != nil {
		return Result{}, err
	}
	c.recorder.SetQueueDepth(c.queue.Len())

	select {
	case res := <-it.reply:
		return res, res.Err
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Run drains the queue until ctx is cancelled. Alerts still queued at that
// point are discarded.
func (c *Coordinator) Run(ctx context.Context) error {
	slog.Info("pipeline worker started")
	defer func() {
		if n := c.queue.close(); n > 0 {
			slog.Warn("discarded queued alerts on shutdown", "count", n)
		}
		c.recorder.SetQueueDepth(0)
		slog.Info("pipeline worker stopped")
	}()

	for {
		if err := c.step(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Error("pipeline loop error, backing off", "error", err, "backoff", c.errorBackoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(c.errorBackoff):
			}
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// step processes at most one alert, waiting for work if the queue is empty.
func (c *Coordinator) step(ctx context.Context) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in pipeline loop: %v", r)
		}
	}()

	it, ok := c.queue.pop()
	if !ok {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.queue.signal:
			return nil
		}
	}
	c.recorder.SetQueueDepth(c.queue.Len())

	res := c.process(ctx, it.id, it.alert)
	if it.reply != nil {
		it.reply <- res
	}
	return nil
}

// process takes one alert through every stage. Failures are confined to the alert.
func (c *Coordinator) process(ctx context.Context, id uuid.UUID, alert models.Alert) (res Result) {
	res.ID = id
	name := alert.Name()
	log := slog.With("alert", name, "id", id)

	c.processing.Store(true)
	defer c.processing.Store(false)

	begin := time.Now()
	stage := StageReceived
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic while processing alert", "stage", stage, "error", r, "stack", string(debug.Stack()))
			res.Err = fmt.Errorf("processing %s: panic at stage %s: %v", name, stage, r)
			c.fail(log, stage)
		}
	}()

	if !alert.IsFiring() {
		log.Info("skipping non-firing alert", "status", alert.Status)
		c.recorder.AlertProcessed("skipped")
		res.Err = ErrNotFiring
		return res
	}
	log.Info("processing alert", "stage", stage, "severity", alert.Severity())

	start := time.Now()
	actx, report, err := c.gatherer.Gather(ctx, alert)
	if err != nil {
		res.Err = fmt.Errorf("gathering context for %s: %w", name, err)
		log.Error("context gathering failed", "stage", stage, "error", err)
		c.fail(log, stage)
		return res
	}
	stage = c.advance(log, StageContextGathered, start,
		"metrics", len(actx.Metrics), "log_batches", len(actx.Logs), "failed_queries", failedQueries(report))

	start = time.Now()
	analysis, err := c.analyzer.Analyze(ctx, actx)
	if err != nil {
		res.Err = err
		log.Error("analysis failed", "stage", stage, "error", err)
		c.fail(log, stage)
		return res
	}
	res.Analysis = analysis
	stage = c.advance(log, StageAnalyzed, start, "confidence", analysis.Confidence)

	start = time.Now()
	res.Notification = c.notifier.Dispatch(ctx, notify.NewPayload(alert, analysis, c.prometheusURL))
	delivered := res.Notification.Delivered()
	if !delivered {
		log.Error("all notification channels failed", "channels", len(res.Notification.Channels))
	}
	stage = c.advance(log, StageNotified, start, "delivered", delivered)

	c.advance(log, StageDone, begin)
	if delivered {
		c.recorder.AlertProcessed("success")
	} else {
		c.recorder.AlertProcessed("undelivered")
	}
	return res
}

func (c *Coordinator) advance(log *slog.Logger, to Stage, since time.Time, attrs ...any) Stage {
	c.recorder.ObserveStage(string(to), time.Since(since))
	log.Info("alert stage transition", append([]any{"stage", to}, attrs...)...)
	return to
}

func (c *Coordinator) fail(log *slog.Logger, from Stage) {
	c.recorder.AlertProcessed("failed")
	log.Warn("alert stage transition", "stage", StageFailed, "from", from)
}

func failedQueries(r collect.Report) int {
	n := 0
	for _, o := range append(append([]collect.Outcome{}, r.Metrics...), r.Logs...) {
		if o.Status == collect.StatusFailed {
			n++
		}
	}
	return n
}
