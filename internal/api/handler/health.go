package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kiranshivaraju/alertsage/internal/api/response"
)

// Version is reported by the root endpoint.
const Version = "1.0.0"

const checkTimeout = 5 * time.Second

// Check probes one dependency.
type Check func(ctx context.Context) error

// Services names the upstreams the processor is wired to.
type Services struct {
	Prometheus string `json:"prometheus"`
	Loki       string `json:"loki"`
	LLMModel   string `json:"llm_model"`
}

type healthResponse struct {
	Status    string            `json:"status"`
	Services  Services          `json:"services"`
	Checks    map[string]string `json:"checks"`
	QueueSize int               `json:"queue_size"`
}

// NewHealthHandler returns an http.HandlerFunc for GET /api/v1/health.
// Checks run concurrently; any failing check turns the response into 503.
func NewHealthHandler(svc Services, q QueueStatus, checks map[string]Check) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), checkTimeout)
		defer cancel()

		var (
			mu      sync.Mutex
			g       errgroup.Group
			results = make(map[string]string, len(checks))
		)
		for name, check := range checks {
			g.Go(func() error {
				status := "ok"
				if err := check(ctx); err != nil {
					status = "degraded"
				}
				mu.Lock()
				results[name] = status
				mu.Unlock()
				// Failures are reported per check and never cancel the others.
				return nil
			})
		}
		_ = g.Wait()

		for _, status := range results {
			if status != "ok" {
				response.Error(w, http.StatusServiceUnavailable, response.CodeDegraded,
					"One or more services degraded", results)
				return
			}
		}

		response.JSON(w, healthResponse{
			Status:    "healthy",
			Services:  svc,
			Checks:    results,
			QueueSize: q.QueueSize(),
		})
	}
}

// NewRootHandler returns an http.HandlerFunc for GET /.
func NewRootHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, map[string]string{
			"service": "alertsage",
			"status":  "running",
			"version": Version,
		})
	}
}
