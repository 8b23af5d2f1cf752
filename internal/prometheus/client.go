// Package prometheus wraps the Prometheus HTTP API for ranged metric queries.
package prometheus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sort"
	"time"

	promapi "github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"

	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// Sentinel errors for Prometheus client failures.
var (
	ErrUnreachable = errors.New("prometheus unreachable")
	ErrQueryError  = errors.New("prometheus query error")
	ErrTimeout     = errors.New("prometheus query timeout")
)

// Client is the interface for querying Prometheus.
type Client interface {
	QueryRange(ctx context.Context, req QueryRangeRequest) ([]models.Series, error)
	Ready(ctx context.Context) error
}

// QueryRangeRequest defines parameters for a Prometheus range query.
type QueryRangeRequest struct {
	Query string
	Start time.Time
	End   time.Time
	Step  time.Duration
}

// APIClient implements Client on top of the official client_golang API.
type APIClient struct {
	api     v1.API
	timeout time.Duration
}

// NewAPIClient creates a Prometheus client for the server at baseURL.
func NewAPIClient(baseURL string, timeout time.Duration) (*APIClient, error) {
	c, err := promapi.NewClient(promapi.Config{
		Address:      baseURL,
		RoundTripper: promapi.DefaultRoundTripper,
	})
	if err != nil {
		return nil, fmt.Errorf("creating prometheus client: %w", err)
	}
	return &APIClient{api: v1.NewAPI(c), timeout: timeout}, nil
}

func (c *APIClient) QueryRange(ctx context.Context, req QueryRangeRequest) ([]models.Series, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	val, warnings, err := c.api.QueryRange(ctx, req.Query, v1.Range{
		Start: req.Start,
		End:   req.End,
		Step:  req.Step,
	})
	if err != nil {
		return nil, classifyError(err)
	}
	if len(warnings) > 0 {
		slog.Debug("prometheus query warnings", "query", req.Query, "warnings", warnings)
	}

	matrix, ok := val.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("%w: unexpected result type %s", ErrQueryError, val.Type())
	}
	return fromMatrix(matrix), nil
}

// Ready reports whether the server answers its build info endpoint.
func (c *APIClient) Ready(ctx context.Context) error {
	if _, err := c.api.Buildinfo(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}
	return nil
}

// classifyError maps API and transport errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var apiErr *v1.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Type {
		case v1.ErrTimeout, v1.ErrCanceled:
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		case v1.ErrClient:
			return fmt.Errorf("%w: %v", ErrUnreachable, err)
		default:
			return fmt.Errorf("%w: %v", ErrQueryError, err)
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// fromMatrix converts a range-query matrix into label/sample series.
func fromMatrix(m model.Matrix) []models.Series {
	out := make([]models.Series, 0, len(m))
	for _, ss := range m {
		labels := make(map[string]string, len(ss.Metric))
		for k, v := range ss.Metric {
			labels[string(k)] = string(v)
		}
		samples := make([]models.Sample, 0, len(ss.Values))
		for _, p := range ss.Values {
			samples = append(samples, models.Sample{
				Timestamp: p.Timestamp.Time().UTC(),
				Value:     float64(p.Value),
			})
		}
		sort.Slice(samples, func(i, j int) bool { return samples[i].Timestamp.Before(samples[j].Timestamp) })
		out = append(out, models.Series{Labels: labels, Samples: samples})
	}
	return out
}

var _ Client = (*APIClient)(nil)
