package prometheus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/kiranshivaraju/alertsage/internal/cache"
	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// CachedClient memoizes QueryRange results in a shared cache.
// Cache failures never fail a query; they fall through to Prometheus.
type CachedClient struct {
	next  Client
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedClient wraps next with a read-through cache.
func NewCachedClient(next Client, c cache.Cache, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, cache: c, ttl: ttl}
}

func (c *CachedClient) QueryRange(ctx context.Context, req QueryRangeRequest) ([]models.Series, error) {
	key := cache.QueryKey("prometheus", req.Query, req.Start, req.End, req.Step.String())

	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		slog.Warn("prometheus cache read failed", "error", err)
	} else if ok {
		var series []models.Series
		if err := json.Unmarshal(raw, &series); err == nil {
			return series, nil
		}
	}

	series, err := c.next.QueryRange(ctx, req)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(series); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			slog.Warn("prometheus cache write failed", "error", err)
		}
	}
	return series, nil
}

func (c *CachedClient) Ready(ctx context.Context) error {
	return c.next.Ready(ctx)
}

var _ Client = (*CachedClient)(nil)
