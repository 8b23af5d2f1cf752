package loki

import (
	"context"
	"encoding/json"
	"log/slog"
	"strconv"
	"time"

	"github.com/kiranshivaraju/alertsage/internal/cache"
	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// CachedClient memoizes QueryRange results in a shared cache.
// Cache failures never fail a query; they fall through to Loki.
type CachedClient struct {
	next  Client
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedClient wraps next with a read-through cache.
func NewCachedClient(next Client, c cache.Cache, ttl time.Duration) *CachedClient {
	return &CachedClient{next: next, cache: c, ttl: ttl}
}

func (c *CachedClient) QueryRange(ctx context.Context, req QueryRangeRequest) ([]models.LogLine, error) {
	key := cache.QueryKey("loki", req.Query, req.Start, req.End, strconv.Itoa(req.Limit), req.Direction)

	if raw, ok, err := c.cache.Get(ctx, key); err != nil {
		slog.Warn("loki cache read failed", "error", err)
	} else if ok {
		var lines []models.LogLine
		if err := json.Unmarshal(raw, &lines); err == nil {
			return lines, nil
		}
	}

	lines, err := c.next.QueryRange(ctx, req)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(lines); err == nil {
		if err := c.cache.Set(ctx, key, raw, c.ttl); err != nil {
			slog.Warn("loki cache write failed", "error", err)
		}
	}
	return lines, nil
}

func (c *CachedClient) Ready(ctx context.Context) error {
	return c.next.Ready(ctx)
}

var _ Client = (*CachedClient)(nil)
