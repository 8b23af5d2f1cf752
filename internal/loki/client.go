// Package loki queries Loki's HTTP API for the log lines around an alert.
package loki

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// Sentinel errors for Loki client failures.
var (
	ErrLokiUnreachable = errors.New("loki unreachable")
	ErrLokiQueryError  = errors.New("loki query error")
	ErrLokiTimeout     = errors.New("loki query timeout")
)

const (
	DirectionBackward = "backward"
	DirectionForward  = "forward"
)

// maxErrorBody bounds how much of a failed response is quoted in an error.
const maxErrorBody = 512

// levelLabels are checked in order for a line's severity.
var levelLabels = []string{"level", "detected_level", "severity", "lvl"}

// Client is the interface for querying Loki.
type Client interface {
	QueryRange(ctx context.Context, req QueryRangeRequest) ([]models.LogLine, error)
	Ready(ctx context.Context) error
}

// QueryRangeRequest defines parameters for a Loki range query.
// A zero Limit leaves the server default in place.
type QueryRangeRequest struct {
	Query     string
	Start     time.Time
	End       time.Time
	Limit     int
	Direction string
}

// HTTPClient implements Client using Loki's HTTP API.
type HTTPClient struct {
	baseURL  string
	username string
	password string
	orgID    string
	client   *http.Client
}

// NewHTTPClient creates a Loki client. Basic auth is sent only when both
// username and password are set; orgID becomes X-Scope-OrgID.
func NewHTTPClient(baseURL, username, password, orgID string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		username: username,
		password: password,
		orgID:    orgID,
		client:   &http.Client{Timeout: timeout},
	}
}

// QueryRange runs a log query and returns lines ordered by the requested direction.
// Backward, the default, puts the newest line first. Streams are merged, so
// lines from different label sets interleave by timestamp.
func (c *HTTPClient) QueryRange(ctx context.Context, req QueryRangeRequest) ([]models.LogLine, error) {
	direction := req.Direction
	if direction == "" {
		direction = DirectionBackward
	}

	params := url.Values{}
	params.Set("query", req.Query)
	params.Set("direction", direction)
	if !req.Start.IsZero() {
		params.Set("start", strconv.FormatInt(req.Start.UnixNano(), 10))
	}
	if !req.End.IsZero() {
		params.Set("end", strconv.FormatInt(req.End.UnixNano(), 10))
	}
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(req.Limit))
	}

	resp, err := c.get(ctx, "/loki/api/v1/query_range", params)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: status %d: %s", ErrLokiQueryError, resp.StatusCode, readSnippet(resp.Body))
	}

	var body queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %v", ErrLokiQueryError, err)
	}
	if body.Status != "" && body.Status != "success" {
		return nil, fmt.Errorf("%w: status %q: %s", ErrLokiQueryError, body.Status, body.Error)
	}
	// Metric queries (count_over_time and friends) return a matrix, which carries no lines.
	if body.Data.ResultType != "" && body.Data.ResultType != "streams" {
		return nil, fmt.Errorf("%w: expected streams, got %s result", ErrLokiQueryError, body.Data.ResultType)
	}

	lines := flatten(body.Data.Result)
	sortLines(lines, direction)
	return lines, nil
}

// Ready reports whether Loki's /ready endpoint answers 200.
func (c *HTTPClient) Ready(ctx context.Context) error {
	resp, err := c.get(ctx, "/ready", nil)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLokiUnreachable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: not ready (status %d): %s", ErrLokiUnreachable, resp.StatusCode, readSnippet(resp.Body))
	}
	return nil
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) (*http.Response, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.username != "" && c.password != "" {
		req.SetBasicAuth(c.username, c.password)
	}
	if c.orgID != "" {
		req.Header.Set("X-Scope-OrgID", c.orgID)
	}
	return c.client.Do(req)
}

// classifyError maps transport-level errors to sentinel errors.
// Context cancellation is kept visible so callers can tell shutdown from a slow backend.
func classifyError(err error) error {
	if errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %w", ErrLokiTimeout, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrLokiTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrLokiTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrLokiUnreachable, err)
}

// flatten turns Loki streams into log lines. Entries with an unparseable
// timestamp are dropped rather than dated to the epoch.
func flatten(streams []stream) []models.LogLine {
	lines := []models.LogLine{}
	for _, s := range streams {
		level := levelOf(s.Labels)
		for _, v := range s.Values {
			ns, err := strconv.ParseInt(v[0], 10, 64)
			if err != nil {
				slog.Debug("skipping loki entry with bad timestamp", "timestamp", v[0])
				continue
			}
			lines = append(lines, models.LogLine{
				Timestamp: time.Unix(0, ns).UTC(),
				Message:   v[1],
				Labels:    s.Labels,
				Level:     level,
			})
		}
	}
	return lines
}

func levelOf(labels map[string]string) string {
	for _, k := range levelLabels {
		if v := labels[k]; v != "" {
			return strings.ToLower(v)
		}
	}
	return ""
}

// sortLines puts lines from separate streams into one time order.
func sortLines(lines []models.LogLine, direction string) {
	sort.SliceStable(lines, func(i, j int) bool {
		if direction == DirectionForward {
			return lines[i].Timestamp.Before(lines[j].Timestamp)
		}
		return lines[i].Timestamp.After(lines[j].Timestamp)
	})
}

func readSnippet(r io.Reader) string {
	b, _ := io.ReadAll(io.LimitReader(r, maxErrorBody))
	return strings.TrimSpace(string(b))
}

type queryResponse struct {
	Status string    `json:"status"`
	Error  string    `json:"error,omitempty"`
	Data   queryData `json:"data"`
}

type queryData struct {
	ResultType string   `json:"resultType"`
	Result     []stream `json:"result"`
}

type stream struct {
	Labels map[string]string `json:"stream"`
	Values [][2]string       `json:"values"`
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
