// Package notify delivers analysis results to Slack and generic webhooks.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// DefaultTimeout bounds a single channel delivery.
const DefaultTimeout = 10 * time.Second

// ErrDeliveryFailed is returned when a channel rejects or cannot receive a payload.
var ErrDeliveryFailed = errors.New("notification delivery failed")

// Payload is the channel-agnostic notification content.
type Payload struct {
	AlertName     string
	Severity      string
	Instance      string
	Analysis      models.AnalysisResult
	AlertURL      string
	PrometheusURL string
}

// NewPayload builds a Payload from an alert and its analysis.
func NewPayload(alert models.Alert, result models.AnalysisResult, prometheusURL string) Payload {
	return Payload{
		AlertName:     result.AlertName,
		Severity:      result.Severity,
		Instance:      alert.Instance(),
		Analysis:      result,
		AlertURL:      alert.GeneratorURL,
		PrometheusURL: prometheusURL,
	}
}

// Channel is a single notification sink.
type Channel interface {
	Name() string
	Send(ctx context.Context, p Payload) error
}

// postJSON sends body to url and treats any non-2xx status as a delivery failure.
func postJSON(ctx context.Context, client *http.Client, url string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d", ErrDeliveryFailed, resp.StatusCode)
	}
	return nil
}
