package notify

import (
	"context"
	"net/http"
	"time"
)

// WebhookChannel posts a flat JSON document to an arbitrary endpoint.
type WebhookChannel struct {
	url        string
	httpClient *http.Client
}

// NewWebhookChannel creates a WebhookChannel for url.
func NewWebhookChannel(url string) *WebhookChannel {
	return &WebhookChannel{url: url, httpClient: &http.Client{}}
}

func (w *WebhookChannel) Name() string { return "webhook" }

func (w *WebhookChannel) Send(ctx context.Context, p Payload) error {
	return postJSON(ctx, w.httpClient, w.url, BuildWebhookBody(p))
}

// WebhookBody is the document posted by WebhookChannel.
type WebhookBody struct {
	AlertName string          `json:"alert_name"`
	Severity  string          `json:"severity"`
	Instance  *string         `json:"instance"`
	Analysis  webhookAnalysis `json:"analysis"`
	URLs      webhookURLs     `json:"urls"`
}

type webhookAnalysis struct {
	Summary            string    `json:"summary"`
	RootCause          string    `json:"root_cause"`
	Evidence           []string  `json:"evidence"`
	RemediationSteps   []string  `json:"remediation_steps"`
	SeverityAssessment string    `json:"severity_assessment"`
	Confidence         float64   `json:"confidence"`
	AnalyzedAt         time.Time `json:"analyzed_at"`
}

type webhookURLs struct {
	Alert      *string `json:"alert"`
	Prometheus string  `json:"prometheus"`
}

// BuildWebhookBody flattens p. Unknown instance and alert URL are sent as null.
func BuildWebhookBody(p Payload) WebhookBody {
	a := p.Analysis
	return WebhookBody{
		AlertName: p.AlertName,
		Severity:  p.Severity,
		Instance:  nullable(p.Instance),
		Analysis: webhookAnalysis{
			Summary:            a.Summary,
			RootCause:          a.RootCause,
			Evidence:           nonNil(a.Evidence),
			RemediationSteps:   nonNil(a.RemediationSteps),
			SeverityAssessment: a.SeverityAssessment,
			Confidence:         a.Confidence,
			AnalyzedAt:         a.AnalyzedAt.UTC(),
		},
		URLs: webhookURLs{
			Alert:      nullable(p.AlertURL),
			Prometheus: p.PrometheusURL,
		},
	}
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

var _ Channel = (*WebhookChannel)(nil)
