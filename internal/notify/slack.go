package notify

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const maxSlackEvidence = 5

// Slack rejects section text over 3000 characters and header text over 150.
const (
	maxSectionRunes = 2900
	maxHeaderRunes  = 150
)

var severityColors = map[string]string{
	"critical": "#d32f2f",
	"warning":  "#f57c00",
	"info":     "#1976d2",
}

const defaultColor = "#757575"

// SlackChannel posts Block Kit attachments to a Slack incoming webhook.
type SlackChannel struct {
	url        string
	httpClient *http.Client
}

// NewSlackChannel creates a SlackChannel for the given incoming webhook URL.
func NewSlackChannel(url string) *SlackChannel {
	return &SlackChannel{url: url, httpClient: &http.Client{}}
}

func (s *SlackChannel) Name() string { return "slack" }

func (s *SlackChannel) Send(ctx context.Context, p Payload) error {
	return postJSON(ctx, s.httpClient, s.url, BuildSlackMessage(p))
}

type slackText struct {
	Type  string `json:"type"`
	Text  string `json:"text"`
	Emoji bool   `json:"emoji,omitempty"`
}

type slackBlock struct {
	Type     string      `json:"type"`
	Text     *slackText  `json:"text,omitempty"`
	Fields   []slackText `json:"fields,omitempty"`
	Elements []slackText `json:"elements,omitempty"`
}

type slackAttachment struct {
	Color  string       `json:"color"`
	Blocks []slackBlock `json:"blocks"`
}

// SlackMessage is the body posted to an incoming webhook.
type SlackMessage struct {
	Attachments []slackAttachment `json:"attachments"`
}

// SeverityColor maps an alert severity to its attachment colour.
func SeverityColor(severity string) string {
	if c, ok := severityColors[strings.ToLower(severity)]; ok {
		return c
	}
	return defaultColor
}

// BuildSlackMessage renders p as a single coloured attachment.
func BuildSlackMessage(p Payload) SlackMessage {
	a := p.Analysis

	evidence := a.Evidence
	if len(evidence) > maxSlackEvidence {
		evidence = evidence[:maxSlackEvidence]
	}
	bullets := make([]string, len(evidence))
	for i, ev := range evidence {
		bullets[i] = "• " + ev
	}

	section := func(title, body string) slackBlock {
		return slackBlock{Type: "section", Text: &slackText{Type: "mrkdwn", Text: "*" + title + ":*\n" + clip(body, maxSectionRunes)}}
	}

	blocks := []slackBlock{
		{Type: "header", Text: &slackText{Type: "plain_text", Text: clip("🚨 Alert Analysis: "+p.AlertName, maxHeaderRunes), Emoji: true}},
		{Type: "section", Fields: []slackText{
			{Type: "mrkdwn", Text: "*Severity:*\n" + strings.ToUpper(p.Severity)},
			{Type: "mrkdwn", Text: "*Confidence:*\n" + percent(a.Confidence)},
		}},
		section("Summary", a.Summary),
		section("Root Cause", a.RootCause),
		section("Evidence", strings.Join(bullets, "\n")),
		section("Remediation Steps", numbered(a.RemediationSteps, "")),
		section("Severity Assessment", a.SeverityAssessment),
		{Type: "context", Elements: []slackText{{
			Type: "mrkdwn",
			Text: fmt.Sprintf("Analyzed at %s | <%s|Prometheus Dashboard>", a.AnalyzedAt.UTC().Format(time.RFC3339), p.PrometheusURL),
		}}},
	}

	return SlackMessage{Attachments: []slackAttachment{{Color: SeverityColor(p.Severity), Blocks: blocks}}}
}

// clip cuts s to at most limit runes, marking the cut with an ellipsis.
func clip(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit-1]) + "…"
}

var _ Channel = (*SlackChannel)(nil)
