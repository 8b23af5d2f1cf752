package models

import (
	"strings"
	"time"
)

const (
	AlertStatusFiring   = "firing"
	AlertStatusResolved = "resolved"
)

// AlertmanagerWebhook is the batch payload Alertmanager posts to a webhook receiver.
type AlertmanagerWebhook struct {
	Version           string            `json:"version"`
	GroupKey          string            `json:"groupKey"`
	TruncatedAlerts   int               `json:"truncatedAlerts"`
	Status            string            `json:"status"`
	Receiver          string            `json:"receiver"`
	GroupLabels       map[string]string `json:"groupLabels"`
	CommonLabels      map[string]string `json:"commonLabels"`
	CommonAnnotations map[string]string `json:"commonAnnotations"`
	ExternalURL       string            `json:"externalURL"`
	Alerts            []Alert           `json:"alerts"`
}

// Alert is a single alert as delivered by the alert router. It is treated as read-only.
type Alert struct {
	Status       string            `json:"status"`
	Labels       map[string]string `json:"labels"`
	Annotations  map[string]string `json:"annotations"`
	StartsAt     string            `json:"startsAt"`
	EndsAt       string            `json:"endsAt,omitempty"`
	GeneratorURL string            `json:"generatorURL,omitempty"`
	Fingerprint  string            `json:"fingerprint,omitempty"`
}

func (a Alert) IsFiring() bool {
	return strings.EqualFold(a.Status, AlertStatusFiring)
}

// Name returns the alertname label, or "Unknown" when the router omitted it.
func (a Alert) Name() string {
	if v := a.Labels["alertname"]; v != "" {
		return v
	}
	return "Unknown"
}

func (a Alert) Severity() string {
	if v := a.Labels["severity"]; v != "" {
		return v
	}
	return "unknown"
}

func (a Alert) Instance() string {
	return a.Labels["instance"]
}

// Summary prefers the summary annotation and falls back to message.
func (a Alert) Summary() string {
	if v := a.Annotations["summary"]; v != "" {
		return v
	}
	return a.Annotations["message"]
}

func (a Alert) Description() string {
	return a.Annotations["description"]
}

// StartTime parses StartsAt as RFC 3339. Unparseable or missing values yield now.
func (a Alert) StartTime(now time.Time) time.Time {
	if a.StartsAt == "" {
		return now
	}
	t, err := time.Parse(time.RFC3339Nano, a.StartsAt)
	if err != nil {
		return now
	}
	return t
}
