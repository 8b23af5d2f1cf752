package models

import (
	"time"

	"github.com/google/uuid"
)

// AnalysisResult is the structured root-cause analysis for one alert.
// Evidence and RemediationSteps are always non-nil lists.
type AnalysisResult struct {
	ID                 uuid.UUID `json:"id"`
	AlertName          string    `json:"alert_name"`
	Severity           string    `json:"severity"`
	Summary            string    `json:"summary"`
	RootCause          string    `json:"root_cause"`
	Evidence           []string  `json:"evidence"`
	RemediationSteps   []string  `json:"remediation_steps"`
	SeverityAssessment string    `json:"severity_assessment"`
	Confidence         float64   `json:"confidence"`
	Model              string    `json:"model,omitempty"`
	AnalyzedAt         time.Time `json:"analyzed_at"`
}

// AnalysisContext is everything handed to the LLM for a single alert.
type AnalysisContext struct {
	AlertName   string
	Severity    string
	Summary     string
	Description string
	Labels      map[string]string
	Metrics     []MetricSeries
	Logs        []LogBatch
}

// NewAnalysisContext copies the identifying fields out of an alert.
func NewAnalysisContext(a Alert, metrics []MetricSeries, logs []LogBatch) AnalysisContext {
	return AnalysisContext{
		AlertName:   a.Name(),
		Severity:    a.Severity(),
		Summary:     a.Summary(),
		Description: a.Description(),
		Labels:      a.Labels,
		Metrics:     metrics,
		Logs:        logs,
	}
}
