package notify

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// FormatText renders an analysis as plain text for logs and terminals.
func FormatText(a models.AnalysisResult) string {
	evidence := make([]string, len(a.Evidence))
	for i, ev := range a.Evidence {
		evidence[i] = "  - " + ev
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Alert Analysis: %s\n", a.AlertName)
	fmt.Fprintf(&b, "Severity: %s\n", a.Severity)
	fmt.Fprintf(&b, "Confidence: %s\n\n", percent(a.Confidence))
	fmt.Fprintf(&b, "Summary:\n%s\n\n", a.Summary)
	fmt.Fprintf(&b, "Root Cause:\n%s\n\n", a.RootCause)
	fmt.Fprintf(&b, "Evidence:\n%s\n\n", strings.Join(evidence, "\n"))
	fmt.Fprintf(&b, "Remediation Steps:\n%s\n\n", numbered(a.RemediationSteps, "  "))
	fmt.Fprintf(&b, "Severity Assessment:\n%s\n\n", a.SeverityAssessment)
	fmt.Fprintf(&b, "Analyzed at: %s\n", a.AnalyzedAt.UTC().Format(time.RFC3339))
	return b.String()
}

func percent(f float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(f*100)))
}

func numbered(steps []string, indent string) string {
	lines := make([]string, len(steps))
	for i, s := range steps {
		lines[i] = fmt.Sprintf("%s%d. %s", indent, i+1, s)
	}
	return strings.Join(lines, "\n")
}
