package ai

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// Prompt-size bounds. Changing them changes what the model sees for every alert.
const (
	maxSeriesPerQuery = 3
	maxLinesPerQuery  = 10
	maxLineRunes      = 200
)

// FormatMetrics renders metric series as a bounded text block. Each series is
// reduced to its first, middle and last samples plus a sample count.
func FormatMetrics(metrics []models.MetricSeries) string {
	if len(metrics) == 0 {
		return "No metrics data available."
	}

	var out []string
	for _, m := range metrics {
		out = append(out, fmt.Sprintf("\n**%s:**", m.Name))

		series := m.Series
		if len(series) > maxSeriesPerQuery {
			series = series[:maxSeriesPerQuery]
		}
		for _, s := range series {
			if len(s.Samples) == 0 {
				continue
			}
			first := s.Samples[0].Value
			mid := first
			if len(s.Samples) > 1 {
				mid = s.Samples[len(s.Samples)/2].Value
			}
			last := s.Samples[len(s.Samples)-1].Value

			out = append(out, "  - "+formatLabels(s.Labels))
			out = append(out, fmt.Sprintf("    Start: %s, Mid: %s, End: %s (%d data points)",
				formatValue(first), formatValue(mid), formatValue(last), len(s.Samples)))
		}
	}

	if len(out) == 0 {
		return "No metric results found."
	}
	return strings.Join(out, "\n")
}

// FormatLogs renders log batches as a bounded text block: at most ten lines per
// batch, each cut to 200 characters, followed by a count of the lines left out.
func FormatLogs(logs []models.LogBatch) string {
	if len(logs) == 0 {
		return "No log data available."
	}

	var out []string
	total := 0
	for _, b := range logs {
		if len(b.Lines) == 0 {
			continue
		}
		out = append(out, fmt.Sprintf("\n**%s** (%d entries):", b.Name, len(b.Lines)))

		shown := b.Lines
		if len(shown) > maxLinesPerQuery {
			shown = shown[:maxLinesPerQuery]
		}
		for _, l := range shown {
			out = append(out, fmt.Sprintf("  [%s] %s", l.Timestamp.UTC().Format(time.RFC3339), truncateRunes(l.Message, maxLineRunes)))
		}

		total += len(b.Lines)
		if n := len(b.Lines) - maxLinesPerQuery; n > 0 {
			out = append(out, fmt.Sprintf("  ... +%d more entries", n))
		}
	}

	if len(out) == 0 {
		return "No relevant logs found."
	}
	return strings.Join(append([]string{fmt.Sprintf("Total log entries: %d", total)}, out...), "\n")
}

// formatLabels renders k=v pairs sorted by key, leaving out the metric name.
func formatLabels(labels map[string]string) string {
	keys := make([]string, 0, len(labels))
	for k := range labels {
		if k == "__name__" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + labels[k]
	}
	return strings.Join(pairs, ", ")
}

func formatValue(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// truncateRunes cuts s to limit runes and marks the cut with an ellipsis.
func truncateRunes(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
