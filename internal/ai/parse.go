package ai

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/kiranshivaraju/alertsage/pkg/models"
)

const (
	notProvided       = "Not provided"
	defaultConfidence = 0.75
	maxRawEvidence    = 500
)

var (
	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)

	fallbackSteps = []string{
		"Review the alert manually",
		"Check system logs and metrics",
		"Contact the on-call engineer",
	}
)

// jsonKind classifies a raw JSON value by its first significant byte.
type jsonKind int

const (
	kindMissing jsonKind = iota
	kindNull
	kindString
	kindNumber
	kindBool
	kindArray
	kindObject
)

func kindOf(raw json.RawMessage) jsonKind {
	t := bytes.TrimSpace(raw)
	if len(t) == 0 {
		return kindMissing
	}
	switch t[0] {
	case 'n':
		return kindNull
	case '"':
		return kindString
	case 't', 'f':
		return kindBool
	case '[':
		return kindArray
	case '{':
		return kindObject
	default:
		return kindNumber
	}
}

// ParseAnalysis converts model output into an AnalysisResult. It never fails:
// output that holds no JSON object yields FallbackResult, and ok is false.
func ParseAnalysis(raw string) (result models.AnalysisResult, ok bool) {
	fields, ok := decodeObject(raw)
	if !ok {
		return FallbackResult(raw), false
	}

	return models.AnalysisResult{
		Summary:            textField(fields["summary"]),
		RootCause:          textField(fields["root_cause"]),
		Evidence:           listField(fields["evidence"]),
		RemediationSteps:   listField(fields["remediation_steps"]),
		SeverityAssessment: textField(fields["severity_assessment"]),
		Confidence:         confidenceField(fields["confidence"]),
	}, true
}

// FallbackResult is substituted when the model's output cannot be decoded.
func FallbackResult(raw string) models.AnalysisResult {
	return models.AnalysisResult{
		Summary:            "Analysis parsing failed",
		RootCause:          "Unable to determine - LLM response format error",
		Evidence:           []string{string(firstRunes(raw, maxRawEvidence))},
		RemediationSteps:   append([]string(nil), fallbackSteps...),
		SeverityAssessment: "Unknown - Manual review required",
		Confidence:         0.0,
	}
}

// decodeObject accepts the whole text as a JSON object or, failing that, the
// outermost {...} span once reasoning blocks and code fences are removed.
func decodeObject(raw string) (map[string]json.RawMessage, bool) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &fields); err == nil && fields != nil {
		return fields, true
	}

	cleaned := thinkBlock.ReplaceAllString(raw, "")
	cleaned = strings.ReplaceAll(cleaned, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")

	start := strings.Index(cleaned, "{")
	end := strings.LastIndex(cleaned, "}")
	if start < 0 || end <= start {
		return nil, false
	}

	fields = nil
	if err := json.Unmarshal([]byte(cleaned[start:end+1]), &fields); err != nil || fields == nil {
		return nil, false
	}
	return fields, true
}

func textField(raw json.RawMessage) string {
	switch kindOf(raw) {
	case kindMissing, kindNull:
		return notProvided
	case kindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return notProvided
		}
		return s
	default:
		return compact(raw)
	}
}

func listField(raw json.RawMessage) []string {
	switch kindOf(raw) {
	case kindMissing, kindNull:
		return []string{notProvided}
	case kindArray:
		var items []json.RawMessage
		if err := json.Unmarshal(raw, &items); err != nil {
			return []string{compact(raw)}
		}
		out := make([]string, 0, len(items))
		for _, item := range items {
			switch kindOf(item) {
			case kindNull, kindMissing:
				continue
			case kindString:
				var s string
				_ = json.Unmarshal(item, &s)
				out = append(out, s)
			default:
				out = append(out, compact(item))
			}
		}
		return out
	default:
		return []string{textField(raw)}
	}
}

// confidenceField reads a score in [0,1]. Percentages and the words
// high, medium and low are accepted; anything else gets the default.
func confidenceField(raw json.RawMessage) float64 {
	switch kindOf(raw) {
	case kindNumber:
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			return defaultConfidence
		}
		return normalizeConfidence(f)
	case kindString:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return defaultConfidence
		}
		s = strings.ToLower(strings.TrimSpace(s))
		switch s {
		case "high":
			return 0.9
		case "medium":
			return 0.75
		case "low":
			return 0.5
		}
		if f, err := strconv.ParseFloat(strings.TrimSuffix(s, "%"), 64); err == nil {
			return normalizeConfidence(f)
		}
		return defaultConfidence
	default:
		return defaultConfidence
	}
}

func normalizeConfidence(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return defaultConfidence
	}
	if f > 1 && f <= 100 {
		f /= 100
	}
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func compact(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func firstRunes(s string, n int) []rune {
	r := []rune(s)
	if len(r) > n {
		r = r[:n]
	}
	return r
}
