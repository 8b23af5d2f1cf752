package ai

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// DefaultTimeout bounds a single completion call.
const DefaultTimeout = 180 * time.Second

// Recorder counts completion attempts by outcome.
type Recorder interface {
	LLMAttempt(outcome string)
}

type nopRecorder struct{}

func (nopRecorder) LLMAttempt(string) {}

// Options configures an Analyzer. Zero values fall back to defaults.
type Options struct {
	SystemPrompt string
	Timeout      time.Duration
	Retry        RetryPolicy
	Recorder     Recorder
}

// Analyzer turns an AnalysisContext into an AnalysisResult by prompting a chat
// provider. Transient provider failures are retried under the RetryPolicy.
type Analyzer struct {
	provider     models.ChatProvider
	systemPrompt string
	timeout      time.Duration
	policy       RetryPolicy
	recorder     Recorder
	now          func() time.Time
}

// NewAnalyzer creates a new Analyzer.
func NewAnalyzer(provider models.ChatProvider, opts Options) *Analyzer {
	if opts.SystemPrompt == "" {
		opts.SystemPrompt = DefaultSystemPrompt
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retry.MaxAttempts <= 0 {
		opts.Retry = DefaultRetryPolicy()
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Analyzer{
		provider:     provider,
		systemPrompt: opts.SystemPrompt,
		timeout:      opts.Timeout,
		policy:       opts.Retry,
		recorder:     opts.Recorder,
		now:          time.Now,
	}
}

// Analyze prompts the provider and parses its reply. Output that cannot be
// parsed yields the fallback result rather than an error; an error means the
// provider could not be reached within the retry budget.
func (a *Analyzer) Analyze(ctx context.Context, actx models.AnalysisContext) (models.AnalysisResult, error) {
	messages := BuildMessages(a.systemPrompt, actx)

	var raw string
	err := retry(ctx, a.policy, func(ctx context.Context, attempt int) error {
		callCtx, cancel := context.WithTimeout(ctx, a.timeout)
		defer cancel()

		start := time.Now()
		text, err := a.provider.Complete(callCtx, messages)
		if err != nil {
			a.recorder.LLMAttempt(attemptOutcome(err))
			if errors.Is(err, ErrInferenceTimeout) {
				slog.Warn("llm call timed out; a smaller or faster model may help",
					"model", a.provider.Name(), "timeout", a.timeout, "attempt", attempt)
			}
			return err
		}
		a.recorder.LLMAttempt("success")
		slog.Debug("llm call completed", "model", a.provider.Name(), "attempt", attempt,
			"duration_ms", time.Since(start).Milliseconds(), "response_chars", utf8.RuneCountInString(text))
		raw = text
		return nil
	})
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("analyzing %s: %w", actx.AlertName, err)
	}

	result, ok := ParseAnalysis(raw)
	if !ok {
		slog.Warn("llm response was not valid JSON, using fallback analysis",
			"alert", actx.AlertName, "model", a.provider.Name())
	}

	if result.Confidence < 0 {
		result.Confidence = 0
	}
	if result.Confidence > 1.0 {
		result.Confidence = 1.0
	}
	result.RootCause = truncateString(result.RootCause, 4000)
	result.Summary = truncateString(result.Summary, 2000)

	result.ID = uuid.New()
	result.AlertName = actx.AlertName
	result.Severity = actx.Severity
	result.Model = a.provider.Name()
	result.AnalyzedAt = a.now().UTC()
	return result, nil
}

func attemptOutcome(err error) string {
	switch {
	case errors.Is(err, ErrInferenceTimeout):
		return "timeout"
	case errors.Is(err, ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, ErrProviderUnavailable):
		return "unavailable"
	case errors.Is(err, ErrAuthentication):
		return "auth_error"
	default:
		return "error"
	}
}

// truncateString truncates s to maxBytes without splitting UTF-8 runes.
func truncateString(s string, maxBytes int) string {
	if len(s) <= maxBytes {
		return s
	}
	for maxBytes > 0 && !utf8.RuneStart(s[maxBytes]) {
		maxBytes--
	}
	return s[:maxBytes]
}
