package mock

import (
	"context"
	"sync"

	"github.com/kiranshivaraju/alertsage/internal/ai"
	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// DefaultResponse is a well-formed analysis reply.
const DefaultResponse = `{
  "summary": "Mock analysis summary for testing",
  "root_cause": "Simulated root cause from mock provider",
  "evidence": ["cpu_usage at 97%", "OOM messages in container logs"],
  "remediation_steps": ["Restart the pod", "Raise the memory limit"],
  "severity_assessment": "High - user-facing latency",
  "confidence": 0.85
}`

// MockProvider satisfies models.ChatProvider for testing.
type MockProvider struct {
	Name_        string
	CompleteFunc func(ctx context.Context, messages []models.ChatMessage) (string, error)

	mu    sync.Mutex
	calls [][]models.ChatMessage
}

func (m *MockProvider) Name() string { return m.Name_ }

func (m *MockProvider) Complete(ctx context.Context, messages []models.ChatMessage) (string, error) {
	m.mu.Lock()
	m.calls = append(m.calls, messages)
	m.mu.Unlock()

	if m.CompleteFunc != nil {
		return m.CompleteFunc(ctx, messages)
	}
	return "", nil
}

// Calls returns how many times Complete was invoked.
func (m *MockProvider) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.calls)
}

// LastMessages returns the conversation passed to the most recent call.
func (m *MockProvider) LastMessages() []models.ChatMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.calls) == 0 {
		return nil
	}
	return m.calls[len(m.calls)-1]
}

// NewMockProvider returns a MockProvider that always answers with DefaultResponse.
func NewMockProvider() *MockProvider {
	return NewStaticProvider(DefaultResponse)
}

// NewStaticProvider returns a MockProvider that always answers with text.
func NewStaticProvider(text string) *MockProvider {
	return &MockProvider{
		Name_: "mock",
		CompleteFunc: func(_ context.Context, _ []models.ChatMessage) (string, error) {
			return text, nil
		},
	}
}

// NewFailingProvider returns a MockProvider that always returns the given error.
func NewFailingProvider(err error) *MockProvider {
	return &MockProvider{
		Name_: "mock-failing",
		CompleteFunc: func(_ context.Context, _ []models.ChatMessage) (string, error) {
			return "", err
		},
	}
}

// NewTimeoutProvider returns a MockProvider that blocks until context is cancelled.
func NewTimeoutProvider() *MockProvider {
	return &MockProvider{
		Name_: "mock-timeout",
		CompleteFunc: func(ctx context.Context, _ []models.ChatMessage) (string, error) {
			<-ctx.Done()
			return "", ai.ErrInferenceTimeout
		},
	}
}

// Step is one scripted reply of a SequenceProvider.
type Step struct {
	Text string
	Err  error
}

// NewSequenceProvider replays steps in order; the last step repeats once the script runs out.
func NewSequenceProvider(steps ...Step) *MockProvider {
	var (
		mu sync.Mutex
		i  int
	)
	return &MockProvider{
		Name_: "mock-sequence",
		CompleteFunc: func(_ context.Context, _ []models.ChatMessage) (string, error) {
			mu.Lock()
			defer mu.Unlock()
			if len(steps) == 0 {
				return "", nil
			}
			s := steps[i]
			if i < len(steps)-1 {
				i++
			}
			return s.Text, s.Err
		},
	}
}

// Compile-time check that MockProvider implements ChatProvider.
var _ models.ChatProvider = (*MockProvider)(nil)
