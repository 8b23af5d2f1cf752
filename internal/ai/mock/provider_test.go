package mock_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kiranshivaraju/alertsage/internal/ai"
	"github.com/kiranshivaraju/alertsage/internal/ai/mock"
	"github.com/kiranshivaraju/alertsage/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleMessages() []models.ChatMessage {
	return []models.ChatMessage{{Role: models.RoleUser, Content: "analyze"}}
}

func TestNewMockProvider(t *testing.T) {
	p := mock.NewMockProvider()
	assert.Equal(t, "mock", p.Name())

	text, err := p.Complete(context.Background(), sampleMessages())
	require.NoError(t, err)
	assert.Equal(t, mock.DefaultResponse, text)
	assert.Equal(t, 1, p.Calls())
	assert.Equal(t, sampleMessages(), p.LastMessages())
}

func TestNewFailingProvider(t *testing.T) {
	want := errors.New("boom")
	p := mock.NewFailingProvider(want)

	_, err := p.Complete(context.Background(), sampleMessages())
	assert.ErrorIs(t, err, want)
	assert.Equal(t, "mock-failing", p.Name())
}

func TestNewTimeoutProvider(t *testing.T) {
	p := mock.NewTimeoutProvider()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := p.Complete(ctx, sampleMessages())
	assert.ErrorIs(t, err, ai.ErrInferenceTimeout)
}

func TestNewSequenceProvider_RepeatsLastStep(t *testing.T) {
	p := mock.NewSequenceProvider(
		mock.Step{Err: ai.ErrProviderUnavailable},
		mock.Step{Text: "ok"},
	)

	_, err := p.Complete(context.Background(), nil)
	assert.ErrorIs(t, err, ai.ErrProviderUnavailable)

	for i := 0; i < 2; i++ {
		text, err := p.Complete(context.Background(), nil)
		require.NoError(t, err)
		assert.Equal(t, "ok", text)
	}
	assert.Equal(t, 3, p.Calls())
}

func TestZeroValueProvider(t *testing.T) {
	var p mock.MockProvider
	text, err := p.Complete(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, text)
	assert.Nil(t, p.LastMessages())
}
