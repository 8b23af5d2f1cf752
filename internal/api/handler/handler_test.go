package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/alertsage/internal/ai"
	"github.com/kiranshivaraju/alertsage/internal/api/handler"
	"github.com/kiranshivaraju/alertsage/internal/pipeline"
	"github.com/kiranshivaraju/alertsage/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeQueue struct {
	queued     []models.Alert
	enqueueErr error
	processing bool

	submitFn func(alert models.Alert) (pipeline.Result, error)
}

func (q *fakeQueue) Enqueue(alert models.Alert) (uuid.UUID, error) {
	if q.enqueueErr != nil {
		return uuid.Nil, q.enqueueErr
	}
	q.queued = append(q.queued, alert)
	return uuid.New(), nil
}

func (q *fakeQueue) Submit(_ context.Context, alert models.Alert) (pipeline.Result, error) {
	return q.submitFn(alert)
}

func (q *fakeQueue) QueueSize() int   { return len(q.queued) }
func (q *fakeQueue) Processing() bool { return q.processing }

type receivedRecorder map[string]int

func (r receivedRecorder) AlertReceived(status string) { r[status]++ }

// --- helpers ---

func post(t *testing.T, h http.HandlerFunc, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h(w, r)
	return w
}

func dataOf(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Data
}

func errCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env.Error.Code
}

func alert(name, status string) models.Alert {
	return models.Alert{
		Status:   status,
		Labels:   map[string]string{"alertname": name, "severity": "critical"},
		StartsAt: "2026-01-01T00:00:00Z",
	}
}

// --- webhook ---

func TestWebhook_QueuesFiringAlertsOnly(t *testing.T) {
	q := &fakeQueue{}
	rec := receivedRecorder{}
	h := handler.NewWebhookHandler(q, rec)

	w := post(t, h, "/api/v1/webhooks/alertmanager", models.AlertmanagerWebhook{
		Receiver: "alertsage",
		Status:   "firing",
		Alerts: []models.Alert{
			alert("HighCPU", "firing"),
			alert("DiskFull", "resolved"),
			alert("HighMemory", "firing"),
		},
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "ok", data["status"])
	assert.Equal(t, "Queued 2 alerts for analysis", data["message"])
	assert.Equal(t, float64(2), data["processed"])
	assert.Equal(t, float64(2), data["queue_size"])

	require.Len(t, q.queued, 2)
	assert.Equal(t, "HighCPU", q.queued[0].Name())
	assert.Equal(t, "HighMemory", q.queued[1].Name())
	assert.Equal(t, 2, rec["firing"])
	assert.Equal(t, 1, rec["resolved"])
}

func TestWebhook_NoFiringAlerts(t *testing.T) {
	q := &fakeQueue{}
	w := post(t, handler.NewWebhookHandler(q, nil), "/api/v1/webhooks/alertmanager", models.AlertmanagerWebhook{
		Alerts: []models.Alert{alert("HighCPU", "resolved")},
	})

	assert.Equal(t, http.StatusAccepted, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "No firing alerts", data["message"])
	assert.Equal(t, float64(0), data["processed"])
	assert.Empty(t, q.queued)
}

func TestWebhook_InvalidJSON(t *testing.T) {
	w := post(t, handler.NewWebhookHandler(&fakeQueue{}, nil), "/api/v1/webhooks/alertmanager", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_REQUEST", errCode(t, w))
}

func TestWebhook_QueueClosed(t *testing.T) {
	q := &fakeQueue{enqueueErr: pipeline.ErrQueueClosed}
	w := post(t, handler.NewWebhookHandler(q, nil), "/api/v1/webhooks/alertmanager", models.AlertmanagerWebhook{
		Alerts: []models.Alert{alert("HighCPU", "firing")},
	})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "SHUTTING_DOWN", errCode(t, w))
}

// --- analyze ---

func TestAnalyze_ReturnsResult(t *testing.T) {
	q := &fakeQueue{submitFn: func(a models.Alert) (pipeline.Result, error) {
		return pipeline.Result{
			ID:       uuid.New(),
			Analysis: models.AnalysisResult{AlertName: a.Name(), Summary: "CPU saturated", Confidence: 0.9},
		}, nil
	}}
	w := post(t, handler.NewAnalyzeHandler(q, nil), "/api/v1/analyze", alert("HighCPU", "firing"))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := dataOf(t, w)
	analysis := data["analysis"].(map[string]any)
	assert.Equal(t, "HighCPU", analysis["alert_name"])
	assert.Equal(t, "CPU saturated", analysis["summary"])
}

func TestAnalyze_ErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not firing", pipeline.ErrNotFiring, http.StatusUnprocessableEntity, "ALERT_NOT_FIRING"},
		{"queue closed", pipeline.ErrQueueClosed, http.StatusServiceUnavailable, "SHUTTING_DOWN"},
		{"retries exhausted", &ai.RetryExhaustedError{Attempts: 3, Last: ai.ErrProviderUnavailable}, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE"},
		{"auth", ai.ErrAuthentication, http.StatusBadGateway, "AI_AUTHENTICATION_FAILED"},
		{"timeout", ai.ErrInferenceTimeout, http.StatusBadGateway, "AI_INFERENCE_TIMEOUT"},
		{"other", errors.New("boom"), http.StatusBadGateway, "ANALYSIS_FAILED"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := &fakeQueue{submitFn: func(models.Alert) (pipeline.Result, error) {
				return pipeline.Result{}, tt.err
			}}
			w := post(t, handler.NewAnalyzeHandler(q, nil), "/api/v1/analyze", alert("HighCPU", "firing"))
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, errCode(t, w))
		})
	}
}

func TestAnalyze_InvalidJSON(t *testing.T) {
	w := post(t, handler.NewAnalyzeHandler(&fakeQueue{}, nil), "/api/v1/analyze", "[]")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// --- queue, health, root ---

func TestQueue_Status(t *testing.T) {
	tests := []struct {
		name       string
		q          *fakeQueue
		wantStatus string
		wantSize   float64
	}{
		{"idle", &fakeQueue{}, "idle", 0},
		{"busy worker", &fakeQueue{processing: true}, "processing", 0},
		{"backlog", &fakeQueue{queued: []models.Alert{{}, {}}}, "processing", 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			handler.NewQueueHandler(tt.q)(w, httptest.NewRequest(http.MethodGet, "/api/v1/queue", nil))

			assert.Equal(t, http.StatusOK, w.Code)
			data := dataOf(t, w)
			assert.Equal(t, tt.wantStatus, data["status"])
			assert.Equal(t, tt.wantSize, data["queue_size"])
		})
	}
}

func TestHealth_AllOK(t *testing.T) {
	svc := handler.Services{Prometheus: "http://prom:9090", Loki: "http://loki:3100", LLMModel: "deepseek-v3"}
	checks := map[string]handler.Check{
		"prometheus": func(context.Context) error { return nil },
		"loki":       func(context.Context) error { return nil },
	}
	w := httptest.NewRecorder()
	handler.NewHealthHandler(svc, &fakeQueue{queued: []models.Alert{{}}}, checks)(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	data := dataOf(t, w)
	assert.Equal(t, "healthy", data["status"])
	assert.Equal(t, float64(1), data["queue_size"])
	services := data["services"].(map[string]any)
	assert.Equal(t, "deepseek-v3", services["llm_model"])
	assert.Equal(t, map[string]any{"prometheus": "ok", "loki": "ok"}, data["checks"])
}

func TestHealth_Degraded(t *testing.T) {
	checks := map[string]handler.Check{
		"prometheus": func(context.Context) error { return nil },
		"loki":       func(context.Context) error { return errors.New("connection refused") },
	}
	w := httptest.NewRecorder()
	handler.NewHealthHandler(handler.Services{}, &fakeQueue{}, checks)(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, "DEGRADED", errCode(t, w))
}

func TestHealth_FailingCheckDoesNotCancelOthers(t *testing.T) {
	slowOK := func(ctx context.Context) error {
		select {
		case <-time.After(50 * time.Millisecond):
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	checks := map[string]handler.Check{
		"loki":       func(context.Context) error { return errors.New("connection refused") },
		"prometheus": slowOK,
	}
	w := httptest.NewRecorder()
	handler.NewHealthHandler(handler.Services{}, &fakeQueue{}, checks)(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Error struct {
			Details map[string]string `json:"details"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, map[string]string{"loki": "degraded", "prometheus": "ok"}, body.Error.Details)
}

func TestRoot(t *testing.T) {
	w := httptest.NewRecorder()
	handler.NewRootHandler()(w, httptest.NewRequest(http.MethodGet, "/", nil))

	data := dataOf(t, w)
	assert.Equal(t, "alertsage", data["service"])
	assert.Equal(t, "running", data["status"])
	assert.Equal(t, handler.Version, data["version"])
}
