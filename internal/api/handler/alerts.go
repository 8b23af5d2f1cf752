package handler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/alertsage/internal/ai"
	"github.com/kiranshivaraju/alertsage/internal/api/response"
	"github.com/kiranshivaraju/alertsage/internal/pipeline"
	"github.com/kiranshivaraju/alertsage/pkg/models"
)

// Enqueuer accepts alerts for background processing.
type Enqueuer interface {
	Enqueue(alert models.Alert) (uuid.UUID, error)
	QueueSize() int
}

// Submitter processes one alert and waits for the result.
type Submitter interface {
	Submit(ctx context.Context, alert models.Alert) (pipeline.Result, error)
}

// QueueStatus reports worker state.
type QueueStatus interface {
	QueueSize() int
	Processing() bool
}

// ReceiveRecorder counts inbound alerts by status.
type ReceiveRecorder interface {
	AlertReceived(status string)
}

type webhookResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message"`
	Processed int    `json:"processed"`
	QueueSize int    `json:"queue_size"`
}

// NewWebhookHandler returns an http.HandlerFunc for POST /api/v1/webhooks/alertmanager.
// Only firing alerts are queued; the rest are acknowledged and dropped.
func NewWebhookHandler(q Enqueuer, rec ReceiveRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload models.AlertmanagerWebhook
		if !response.Decode(w, r, &payload) {
			return
		}
		slog.Info("webhook received", "receiver", payload.Receiver, "status", payload.Status, "alerts", len(payload.Alerts))

		queued := 0
		for _, alert := range payload.Alerts {
			if rec != nil {
				rec.AlertReceived(alert.Status)
			}
			if !alert.IsFiring() {
				continue
			}
			if _, err := q.Enqueue(alert); err != nil {
				if errors.Is(err, pipeline.ErrQueueClosed) {
					response.Error(w, http.StatusServiceUnavailable, response.CodeShuttingDown,
						"The alert queue is closed", nil)
					return
				}
				slog.Error("failed to queue alert", "alert", alert.Name(), "error", err)
				continue
			}
			queued++
		}

		msg := "No firing alerts"
		if queued > 0 {
			msg = fmt.Sprintf("Queued %d alerts for analysis", queued)
		}
		response.Accepted(w, webhookResponse{
			Status:    "ok",
			Message:   msg,
			Processed: queued,
			QueueSize: q.QueueSize(),
		})
	}
}

// NewAnalyzeHandler returns an http.HandlerFunc for POST /api/v1/analyze.
// The alert waits its turn in the queue and the result is returned inline.
func NewAnalyzeHandler(s Submitter, rec ReceiveRecorder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var alert models.Alert
		if !response.Decode(w, r, &alert) {
			return
		}
		if rec != nil {
			rec.AlertReceived(alert.Status)
		}
		slog.Info("manual analysis requested", "alert", alert.Name())

		result, err := s.Submit(r.Context(), alert)
		if err != nil {
			var exhausted *ai.RetryExhaustedError
			switch {
			case errors.Is(err, pipeline.ErrNotFiring):
				response.Error(w, http.StatusUnprocessableEntity, response.CodeAlertNotFiring,
					"Only firing alerts can be analyzed", map[string]string{"status": alert.Status})
			case errors.Is(err, pipeline.ErrQueueClosed):
				response.Error(w, http.StatusServiceUnavailable, response.CodeShuttingDown,
					"The alert queue is closed", nil)
			case r.Context().Err() != nil:
				// client went away; nobody is listening
				return
			case errors.As(err, &exhausted):
				response.Error(w, http.StatusBadGateway, response.CodeProviderDown,
					fmt.Sprintf("The AI provider failed after %d attempts", exhausted.Attempts), nil)
			case errors.Is(err, ai.ErrAuthentication):
				response.Error(w, http.StatusBadGateway, response.CodeProviderAuth,
					"The AI provider rejected the configured credentials", nil)
			case errors.Is(err, ai.ErrInferenceTimeout):
				response.Error(w, http.StatusBadGateway, response.CodeInferenceTimeout,
					"AI analysis took too long and was cancelled", nil)
			default:
				response.Error(w, http.StatusBadGateway, response.CodeAnalysisFailed,
					"Alert analysis failed", map[string]string{"reason": err.Error()})
			}
			return
		}

		response.JSON(w, result)
	}
}

type queueResponse struct {
	QueueSize int    `json:"queue_size"`
	Status    string `json:"status"`
}

// NewQueueHandler returns an http.HandlerFunc for GET /api/v1/queue.
func NewQueueHandler(q QueueStatus) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := "idle"
		if q.Processing() || q.QueueSize() > 0 {
			status = "processing"
		}
		response.JSON(w, queueResponse{QueueSize: q.QueueSize(), Status: status})
	}
}
