// Package response writes the JSON envelopes every alertsage endpoint returns.
// Successful bodies are wrapped as {"data": ...}; failures as
// {"error": {"code", "message", "details"}}.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
)

// Error codes returned in the error envelope.
const (
	CodeInvalidRequest    = "INVALID_REQUEST"
	CodeAlertNotFiring    = "ALERT_NOT_FIRING"
	CodeShuttingDown      = "SHUTTING_DOWN"
	CodeProviderDown      = "AI_PROVIDER_UNAVAILABLE"
	CodeProviderAuth      = "AI_AUTHENTICATION_FAILED"
	CodeInferenceTimeout  = "AI_INFERENCE_TIMEOUT"
	CodeAnalysisFailed    = "ANALYSIS_FAILED"
	CodeDegraded          = "DEGRADED"
	CodeRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	CodeInternal          = "INTERNAL_ERROR"
	CodeNotImplemented    = "NOT_IMPLEMENTED"
	CodePayloadTooLarge   = "PAYLOAD_TOO_LARGE"
)

// MaxBodyBytes caps inbound request bodies. Alertmanager batches stay far below it.
const MaxBodyBytes = 4 << 20

type envelope struct {
	Data any `json:"data"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func JSON(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, envelope{Data: data})
}

// Accepted is used when work has been queued but not yet done.
func Accepted(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusAccepted, envelope{Data: data})
}

func Error(w http.ResponseWriter, status int, code, message string, details any) {
	writeJSON(w, status, errorEnvelope{Error: errorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// Decode reads a JSON request body into v. On failure it writes the matching
// error response and returns false; the caller should stop handling.
func Decode(w http.ResponseWriter, r *http.Request, v any) bool {
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxBodyBytes)).Decode(v)
	if err == nil {
		return true
	}

	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		Error(w, http.StatusRequestEntityTooLarge, CodePayloadTooLarge,
			fmt.Sprintf("Request body exceeds %d bytes", tooLarge.Limit), nil)
		return false
	}
	Error(w, http.StatusBadRequest, CodeInvalidRequest, "Invalid JSON body",
		map[string]string{"reason": err.Error()})
	return false
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("failed to write response body", "status", status, "error", err)
	}
}
