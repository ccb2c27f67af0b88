package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"
)

// DiagnosticsHandler accepts browser-side diagnostic log posts from the
// checkout page. It is fire-and-forget by contract: the browser never waits
// on it and failures are swallowed, so a logging hiccup can never interfere
// with a payment in flight.
type DiagnosticsHandler struct {
	enabled bool
	logger  *zap.Logger
}

// NewDiagnosticsHandler creates a diagnostics handler.
func NewDiagnosticsHandler(enabled bool, logger *zap.Logger) *DiagnosticsHandler {
	return &DiagnosticsHandler{enabled: enabled, logger: logger}
}

type diagnosticEvent struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	OrderID string `json:"order_id"`
}

// HandleLog records a diagnostic event. Always answers 204.
// POST /api/v1/checkout/log
func (h *DiagnosticsHandler) HandleLog(w http.ResponseWriter, r *http.Request) {
	defer w.WriteHeader(http.StatusNoContent)

	if !h.enabled {
		return
	}

	var ev diagnosticEvent
	if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
		return
	}

	h.logger.Info("checkout diagnostic",
		zap.String("event", ev.Name),
		zap.String("order_id", ev.OrderID),
		zap.String("message", ev.Message))
}
