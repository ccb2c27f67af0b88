package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
	"github.com/derekgallardo01/converge-gateway/internal/domain"
	"github.com/derekgallardo01/converge-gateway/internal/services/checkout"
)

// PaymentHandler serves server-side payment operations: charging stored
// tokens, capturing authorizations, and refunds.
type PaymentHandler struct {
	orchestrator *checkout.Orchestrator
	orders       ports.OrderSource
	logger       *zap.Logger
}

// NewPaymentHandler creates a payment handler.
func NewPaymentHandler(orchestrator *checkout.Orchestrator, orders ports.OrderSource, logger *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		orchestrator: orchestrator,
		orders:       orders,
		logger:       logger,
	}
}

type chargeRequest struct {
	CustomerID string `json:"customer_id"`
	TokenID    string `json:"token_id"`
}

// HandleCharge charges an order against a stored token.
// POST /api/v1/orders/{orderID}/charge
func (h *PaymentHandler) HandleCharge(w http.ResponseWriter, r *http.Request, orderID string) {
	ctx := r.Context()

	var req chargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TokenID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Data: domain.GenericDeclineMessage})
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Data: domain.UserMessage(err)})
		return
	}

	tc := &domain.TransactionContext{TokenID: req.TokenID}
	resp, err := h.orchestrator.ChargeStoredToken(ctx, order, tc, req.CustomerID)
	if err != nil {
		h.logger.Warn("stored token charge failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		writeJSON(w, http.StatusBadGateway, envelope{Success: false, Data: domain.UserMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{
		"transaction_id":     resp.TransactionID,
		"authorization_code": resp.ApprovalCode,
	}})
}

type captureRequest struct {
	TransactionID string `json:"transaction_id"`
}

// HandleCapture completes a prior authorization.
// POST /api/v1/orders/{orderID}/capture
func (h *PaymentHandler) HandleCapture(w http.ResponseWriter, r *http.Request, orderID string) {
	ctx := r.Context()

	var req captureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Data: domain.GenericDeclineMessage})
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Data: domain.UserMessage(err)})
		return
	}

	tc := &domain.TransactionContext{TransactionID: req.TransactionID}
	resp, err := h.orchestrator.Capture(ctx, order, tc)
	if err != nil {
		writeJSON(w, http.StatusBadGateway, envelope{Success: false, Data: domain.UserMessage(err)})
		return
	}

	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{
		"transaction_id": resp.TransactionID,
	}})
}

type refundRequest struct {
	TransactionID string `json:"transaction_id"`
	Amount        string `json:"amount"`
	Captured      bool   `json:"captured"`
}

// HandleRefund returns funds for a settled charge, or voids an uncaptured
// authorization.
// POST /api/v1/orders/{orderID}/refund
func (h *PaymentHandler) HandleRefund(w http.ResponseWriter, r *http.Request, orderID string) {
	ctx := r.Context()

	var req refundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.TransactionID == "" {
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Data: domain.GenericDeclineMessage})
		return
	}

	order, err := h.orders.Get(ctx, orderID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Data: domain.UserMessage(err)})
		return
	}

	amount := order.Total
	if req.Amount != "" {
		parsed, err := decimal.NewFromString(req.Amount)
		if err != nil || !parsed.IsPositive() {
			writeJSON(w, http.StatusBadRequest, envelope{Success: false, Data: domain.GenericDeclineMessage})
			return
		}
		amount = parsed
	}

	tc := &domain.TransactionContext{TransactionID: req.TransactionID, Captured: req.Captured}
	resp, err := h.orchestrator.RefundPayment(ctx, order, tc, amount)
	if err != nil {
		h.logger.Warn("refund failed",
			zap.String("order_id", orderID),
			zap.Error(err))
		writeJSON(w, http.StatusBadGateway, envelope{Success: false, Data: domain.UserMessage(err)})
		return
	}

	action := "refund"
	if !req.Captured {
		action = "void"
	}
	writeJSON(w, http.StatusOK, envelope{Success: true, Data: map[string]string{
		"action":         action,
		"transaction_id": resp.TransactionID,
	}})
}
