// Package handlers exposes the gateway's HTTP surface: the checkout
// endpoints the storefront calls, token management, and diagnostics.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/converge"
	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
	"github.com/derekgallardo01/converge-gateway/internal/domain"
	"github.com/derekgallardo01/converge-gateway/internal/services/checkout"
)

// envelope is the JSON shape every endpoint answers with. Failure data is a
// customer-safe message string, never internal error detail.
type envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
}

// CheckoutHandler serves the hosted checkout flow.
type CheckoutHandler struct {
	orchestrator *checkout.Orchestrator
	builder      *converge.RequestBuilder
	orders       ports.OrderSource
	nonces       *NonceStore
	logger       *zap.Logger
}

// NewCheckoutHandler creates a checkout handler.
func NewCheckoutHandler(
	orchestrator *checkout.Orchestrator,
	builder *converge.RequestBuilder,
	orders ports.OrderSource,
	nonces *NonceStore,
	logger *zap.Logger,
) *CheckoutHandler {
	return &CheckoutHandler{
		orchestrator: orchestrator,
		builder:      builder,
		orders:       orders,
		nonces:       nonces,
		logger:       logger,
	}
}

type sessionRequest struct {
	OrderID    string `json:"order_id"`
	Nonce      string `json:"nonce"`
	CustomerID string `json:"customer_id"`
	Method     string `json:"method"`
	Tokenize   bool   `json:"tokenize_payment_method"`
	TestAmount string `json:"test_amount,omitempty"`
}

type sessionResponse struct {
	TransactionToken string            `json:"transaction_token"`
	Operation        string            `json:"operation"`
	PaymentFields    map[string]string `json:"payment_fields"`
}

// HandleSession issues the session token and widget field set for an order.
// POST /api/v1/checkout/session
func (h *CheckoutHandler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, domain.GenericDeclineMessage)
		return
	}

	if !h.nonces.Verify(req.OrderID, req.Nonce) {
		h.logger.Warn("session request with bad nonce",
			zap.String("order_id", req.OrderID))
		h.fail(w, http.StatusForbidden, domain.GenericDeclineMessage)
		return
	}

	order, err := h.orders.Get(ctx, req.OrderID)
	if err != nil {
		h.fail(w, http.StatusNotFound, domain.UserMessage(err))
		return
	}

	tc := &domain.TransactionContext{Tokenize: req.Tokenize}
	if req.TestAmount != "" {
		if amt, err := decimal.NewFromString(req.TestAmount); err == nil && amt.IsPositive() {
			tc.TestAmount = &amt
		}
	}

	method := checkout.MethodCard
	if req.Method == string(checkout.MethodEcheck) {
		method = checkout.MethodEcheck
	}

	attempt, err := h.orchestrator.Begin(ctx, order, tc, req.CustomerID, method)
	if err != nil {
		h.logger.Warn("checkout session failed",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		h.fail(w, http.StatusBadGateway, attempt.FailureMessage())
		return
	}

	h.respond(w, http.StatusOK, sessionResponse{
		TransactionToken: attempt.SessionToken().Value,
		Operation:        string(attempt.Operation),
		PaymentFields:    h.builder.CheckoutFields(attempt.Operation, order, tc),
	})
}

type widgetResultRequest struct {
	OrderID       string `json:"order_id"`
	Outcome       string `json:"outcome"`
	TransactionID string `json:"transaction_id"`
	Token         string `json:"token"`
	ErrorCode     string `json:"error_code"`
	ErrorName     string `json:"error_name"`
	ErrorMessage  string `json:"error_message"`
}

// HandleWidgetResult receives the widget's terminal callback relayed by the
// browser. Duplicate deliveries are acknowledged but ignored.
// POST /api/v1/checkout/widget-result
func (h *CheckoutHandler) HandleWidgetResult(w http.ResponseWriter, r *http.Request) {
	var req widgetResultRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, domain.GenericDeclineMessage)
		return
	}

	delivered := h.orchestrator.DeliverWidgetResult(req.OrderID, ports.WidgetResult{
		Outcome:       ports.WidgetOutcome(req.Outcome),
		TransactionID: req.TransactionID,
		Token:         req.Token,
		ErrorCode:     req.ErrorCode,
		ErrorName:     req.ErrorName,
		ErrorMessage:  req.ErrorMessage,
	})

	h.respond(w, http.StatusOK, map[string]bool{"delivered": delivered})
}

type completeRequest struct {
	OrderID    string `json:"order_id"`
	CustomerID string `json:"customer_id"`
	Method     string `json:"method"`
	Tokenize   bool   `json:"tokenize_payment_method"`

	// The hidden fields the order form resubmits with. Their presence is
	// what lets a resubmission finalize instead of starting over.
	TransactionID string `json:"converge-transaction-id"`
	PaymentToken  string `json:"converge-token"`
}

// HandleComplete finalizes an attempt from the resubmitted order form: the
// widget-reported transaction is re-queried server side and only then does
// the order become paid.
// POST /api/v1/checkout/complete
func (h *CheckoutHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req completeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, domain.GenericDeclineMessage)
		return
	}

	if req.TransactionID == "" && req.PaymentToken == "" {
		h.fail(w, http.StatusBadRequest, domain.GenericDeclineMessage)
		return
	}

	order, err := h.orders.Get(ctx, req.OrderID)
	if err != nil {
		h.fail(w, http.StatusNotFound, domain.UserMessage(err))
		return
	}

	tc := &domain.TransactionContext{
		Tokenize:            req.Tokenize,
		WidgetTransactionID: req.TransactionID,
		WidgetToken:         req.PaymentToken,
	}

	method := checkout.MethodCard
	if req.Method == string(checkout.MethodEcheck) {
		method = checkout.MethodEcheck
	}

	attempt, err := h.orchestrator.Begin(ctx, order, tc, req.CustomerID, method)
	if err != nil {
		h.fail(w, http.StatusBadGateway, attempt.FailureMessage())
		return
	}

	if err := h.orchestrator.Finalize(ctx, order, attempt); err != nil {
		h.logger.Warn("checkout finalize failed",
			zap.String("order_id", req.OrderID),
			zap.Error(err))
		h.fail(w, http.StatusBadGateway, domain.UserMessage(err))
		return
	}

	h.respond(w, http.StatusOK, map[string]string{
		"state":          string(attempt.State()),
		"transaction_id": tc.TransactionID,
	})
}

type awaitRequest struct {
	OrderID string `json:"order_id"`
}

// HandleAwait blocks until the widget reports for an in-flight attempt,
// then finalizes. Storefronts that relay widget callbacks through
// HandleWidgetResult get a single synchronous completion this way instead
// of resubmitting the order form.
// POST /api/v1/checkout/await
func (h *CheckoutHandler) HandleAwait(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req awaitRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.fail(w, http.StatusBadRequest, domain.GenericDeclineMessage)
		return
	}

	attempt, ok := h.orchestrator.Attempt(req.OrderID)
	if !ok {
		h.fail(w, http.StatusNotFound, domain.GenericDeclineMessage)
		return
	}

	if _, err := h.orchestrator.AwaitWidget(ctx, attempt); err != nil {
		h.fail(w, http.StatusBadGateway, domain.UserMessage(err))
		return
	}

	order, err := h.orders.Get(ctx, req.OrderID)
	if err != nil {
		h.fail(w, http.StatusNotFound, domain.UserMessage(err))
		return
	}

	if err := h.orchestrator.Finalize(ctx, order, attempt); err != nil {
		h.fail(w, http.StatusBadGateway, domain.UserMessage(err))
		return
	}

	h.respond(w, http.StatusOK, map[string]string{
		"state":          string(attempt.State()),
		"transaction_id": attempt.Context.TransactionID,
	})
}

// HandleNonce issues a checkout nonce for an order.
// POST /api/v1/checkout/orders/{orderID}/nonce
func (h *CheckoutHandler) HandleNonce(w http.ResponseWriter, r *http.Request, orderID string) {
	if _, err := h.orders.Get(r.Context(), orderID); err != nil {
		h.fail(w, http.StatusNotFound, domain.UserMessage(err))
		return
	}
	h.respond(w, http.StatusOK, map[string]string{"nonce": h.nonces.Issue(orderID)})
}

func (h *CheckoutHandler) respond(w http.ResponseWriter, status int, data interface{}) {
	writeJSON(w, status, envelope{Success: true, Data: data})
}

func (h *CheckoutHandler) fail(w http.ResponseWriter, status int, message string) {
	if message == "" {
		message = domain.GenericDeclineMessage
	}
	writeJSON(w, status, envelope{Success: false, Data: message})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
