// Package checkout drives the hosted-payment checkout flow: session token
// issuance, waiting on the widget, and server-side reconciliation of what
// the widget reported.
package checkout

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
	"github.com/derekgallardo01/converge-gateway/internal/domain"
	"github.com/derekgallardo01/converge-gateway/internal/services/tokens"
	"github.com/derekgallardo01/converge-gateway/pkg/observability"
	"github.com/derekgallardo01/converge-gateway/pkg/resilience"
)

// State is the position of a checkout attempt in its lifecycle.
type State string

const (
	StateNeedSessionToken     State = "need_session_token"
	StateAwaitingWidgetResult State = "awaiting_widget_result"
	StateNeedServerQuery      State = "need_server_query"
	StateReconciled           State = "reconciled"
	StateFailed               State = "failed"
)

// Attempt is one customer's pass through hosted checkout. Attempts are
// single use: a retry after failure starts a new one.
type Attempt struct {
	OrderID    string
	CustomerID string
	Operation  domain.Operation
	Context    *domain.TransactionContext

	mu           sync.Mutex
	state        State
	sessionToken *domain.SessionToken
	failure      string

	// result receives the widget's report. Buffered so the browser callback
	// never blocks; delivered guards exactly-once consumption.
	result    chan ports.WidgetResult
	delivered bool
}

// State returns the attempt's current state.
func (a *Attempt) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// SessionToken returns the issued session token, nil before issuance.
func (a *Attempt) SessionToken() *domain.SessionToken {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessionToken
}

// FailureMessage returns the customer-safe failure text for a failed
// attempt.
func (a *Attempt) FailureMessage() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.failure
}

func (a *Attempt) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Attempt) fail(msg string) {
	a.mu.Lock()
	a.state = StateFailed
	a.failure = msg
	a.mu.Unlock()
}

// Config holds orchestrator policy.
type Config struct {
	Policy ChargePolicy

	// AllowTestAmounts honors TransactionContext.TestAmount. Never enabled
	// against the production endpoints.
	AllowTestAmounts bool
}

// Orchestrator owns checkout attempts. It is a plain dependency-injected
// component; nothing here is process-global.
type Orchestrator struct {
	api      ports.ProcessorAPI
	tokens   *tokens.Service
	orders   ports.OrderSource
	cfg      Config
	timeouts *resilience.TimeoutConfig
	logger   *zap.Logger

	mu       sync.Mutex
	attempts map[string]*Attempt // keyed by order ID
}

// NewOrchestrator creates an orchestrator.
func NewOrchestrator(api ports.ProcessorAPI, tokenSvc *tokens.Service, orders ports.OrderSource, cfg Config, timeouts *resilience.TimeoutConfig, logger *zap.Logger) *Orchestrator {
	if timeouts == nil {
		timeouts = resilience.DefaultTimeoutConfig()
	}
	return &Orchestrator{
		api:      api,
		tokens:   tokenSvc,
		orders:   orders,
		cfg:      cfg,
		timeouts: timeouts,
		logger:   logger,
		attempts: make(map[string]*Attempt),
	}
}

// Begin starts a checkout attempt for an order: decide the operation, then
// obtain the session token bound to it.
//
// If the transaction context already carries a widget-reported transaction
// ID or token, the widget round already happened. Begin then skips token
// issuance entirely and hands back an attempt ready for server query; this
// is the idempotency gate that keeps a resubmitted order form from opening
// a second payment.
func (o *Orchestrator) Begin(ctx context.Context, order *domain.Order, tc *domain.TransactionContext, customerID string, method PaymentMethod) (*Attempt, error) {
	if tc.TestAmount != nil && !o.cfg.AllowTestAmounts {
		tc.TestAmount = nil
	}

	op := OperationFor(order, method, o.cfg.Policy, tc.Tokenize)
	attempt := &Attempt{
		OrderID:    order.ID,
		CustomerID: customerID,
		Operation:  op,
		Context:    tc,
		state:      StateNeedSessionToken,
		result:     make(chan ports.WidgetResult, 1),
	}

	if tc.WidgetTransactionID != "" || tc.WidgetToken != "" {
		attempt.setState(StateNeedServerQuery)
		o.track(attempt)
		o.logger.Info("widget result already present, skipping session token",
			zap.String("order_id", order.ID))
		return attempt, nil
	}

	amount := decimal.Zero
	if op.IsPayment() {
		amount = tc.ChargeTotal(order)
	}

	st, err := o.api.SessionToken(ctx, op, amount)
	if err != nil {
		attempt.fail(domain.UserMessage(err))
		o.track(attempt)
		observability.RecordCheckoutAttempt(string(op), string(StateFailed))
		return attempt, err
	}

	attempt.mu.Lock()
	attempt.sessionToken = st
	attempt.state = StateAwaitingWidgetResult
	attempt.mu.Unlock()
	o.track(attempt)

	o.logger.Info("checkout attempt started",
		zap.String("order_id", order.ID),
		zap.String("operation", string(op)))
	return attempt, nil
}

func (o *Orchestrator) track(a *Attempt) {
	o.mu.Lock()
	o.attempts[a.OrderID] = a
	o.mu.Unlock()
}

// Attempt returns the live attempt for an order, if any.
func (o *Orchestrator) Attempt(orderID string) (*Attempt, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	a, ok := o.attempts[orderID]
	return a, ok
}

// DeliverWidgetResult hands the widget's report to the waiting attempt.
// Exactly one delivery is consumed; duplicates are dropped.
func (o *Orchestrator) DeliverWidgetResult(orderID string, res ports.WidgetResult) bool {
	a, ok := o.Attempt(orderID)
	if !ok {
		return false
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.delivered || a.state != StateAwaitingWidgetResult {
		return false
	}
	a.delivered = true
	a.result <- res
	return true
}

// AwaitWidget blocks until the widget reports or the wait budget runs out.
// On approval the attempt advances to the server-query state carrying the
// reported transaction ID and token.
func (o *Orchestrator) AwaitWidget(ctx context.Context, a *Attempt) (ports.WidgetResult, error) {
	waitCtx, cancel := o.timeouts.WidgetContext(ctx)
	defer cancel()

	select {
	case <-waitCtx.Done():
		observability.RecordWidgetResult("timeout")
		a.fail(domain.UserMessage(domain.ErrWidgetTimeout))
		return ports.WidgetResult{}, domain.ErrWidgetTimeout

	case res := <-a.result:
		observability.RecordWidgetResult(string(res.Outcome))

		if res.IsError() {
			o.logger.Warn("widget reported error",
				zap.String("order_id", a.OrderID),
				zap.String("error_code", res.ErrorCode),
				zap.String("error_name", res.ErrorName))
			a.fail(domain.GenericDeclineMessage)
			return res, domain.NewProcessorError(res.ErrorCode, res.ErrorMessage)
		}

		if res.Outcome == ports.WidgetDeclined {
			// Issuer declines surface the processor's wording verbatim.
			msg := res.ErrorMessage
			if msg == "" {
				msg = domain.GenericDeclineMessage
			}
			a.fail(msg)
			return res, domain.NewProcessorError("", msg)
		}

		a.Context.WidgetTransactionID = res.TransactionID
		a.Context.WidgetToken = res.Token
		a.setState(StateNeedServerQuery)
		return res, nil
	}
}

// Finalize is the server-side validation step: never trust what the browser
// reported, re-query the transaction and check it belongs to this order.
// Only a reconciled attempt marks the order paid.
func (o *Orchestrator) Finalize(ctx context.Context, order *domain.Order, a *Attempt) error {
	tc := a.Context

	if tc.WidgetTransactionID == "" && tc.WidgetToken == "" {
		a.fail(domain.GenericDeclineMessage)
		return domain.NewValidationError("no widget result to finalize")
	}

	// Tokenize-only attempts have no transaction to verify; the token
	// itself is confirmed against the processor during registration.
	if tc.WidgetTransactionID == "" {
		if err := o.registerToken(ctx, order, a); err != nil {
			a.fail(domain.UserMessage(err))
			observability.RecordCheckoutAttempt(string(a.Operation), string(StateFailed))
			return err
		}
		a.setState(StateReconciled)
		observability.RecordCheckoutAttempt(string(a.Operation), string(StateReconciled))
		return nil
	}

	resp, err := o.api.QueryTransaction(ctx, tc.WidgetTransactionID)
	if err != nil {
		a.fail(domain.UserMessage(err))
		observability.RecordCheckoutAttempt(string(a.Operation), string(StateFailed))
		return err
	}

	// The queried transaction must reference this order. A mismatch means
	// the browser reported someone else's transaction; that is fatal, not
	// retryable.
	if resp.Description != order.ID {
		a.fail(domain.GenericDeclineMessage)
		observability.RecordCheckoutAttempt(string(a.Operation), string(StateFailed))
		o.logger.Error("transaction query order mismatch",
			zap.String("order_id", order.ID),
			zap.String("reported_txn_id", tc.WidgetTransactionID),
			zap.String("queried_description", resp.Description))
		return domain.NewReconciliationError("queried transaction does not belong to this order")
	}

	if resp.Held() {
		if err := o.orders.Hold(ctx, order.ID, domain.StatusHeld); err != nil {
			return err
		}
		a.setState(StateReconciled)
		observability.RecordCheckoutAttempt(string(a.Operation), "held")
		o.logger.Warn("transaction held for auth center referral",
			zap.String("order_id", order.ID),
			zap.String("transaction_id", resp.TransactionID))
		return nil
	}

	if !resp.Approved() {
		msg := resp.ResultMessage
		if msg == "" {
			msg = domain.GenericDeclineMessage
		}
		a.fail(msg)
		observability.RecordCheckoutAttempt(string(a.Operation), string(StateFailed))
		return domain.NewProcessorError(resp.ErrorCode, msg)
	}

	tc.TransactionID = resp.TransactionID
	tc.AuthorizationCode = resp.ApprovalCode
	tc.AccountNumber = resp.CardNumber
	tc.CardBrand = domain.NormalizeCardBrand(resp.CardType)
	tc.ExpMonth, tc.ExpYear = domain.ParseExpDate(resp.ExpDate)
	tc.Captured = a.Operation == domain.OperationCharge || a.Operation == domain.OperationEcheckDebit

	if err := o.orders.MarkPaid(ctx, order.ID, tc); err != nil {
		return err
	}

	if tc.WidgetToken != "" {
		// An approved payment stands even when saving the new token fails;
		// the customer just re-enters the card next time.
		if err := o.registerToken(ctx, order, a); err != nil {
			o.logger.Warn("saving payment token after approved payment failed",
				zap.String("order_id", order.ID),
				zap.Error(err))
		}
	}

	a.setState(StateReconciled)
	observability.RecordCheckoutAttempt(string(a.Operation), string(StateReconciled))
	o.logger.Info("checkout attempt reconciled",
		zap.String("order_id", order.ID),
		zap.String("transaction_id", tc.TransactionID))
	return nil
}

func (o *Orchestrator) registerToken(ctx context.Context, order *domain.Order, a *Attempt) error {
	if a.Context.WidgetToken == "" {
		return domain.NewValidationError("no token to register")
	}
	_, err := o.tokens.Register(ctx, order, a.CustomerID, a.Context.WidgetToken)
	return err
}

// ChargeStoredToken runs a server-side payment against a stored token:
// refresh the token's billing profile if the order's differs, then charge
// or authorize per policy.
func (o *Orchestrator) ChargeStoredToken(ctx context.Context, order *domain.Order, tc *domain.TransactionContext, customerID string) (*domain.TransactionResponse, error) {
	token, err := o.tokens.EnsureFresh(ctx, order, customerID, tc.TokenID)
	if err != nil {
		return nil, err
	}
	tc.TokenID = token.ID

	var resp *domain.TransactionResponse
	if o.cfg.Policy == AuthorizeOnly {
		resp, err = o.api.Authorize(ctx, order, tc)
	} else {
		resp, err = o.api.Charge(ctx, order, tc)
	}
	if err != nil {
		return resp, err
	}

	if resp.Held() {
		if err := o.orders.Hold(ctx, order.ID, domain.StatusHeld); err != nil {
			return resp, err
		}
		return resp, nil
	}

	if !resp.Approved() {
		msg := resp.ResultMessage
		if msg == "" {
			msg = domain.GenericDeclineMessage
		}
		return resp, domain.NewProcessorError("", msg)
	}

	tc.TransactionID = resp.TransactionID
	tc.AuthorizationCode = resp.ApprovalCode
	tc.AccountNumber = resp.CardNumber
	tc.CardBrand = domain.NormalizeCardBrand(resp.CardType)
	tc.ExpMonth, tc.ExpYear = domain.ParseExpDate(resp.ExpDate)
	tc.Captured = o.cfg.Policy != AuthorizeOnly

	if err := o.orders.MarkPaid(ctx, order.ID, tc); err != nil {
		return resp, err
	}
	return resp, nil
}

// Capture completes a prior authorization.
func (o *Orchestrator) Capture(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error) {
	resp, err := o.api.Capture(ctx, order, tc)
	if err != nil {
		return resp, err
	}
	if !resp.Approved() {
		return resp, domain.NewProcessorError("", resp.ResultMessage)
	}
	tc.Captured = true
	return resp, nil
}

// RefundPayment returns funds for a settled charge. Uncaptured
// authorizations cannot be refunded; they are voided instead.
func (o *Orchestrator) RefundPayment(ctx context.Context, order *domain.Order, tc *domain.TransactionContext, amount decimal.Decimal) (*domain.TransactionResponse, error) {
	var resp *domain.TransactionResponse
	var err error
	if tc.Captured {
		resp, err = o.api.Refund(ctx, order, tc, amount)
	} else {
		resp, err = o.api.Void(ctx, order, tc)
	}
	if err != nil {
		return resp, err
	}
	if !resp.Approved() {
		return resp, domain.NewProcessorError("", resp.ResultMessage)
	}
	return resp, nil
}
