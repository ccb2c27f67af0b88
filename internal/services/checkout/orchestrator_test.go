package checkout

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/memory"
	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
	"github.com/derekgallardo01/converge-gateway/internal/domain"
	"github.com/derekgallardo01/converge-gateway/internal/services/tokens"
	"github.com/derekgallardo01/converge-gateway/pkg/resilience"
)

// fakeAPI records processor calls and answers with canned responses.
type fakeAPI struct {
	sessionCalls   int
	sessionOp      domain.Operation
	sessionAmount  decimal.Decimal
	sessionErr     error
	authorizeCalls int
	chargeCalls    int
	captureCalls   int
	refundCalls    int
	voidCalls      int
	updateCalls    int

	chargeResp   *domain.TransactionResponse
	queryTxnResp *domain.TransactionResponse
	queryTxnErr  error
	queryTokResp *domain.TransactionResponse
}

func (f *fakeAPI) SessionToken(_ context.Context, op domain.Operation, amount decimal.Decimal) (*domain.SessionToken, error) {
	f.sessionCalls++
	f.sessionOp = op
	f.sessionAmount = amount
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	amt := ""
	if op.IsPayment() {
		amt = amount.StringFixed(2)
	}
	return &domain.SessionToken{Value: "SESSION123", Operation: op, Amount: amt}, nil
}

func (f *fakeAPI) Authorize(context.Context, *domain.Order, *domain.TransactionContext) (*domain.TransactionResponse, error) {
	f.authorizeCalls++
	return f.chargeResp, nil
}

func (f *fakeAPI) Charge(context.Context, *domain.Order, *domain.TransactionContext) (*domain.TransactionResponse, error) {
	f.chargeCalls++
	return f.chargeResp, nil
}

func (f *fakeAPI) Capture(context.Context, *domain.Order, *domain.TransactionContext) (*domain.TransactionResponse, error) {
	f.captureCalls++
	return f.chargeResp, nil
}

func (f *fakeAPI) Refund(context.Context, *domain.Order, *domain.TransactionContext, decimal.Decimal) (*domain.TransactionResponse, error) {
	f.refundCalls++
	return f.chargeResp, nil
}

func (f *fakeAPI) Void(context.Context, *domain.Order, *domain.TransactionContext) (*domain.TransactionResponse, error) {
	f.voidCalls++
	return f.chargeResp, nil
}

func (f *fakeAPI) CheckDebit(context.Context, *domain.Order, *domain.TransactionContext) (*domain.TransactionResponse, error) {
	return f.chargeResp, nil
}

func (f *fakeAPI) Tokenize(context.Context, *domain.Order) (*domain.TransactionResponse, error) {
	return f.queryTokResp, nil
}

func (f *fakeAPI) UpdateToken(context.Context, *domain.Order, string) (*domain.TransactionResponse, error) {
	f.updateCalls++
	return &domain.TransactionResponse{Result: "0", ResultMessage: domain.StatusSuccess}, nil
}

func (f *fakeAPI) DeleteToken(context.Context, string) (*domain.TransactionResponse, error) {
	return &domain.TransactionResponse{Result: "0", ResultMessage: domain.StatusSuccess}, nil
}

func (f *fakeAPI) QueryToken(context.Context, string) (*domain.TransactionResponse, error) {
	if f.queryTokResp != nil {
		return f.queryTokResp, nil
	}
	return &domain.TransactionResponse{
		Result:     "0",
		CardNumber: "41**********1111",
		CardType:   "VISA",
		ExpDate:    "1229",
	}, nil
}

func (f *fakeAPI) QueryTransaction(context.Context, string) (*domain.TransactionResponse, error) {
	if f.queryTxnErr != nil {
		return nil, f.queryTxnErr
	}
	return f.queryTxnResp, nil
}

type fixture struct {
	api    *fakeAPI
	tokens *memory.TokenStore
	orders *memory.OrderSource
	orch   *Orchestrator
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	api := &fakeAPI{}
	store := memory.NewTokenStore()
	orders := memory.NewOrderSource()
	svc := tokens.NewService(api, store, zap.NewNop())
	orch := NewOrchestrator(api, svc, orders, cfg, resilience.TestTimeoutConfig(), zap.NewNop())
	return &fixture{api: api, tokens: store, orders: orders, orch: orch}
}

func checkoutOrder(t *testing.T, total string) *domain.Order {
	t.Helper()
	d, err := decimal.NewFromString(total)
	require.NoError(t, err)
	return &domain.Order{
		ID:     "order-1",
		Number: "1001",
		Total:  d,
		Billing: domain.BillingProfile{
			FirstName: "Ada",
			LastName:  "Lovelace",
			Email:     "ada@example.com",
		},
	}
}

func approvedQueryResp(orderID string) *domain.TransactionResponse {
	return &domain.TransactionResponse{
		Result:        "0",
		ResultMessage: domain.StatusApproval,
		ApprovalCode:  "CMC648",
		TransactionID: "txn-1",
		Description:   orderID,
		CardNumber:    "41**********1111",
		CardType:      "VISA",
		ExpDate:       "1229",
	}
}

func TestOperationFor(t *testing.T) {
	paid := checkoutOrder(t, "49.99")
	free := checkoutOrder(t, "0")
	deferred := checkoutOrder(t, "49.99")
	deferred.Deferred = true

	tests := []struct {
		name     string
		order    *domain.Order
		method   PaymentMethod
		policy   ChargePolicy
		tokenize bool
		want     domain.Operation
	}{
		{"card charge", paid, MethodCard, ChargeImmediately, false, domain.OperationCharge},
		{"card authorize", paid, MethodCard, AuthorizeOnly, false, domain.OperationAuthorize},
		{"echeck always debits", paid, MethodEcheck, AuthorizeOnly, false, domain.OperationEcheckDebit},
		{"zero total tokenizes", free, MethodCard, ChargeImmediately, false, domain.OperationTokenize},
		{"deferred payment tokenizes", deferred, MethodCard, ChargeImmediately, false, domain.OperationTokenize},
		{"explicit tokenize wins over charge", paid, MethodCard, ChargeImmediately, true, domain.OperationTokenize},
		{"explicit tokenize wins over authorize", paid, MethodCard, AuthorizeOnly, true, domain.OperationTokenize},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OperationFor(tt.order, tt.method, tt.policy, tt.tokenize))
		})
	}
}

func TestBeginIssuesSessionToken(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")

	a, err := f.orch.Begin(context.Background(), order, &domain.TransactionContext{}, "cust-1", MethodCard)
	require.NoError(t, err)

	assert.Equal(t, StateAwaitingWidgetResult, a.State())
	assert.Equal(t, domain.OperationCharge, a.Operation)
	require.NotNil(t, a.SessionToken())
	assert.Equal(t, "SESSION123", a.SessionToken().Value)
	assert.Equal(t, "49.99", f.api.sessionAmount.StringFixed(2))

	tracked, ok := f.orch.Attempt(order.ID)
	require.True(t, ok)
	assert.Same(t, a, tracked)
}

func TestBeginExplicitTokenize(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	tc := &domain.TransactionContext{Tokenize: true}

	a, err := f.orch.Begin(context.Background(), order, tc, "cust-1", MethodCard)
	require.NoError(t, err)

	// A tokenize session carries no amount even on a priced order.
	assert.Equal(t, domain.OperationTokenize, a.Operation)
	assert.Equal(t, domain.OperationTokenize, f.api.sessionOp)
	assert.True(t, f.api.sessionAmount.IsZero())
}

func TestBeginSessionTokenFailure(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	f.api.sessionErr = &domain.GatewayError{
		Kind:        domain.ErrorKindTransport,
		Message:     "session token endpoint returned HTTP 401",
		UserMessage: domain.RegistrationErrorMessage,
	}
	order := checkoutOrder(t, "49.99")

	a, err := f.orch.Begin(context.Background(), order, &domain.TransactionContext{}, "cust-1", MethodCard)
	require.Error(t, err)
	assert.Equal(t, StateFailed, a.State())
	assert.Equal(t, domain.RegistrationErrorMessage, a.FailureMessage())
}

func TestBeginIdempotencyGate(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	tc := &domain.TransactionContext{WidgetTransactionID: "txn-1"}

	a, err := f.orch.Begin(context.Background(), order, tc, "cust-1", MethodCard)
	require.NoError(t, err)

	// The widget round already happened; no second session may open.
	assert.Zero(t, f.api.sessionCalls)
	assert.Equal(t, StateNeedServerQuery, a.State())
	assert.Nil(t, a.SessionToken())
}

func TestBeginClearsDisallowedTestAmount(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately, AllowTestAmounts: false})
	order := checkoutOrder(t, "49.99")
	override := decimal.NewFromFloat(0.01)
	tc := &domain.TransactionContext{TestAmount: &override}

	_, err := f.orch.Begin(context.Background(), order, tc, "cust-1", MethodCard)
	require.NoError(t, err)
	assert.Nil(t, tc.TestAmount)
	assert.Equal(t, "49.99", f.api.sessionAmount.StringFixed(2))
}

func TestAwaitWidgetApproved(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	a, err := f.orch.Begin(context.Background(), order, &domain.TransactionContext{}, "cust-1", MethodCard)
	require.NoError(t, err)

	delivered := f.orch.DeliverWidgetResult(order.ID, ports.WidgetResult{
		Outcome:       ports.WidgetApproved,
		TransactionID: "txn-1",
		Token:         "tok-1",
	})
	require.True(t, delivered)

	res, err := f.orch.AwaitWidget(context.Background(), a)
	require.NoError(t, err)
	assert.Equal(t, ports.WidgetApproved, res.Outcome)
	assert.Equal(t, StateNeedServerQuery, a.State())
	assert.Equal(t, "txn-1", a.Context.WidgetTransactionID)
	assert.Equal(t, "tok-1", a.Context.WidgetToken)
}

func TestAwaitWidgetDeclined(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	a, err := f.orch.Begin(context.Background(), order, &domain.TransactionContext{}, "cust-1", MethodCard)
	require.NoError(t, err)

	f.orch.DeliverWidgetResult(order.ID, ports.WidgetResult{
		Outcome:      ports.WidgetDeclined,
		ErrorMessage: "DECLINED: INSUFFICIENT FUNDS",
	})

	_, err = f.orch.AwaitWidget(context.Background(), a)
	require.Error(t, err)
	assert.Equal(t, StateFailed, a.State())
	// Issuer decline wording surfaces verbatim.
	assert.Equal(t, "DECLINED: INSUFFICIENT FUNDS", a.FailureMessage())
}

func TestAwaitWidgetDeclineWithErrorCodeIsError(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	a, err := f.orch.Begin(context.Background(), order, &domain.TransactionContext{}, "cust-1", MethodCard)
	require.NoError(t, err)

	f.orch.DeliverWidgetResult(order.ID, ports.WidgetResult{
		Outcome:      ports.WidgetDeclined,
		ErrorCode:    "5001",
		ErrorMessage: "The card number appears to be invalid",
	})

	_, err = f.orch.AwaitWidget(context.Background(), a)
	require.Error(t, err)
	assert.Equal(t, StateFailed, a.State())
	// Malfunctions never leak the processor message to the customer.
	assert.Equal(t, domain.GenericDeclineMessage, a.FailureMessage())
}

func TestAwaitWidgetTimeout(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	a, err := f.orch.Begin(context.Background(), order, &domain.TransactionContext{}, "cust-1", MethodCard)
	require.NoError(t, err)

	_, err = f.orch.AwaitWidget(context.Background(), a)
	assert.ErrorIs(t, err, domain.ErrWidgetTimeout)
	assert.Equal(t, StateFailed, a.State())
}

func TestDeliverWidgetResultExactlyOnce(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	_, err := f.orch.Begin(context.Background(), order, &domain.TransactionContext{}, "cust-1", MethodCard)
	require.NoError(t, err)

	res := ports.WidgetResult{Outcome: ports.WidgetApproved, TransactionID: "txn-1"}
	assert.True(t, f.orch.DeliverWidgetResult(order.ID, res))
	assert.False(t, f.orch.DeliverWidgetResult(order.ID, res))
	assert.False(t, f.orch.DeliverWidgetResult("no-such-order", res))
}

func TestFinalizeApproved(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	f.orders.Put(order)
	f.api.queryTxnResp = approvedQueryResp(order.ID)

	tc := &domain.TransactionContext{WidgetTransactionID: "txn-1", WidgetToken: "tok-1"}
	a, err := f.orch.Begin(context.Background(), order, tc, "cust-1", MethodCard)
	require.NoError(t, err)

	require.NoError(t, f.orch.Finalize(context.Background(), order, a))
	assert.Equal(t, StateReconciled, a.State())
	assert.Equal(t, "txn-1", tc.TransactionID)
	assert.Equal(t, "CMC648", tc.AuthorizationCode)
	assert.Equal(t, "visa", tc.CardBrand)
	assert.Equal(t, 12, tc.ExpMonth)
	assert.Equal(t, 2029, tc.ExpYear)
	assert.True(t, tc.Captured)

	status, _, ok := f.orders.Status(order.ID)
	require.True(t, ok)
	assert.Equal(t, memory.OrderPaid, status)

	// The widget-reported token was registered for the customer.
	tok, err := f.tokens.Get(context.Background(), "cust-1", "tok-1")
	require.NoError(t, err)
	assert.Equal(t, "visa", tok.Brand)
}

func TestFinalizeAuthorizeNotCaptured(t *testing.T) {
	f := newFixture(t, Config{Policy: AuthorizeOnly})
	order := checkoutOrder(t, "49.99")
	f.orders.Put(order)
	f.api.queryTxnResp = approvedQueryResp(order.ID)

	tc := &domain.TransactionContext{WidgetTransactionID: "txn-1"}
	a, err := f.orch.Begin(context.Background(), order, tc, "cust-1", MethodCard)
	require.NoError(t, err)

	require.NoError(t, f.orch.Finalize(context.Background(), order, a))
	assert.False(t, tc.Captured)
}

func TestFinalizeDescriptionMismatch(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	f.orders.Put(order)
	f.api.queryTxnResp = approvedQueryResp("some-other-order")

	tc := &domain.TransactionContext{WidgetTransactionID: "txn-1"}
	a, err := f.orch.Begin(context.Background(), order, tc, "cust-1", MethodCard)
	require.NoError(t, err)

	err = f.orch.Finalize(context.Background(), order, a)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorKindReconciliation))
	assert.Equal(t, StateFailed, a.State())

	status, _, ok := f.orders.Status(order.ID)
	require.True(t, ok)
	assert.Equal(t, memory.OrderPending, status)
}

func TestFinalizeHeld(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	f.orders.Put(order)
	f.api.queryTxnResp = &domain.TransactionResponse{
		Result:        "1",
		ResultMessage: domain.StatusHeld,
		TransactionID: "txn-1",
		Description:   order.ID,
	}

	tc := &domain.TransactionContext{WidgetTransactionID: "txn-1"}
	a, err := f.orch.Begin(context.Background(), order, tc, "cust-1", MethodCard)
	require.NoError(t, err)

	require.NoError(t, f.orch.Finalize(context.Background(), order, a))
	assert.Equal(t, StateReconciled, a.State())

	status, _, ok := f.orders.Status(order.ID)
	require.True(t, ok)
	assert.Equal(t, memory.OrderHeld, status)
}

func TestFinalizeDeclined(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	f.orders.Put(order)
	f.api.queryTxnResp = &domain.TransactionResponse{
		Result:        "1",
		ResultMessage: "DECLINED",
		TransactionID: "txn-1",
		Description:   order.ID,
	}

	tc := &domain.TransactionContext{WidgetTransactionID: "txn-1"}
	a, err := f.orch.Begin(context.Background(), order, tc, "cust-1", MethodCard)
	require.NoError(t, err)

	err = f.orch.Finalize(context.Background(), order, a)
	require.Error(t, err)
	assert.Equal(t, "DECLINED", a.FailureMessage())

	status, _, ok := f.orders.Status(order.ID)
	require.True(t, ok)
	assert.Equal(t, memory.OrderPending, status)
}

func TestFinalizeTokenizeOnly(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "0")
	f.orders.Put(order)

	tc := &domain.TransactionContext{WidgetToken: "tok-1"}
	a, err := f.orch.Begin(context.Background(), order, tc, "cust-1", MethodCard)
	require.NoError(t, err)

	require.NoError(t, f.orch.Finalize(context.Background(), order, a))
	assert.Equal(t, StateReconciled, a.State())

	// No payment happened, so the order is not marked paid.
	status, _, ok := f.orders.Status(order.ID)
	require.True(t, ok)
	assert.Equal(t, memory.OrderPending, status)

	_, err = f.tokens.Get(context.Background(), "cust-1", "tok-1")
	assert.NoError(t, err)
}

func TestFinalizeWithoutWidgetData(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")

	a, err := f.orch.Begin(context.Background(), order, &domain.TransactionContext{}, "cust-1", MethodCard)
	require.NoError(t, err)

	err = f.orch.Finalize(context.Background(), order, a)
	require.Error(t, err)
	assert.True(t, domain.IsKind(err, domain.ErrorKindValidation))
}

func TestChargeStoredToken(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	f.orders.Put(order)
	f.api.chargeResp = approvedQueryResp(order.ID)

	require.NoError(t, f.tokens.Save(context.Background(), &domain.PaymentToken{
		ID:          "tok-1",
		CustomerID:  "cust-1",
		BillingHash: domain.HashBilling(&order.Billing),
	}))

	tc := &domain.TransactionContext{TokenID: "tok-1"}
	resp, err := f.orch.ChargeStoredToken(context.Background(), order, tc, "cust-1")
	require.NoError(t, err)
	assert.True(t, resp.Approved())
	assert.Equal(t, 1, f.api.chargeCalls)
	assert.Zero(t, f.api.authorizeCalls)
	assert.Zero(t, f.api.updateCalls)
	assert.Equal(t, 12, tc.ExpMonth)
	assert.Equal(t, 2029, tc.ExpYear)
	assert.True(t, tc.Captured)

	status, _, ok := f.orders.Status(order.ID)
	require.True(t, ok)
	assert.Equal(t, memory.OrderPaid, status)
}

func TestChargeStoredTokenRefreshesStaleBilling(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	f.orders.Put(order)
	f.api.chargeResp = approvedQueryResp(order.ID)

	require.NoError(t, f.tokens.Save(context.Background(), &domain.PaymentToken{
		ID:          "tok-1",
		CustomerID:  "cust-1",
		BillingHash: "stale-hash",
	}))

	_, err := f.orch.ChargeStoredToken(context.Background(), order, &domain.TransactionContext{TokenID: "tok-1"}, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.updateCalls)
}

func TestChargeStoredTokenAuthorizeOnly(t *testing.T) {
	f := newFixture(t, Config{Policy: AuthorizeOnly})
	order := checkoutOrder(t, "49.99")
	f.orders.Put(order)
	f.api.chargeResp = approvedQueryResp(order.ID)

	require.NoError(t, f.tokens.Save(context.Background(), &domain.PaymentToken{
		ID:          "tok-1",
		CustomerID:  "cust-1",
		BillingHash: domain.HashBilling(&order.Billing),
	}))

	tc := &domain.TransactionContext{TokenID: "tok-1"}
	_, err := f.orch.ChargeStoredToken(context.Background(), order, tc, "cust-1")
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.authorizeCalls)
	assert.Zero(t, f.api.chargeCalls)
	assert.False(t, tc.Captured)
}

func TestRefundPaymentRouting(t *testing.T) {
	f := newFixture(t, Config{Policy: ChargeImmediately})
	order := checkoutOrder(t, "49.99")
	f.api.chargeResp = approvedQueryResp(order.ID)
	amount := decimal.NewFromInt(10)

	_, err := f.orch.RefundPayment(context.Background(), order, &domain.TransactionContext{Captured: true, TransactionID: "txn-1"}, amount)
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.refundCalls)
	assert.Zero(t, f.api.voidCalls)

	// An uncaptured authorization is voided, not refunded.
	_, err = f.orch.RefundPayment(context.Background(), order, &domain.TransactionContext{Captured: false, TransactionID: "txn-1"}, amount)
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.refundCalls)
	assert.Equal(t, 1, f.api.voidCalls)
}

func TestCaptureSetsFlag(t *testing.T) {
	f := newFixture(t, Config{Policy: AuthorizeOnly})
	order := checkoutOrder(t, "49.99")
	f.api.chargeResp = approvedQueryResp(order.ID)

	tc := &domain.TransactionContext{TransactionID: "txn-1"}
	_, err := f.orch.Capture(context.Background(), order, tc)
	require.NoError(t, err)
	assert.Equal(t, 1, f.api.captureCalls)
	assert.True(t, tc.Captured)
}
