package converge

import (
	"github.com/shopspring/decimal"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

// RequestBuilder assembles transaction requests from orders. It owns amount
// formatting and the mapping of order fields onto the wire model; truncation
// and sanitization stay in the codec.
type RequestBuilder struct {
	// MerchantEmail, when set, is attached to payment requests so Converge
	// sends the merchant a receipt copy.
	MerchantEmail string
}

// FormatAmount renders an amount the way Converge requires: two decimal
// places, no currency symbol, no thousands separators.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Payment builds a money-moving request (authorize, charge, echeck debit)
// for an order. When tc references a stored token the request charges the
// token; hosted flows never put raw card data through here.
func (rb *RequestBuilder) Payment(op domain.Operation, order *domain.Order, tc *domain.TransactionContext) *domain.TransactionRequest {
	req := &domain.TransactionRequest{
		Operation:     op,
		Amount:        FormatAmount(tc.ChargeTotal(order)),
		SalesTax:      FormatAmount(order.Tax),
		InvoiceNumber: order.Number,
		Description:   order.ID,
		Billing:       &order.Billing,
		Token:         tc.TokenID,
		MerchantEmail: rb.MerchantEmail,
	}
	if tc.Tokenize && tc.TokenID == "" {
		req.AddToken = true
	}
	return req
}

// Capture builds a completion of a prior authorization.
func (rb *RequestBuilder) Capture(order *domain.Order, tc *domain.TransactionContext) *domain.TransactionRequest {
	return &domain.TransactionRequest{
		Operation:     domain.OperationCapture,
		Amount:        FormatAmount(tc.ChargeTotal(order)),
		InvoiceNumber: order.Number,
		TransactionID: tc.TransactionID,
	}
}

// Refund builds a partial or full refund of a captured charge.
func (rb *RequestBuilder) Refund(order *domain.Order, tc *domain.TransactionContext, amount decimal.Decimal) *domain.TransactionRequest {
	return &domain.TransactionRequest{
		Operation:     domain.OperationRefund,
		Amount:        FormatAmount(amount),
		InvoiceNumber: order.Number,
		TransactionID: tc.TransactionID,
	}
}

// Void builds a void of an unsettled transaction.
func (rb *RequestBuilder) Void(order *domain.Order, tc *domain.TransactionContext) *domain.TransactionRequest {
	return &domain.TransactionRequest{
		Operation:     domain.OperationVoid,
		InvoiceNumber: order.Number,
		TransactionID: tc.TransactionID,
	}
}

// Tokenize builds a standalone tokenization. Only the cardholder name,
// address line, and postal code travel with it; the token is registered
// against those and nothing else.
func (rb *RequestBuilder) Tokenize(order *domain.Order) *domain.TransactionRequest {
	return &domain.TransactionRequest{
		Operation:   domain.OperationTokenize,
		Description: order.ID,
		Billing: &domain.BillingProfile{
			FirstName:  order.Billing.FirstName,
			LastName:   order.Billing.LastName,
			Address1:   order.Billing.Address1,
			PostalCode: order.Billing.PostalCode,
		},
		AddToken: true,
	}
}

// UpdateToken re-registers an existing token with the order's current
// billing profile.
func (rb *RequestBuilder) UpdateToken(order *domain.Order, tokenID string) *domain.TransactionRequest {
	return &domain.TransactionRequest{
		Operation: domain.OperationUpdateToken,
		Token:     tokenID,
		Billing:   &order.Billing,
	}
}

// DeleteToken builds a token removal.
func (rb *RequestBuilder) DeleteToken(tokenID string) *domain.TransactionRequest {
	return &domain.TransactionRequest{
		Operation: domain.OperationDeleteToken,
		Token:     tokenID,
	}
}

// QueryToken builds a token detail lookup.
func (rb *RequestBuilder) QueryToken(tokenID string) *domain.TransactionRequest {
	return &domain.TransactionRequest{
		Operation: domain.OperationQueryToken,
		Token:     tokenID,
	}
}

// CheckoutFields returns the ssl_* fields the hosted payment widget submits
// alongside the session token. Credentials never appear here; the browser
// only ever sees the already-bound session token.
func (rb *RequestBuilder) CheckoutFields(op domain.Operation, order *domain.Order, tc *domain.TransactionContext) map[string]string {
	var req *domain.TransactionRequest
	if op == domain.OperationTokenize {
		req = rb.Tokenize(order)
	} else {
		req = rb.Payment(op, order, tc)
	}
	req.MerchantEmail = "" // receipts are a server-side concern
	req.Token = ""

	fields := make(map[string]string)
	for _, f := range transactionFields(Credentials{}, req) {
		if f.key == "ssl_transaction_type" {
			continue
		}
		fields[f.key] = f.value
	}
	return fields
}

// QueryTransaction builds a transaction lookup by processor transaction ID.
func (rb *RequestBuilder) QueryTransaction(transactionID string) *domain.TransactionRequest {
	return &domain.TransactionRequest{
		Operation:     domain.OperationQuery,
		TransactionID: transactionID,
	}
}
