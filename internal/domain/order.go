package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

// BillingProfile holds the customer billing details sent with a transaction.
// All fields are optional from the processor's point of view; truncation to
// Converge field limits happens at the wire layer, not here.
type BillingProfile struct {
	FirstName  string
	LastName   string
	Company    string
	Address1   string
	Address2   string
	City       string
	State      string
	Country    string
	PostalCode string
	Phone      string
	Email      string
	CustomerID string
}

// Order is the unit of work a checkout attempt settles. It carries only what
// the gateway needs; the surrounding commerce system owns the rest.
type Order struct {
	// ID is the internal order identifier. It travels to Converge as
	// ssl_description on hosted flows and is the reconciliation key when the
	// server re-queries a widget-reported transaction.
	ID string

	// Number is the human-facing order number, possibly prefixed with '#'.
	// It becomes the invoice number after prefix stripping and truncation.
	Number string

	Total    decimal.Decimal
	Tax      decimal.Decimal
	Currency string

	Billing BillingProfile

	// Deferred marks orders whose payment is collected later (pre-orders
	// charged upon release). Deferred orders never require upfront payment.
	Deferred bool

	Description string
}

// InvoiceNumber returns the order number with any leading '#' removed, the
// form Converge expects in ssl_invoice_number.
func (o *Order) InvoiceNumber() string {
	return strings.TrimPrefix(o.Number, "#")
}

// RequiresUpfrontPayment reports whether checkout must collect payment now.
// Zero-total orders and deferred orders are settled later (or never), so the
// hosted flow only tokenizes for them.
func (o *Order) RequiresUpfrontPayment() bool {
	if o.Total.IsZero() {
		return false
	}
	if o.Deferred {
		return false
	}
	return true
}

// TransactionContext carries the per-attempt payment state that accumulates
// while an order moves through checkout. It replaces ad hoc scratch storage
// on the order itself so every field has a declared type and owner.
type TransactionContext struct {
	// TokenID is the stored payment token selected for this attempt, empty
	// when the customer is entering a new payment method.
	TokenID string

	// Tokenize requests that the payment method used for this attempt be
	// saved for later use.
	Tokenize bool

	// WidgetTransactionID and WidgetToken are the values reported by the
	// hosted payment widget and resubmitted with the order form. A non-empty
	// WidgetTransactionID is the idempotency gate: the server validates the
	// reported transaction instead of starting a new one.
	WidgetTransactionID string
	WidgetToken         string

	// Populated from processor responses as the attempt progresses.
	TransactionID     string
	AuthorizationCode string
	AccountNumber     string // masked
	CardBrand         string
	ExpMonth          int
	ExpYear           int

	// Captured distinguishes refund routing: refunds of uncaptured
	// authorizations must be voids instead.
	Captured bool

	// TestAmount overrides the order total on non-production environments so
	// specific processor behaviors can be exercised.
	TestAmount *decimal.Decimal
}

// ChargeTotal returns the amount a payment operation should move: the test
// amount when one is set, otherwise the order total.
func (c *TransactionContext) ChargeTotal(o *Order) decimal.Decimal {
	if c.TestAmount != nil {
		return *c.TestAmount
	}
	return o.Total
}
