package ports

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

// ProcessorAPI is the surface the checkout and token services need from the
// payment processor. The Converge adapter implements it; tests substitute
// recording fakes.
type ProcessorAPI interface {
	// SessionToken requests a Hosted Payments session token bound to the
	// given operation and amount. Any non-200 reply is reported as a single
	// registration/permission error.
	SessionToken(ctx context.Context, op domain.Operation, amount decimal.Decimal) (*domain.SessionToken, error)

	Authorize(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error)
	Charge(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error)
	Capture(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error)
	Refund(ctx context.Context, order *domain.Order, tc *domain.TransactionContext, amount decimal.Decimal) (*domain.TransactionResponse, error)
	Void(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error)
	CheckDebit(ctx context.Context, order *domain.Order, tc *domain.TransactionContext) (*domain.TransactionResponse, error)

	Tokenize(ctx context.Context, order *domain.Order) (*domain.TransactionResponse, error)
	UpdateToken(ctx context.Context, order *domain.Order, tokenID string) (*domain.TransactionResponse, error)
	DeleteToken(ctx context.Context, tokenID string) (*domain.TransactionResponse, error)
	QueryToken(ctx context.Context, tokenID string) (*domain.TransactionResponse, error)

	// QueryTransaction fetches a transaction by processor transaction ID,
	// the server-side validation step of the hosted widget flow.
	QueryTransaction(ctx context.Context, transactionID string) (*domain.TransactionResponse, error)
}
