package ports

import (
	"context"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

// TokenStore persists payment tokens and their billing fingerprints.
type TokenStore interface {
	Get(ctx context.Context, customerID, tokenID string) (*domain.PaymentToken, error)
	List(ctx context.Context, customerID string) ([]*domain.PaymentToken, error)
	Save(ctx context.Context, token *domain.PaymentToken) error
	Update(ctx context.Context, token *domain.PaymentToken) error
	Delete(ctx context.Context, customerID, tokenID string) error
}

// OrderSource resolves orders by ID for checkout handlers. The surrounding
// commerce system owns orders; the gateway only reads and annotates them.
type OrderSource interface {
	Get(ctx context.Context, orderID string) (*domain.Order, error)
	// MarkPaid records a settled payment against the order.
	MarkPaid(ctx context.Context, orderID string, tc *domain.TransactionContext) error
	// Hold parks the order for manual review (issuer referral).
	Hold(ctx context.Context, orderID string, reason string) error
}
