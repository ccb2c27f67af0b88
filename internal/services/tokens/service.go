// Package tokens manages stored payment tokens: registering them from
// hosted checkout results, keeping their processor-side billing profile in
// sync, and removing them.
package tokens

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/derekgallardo01/converge-gateway/internal/adapters/ports"
	"github.com/derekgallardo01/converge-gateway/internal/domain"
	"github.com/derekgallardo01/converge-gateway/pkg/observability"
)

// Service implements token lifecycle operations.
type Service struct {
	api    ports.ProcessorAPI
	store  ports.TokenStore
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewService creates a token service.
func NewService(api ports.ProcessorAPI, store ports.TokenStore, logger *zap.Logger) *Service {
	return &Service{
		api:    api,
		store:  store,
		logger: logger,
		locks:  make(map[string]*sync.Mutex),
	}
}

// lockFor returns the per-token mutex, creating it on first use. Refreshes
// of the same token must serialize or two checkouts could each see a stale
// hash and both fire a remote update.
func (s *Service) lockFor(tokenID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[tokenID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[tokenID] = l
	}
	return l
}

// EnsureFresh guarantees the processor-side billing profile of a token
// matches the order before the token is charged. A mismatch triggers exactly
// one remote update; a match sends nothing.
func (s *Service) EnsureFresh(ctx context.Context, order *domain.Order, customerID, tokenID string) (*domain.PaymentToken, error) {
	l := s.lockFor(tokenID)
	l.Lock()
	defer l.Unlock()

	token, err := s.store.Get(ctx, customerID, tokenID)
	if err != nil {
		return nil, err
	}

	if token.BillingMatches(order) {
		return token, nil
	}

	resp, err := s.api.UpdateToken(ctx, order, tokenID)
	if err != nil {
		observability.RecordTokenOperation("refresh", "failed")
		return nil, err
	}
	// Token operations answer with SUCCESS and no approval code, so a
	// zero ssl_result also counts.
	if !resp.Approved() && resp.Result != "0" {
		observability.RecordTokenOperation("refresh", "failed")
		return nil, domain.NewProcessorError(resp.ErrorCode, "token update was not accepted")
	}

	token.BillingHash = domain.HashBilling(&order.Billing)
	if err := s.store.Update(ctx, token); err != nil {
		return nil, err
	}

	observability.RecordTokenOperation("refresh", "success")
	s.logger.Info("payment token billing refreshed",
		zap.String("customer_id", customerID),
		zap.String("token_suffix", suffix(tokenID)))
	return token, nil
}

// Register stores a token reported by the hosted widget or a tokenize
// response. Card details are fetched with a token query so the stored record
// carries brand and expiry even when the approval response omitted them.
func (s *Service) Register(ctx context.Context, order *domain.Order, customerID, tokenID string) (*domain.PaymentToken, error) {
	resp, err := s.api.QueryToken(ctx, tokenID)
	if err != nil {
		observability.RecordTokenOperation("create", "failed")
		return nil, err
	}

	token := &domain.PaymentToken{
		ID:          tokenID,
		CustomerID:  customerID,
		Brand:       domain.NormalizeCardBrand(resp.CardType),
		LastFour:    lastFour(resp.CardNumber),
		BillingHash: domain.HashBilling(&order.Billing),
	}
	token.ExpMonth, token.ExpYear = domain.ParseExpDate(resp.ExpDate)

	if err := s.store.Save(ctx, token); err != nil {
		observability.RecordTokenOperation("create", "failed")
		return nil, err
	}

	observability.RecordTokenOperation("create", "success")
	s.logger.Info("payment token registered",
		zap.String("customer_id", customerID),
		zap.String("brand", token.Brand),
		zap.String("last_four", token.LastFour))
	return token, nil
}

// Remove deletes a token at the processor and then locally. The processor
// reporting the token as already absent counts as success; any other
// processor failure aborts the removal so the local record keeps matching
// reality.
func (s *Service) Remove(ctx context.Context, customerID, tokenID string) error {
	l := s.lockFor(tokenID)
	l.Lock()
	defer l.Unlock()

	_, err := s.api.DeleteToken(ctx, tokenID)
	if err != nil {
		if domain.ErrorCode(err) != tokenNotFoundCode {
			observability.RecordTokenOperation("delete", "failed")
			return err
		}
		observability.RecordTokenOperation("delete", "already_absent")
		s.logger.Info("token already absent at processor",
			zap.String("token_suffix", suffix(tokenID)))
	} else {
		observability.RecordTokenOperation("delete", "success")
	}

	return s.store.Delete(ctx, customerID, tokenID)
}

// List returns the customer's stored tokens.
func (s *Service) List(ctx context.Context, customerID string) ([]*domain.PaymentToken, error) {
	return s.store.List(ctx, customerID)
}

// tokenNotFoundCode is the processor's "token already absent" error.
const tokenNotFoundCode = "5085"

func lastFour(masked string) string {
	if len(masked) < 4 {
		return masked
	}
	return masked[len(masked)-4:]
}

// suffix returns the last four characters of a token for logging. Whole
// token values never reach the logs.
func suffix(tokenID string) string {
	return lastFour(tokenID)
}
