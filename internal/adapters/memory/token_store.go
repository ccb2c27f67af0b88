// Package memory provides in-memory adapters used for development and
// tests, where a database is overkill.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

// TokenStore implements ports.TokenStore in memory.
type TokenStore struct {
	mu     sync.RWMutex
	tokens map[string]*domain.PaymentToken // keyed by token ID
}

// NewTokenStore creates an empty token store.
func NewTokenStore() *TokenStore {
	return &TokenStore{tokens: make(map[string]*domain.PaymentToken)}
}

func (s *TokenStore) Get(_ context.Context, customerID, tokenID string) (*domain.PaymentToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tokens[tokenID]
	if !ok || t.CustomerID != customerID {
		return nil, domain.ErrTokenNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *TokenStore) List(_ context.Context, customerID string) ([]*domain.PaymentToken, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*domain.PaymentToken
	for _, t := range s.tokens {
		if t.CustomerID == customerID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *TokenStore) Save(_ context.Context, token *domain.PaymentToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *token
	now := time.Now()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = now
	}
	cp.UpdatedAt = now
	s.tokens[cp.ID] = &cp
	return nil
}

func (s *TokenStore) Update(_ context.Context, token *domain.PaymentToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.tokens[token.ID]
	if !ok || existing.CustomerID != token.CustomerID {
		return domain.ErrTokenNotFound
	}
	cp := *token
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now()
	s.tokens[cp.ID] = &cp
	return nil
}

func (s *TokenStore) Delete(_ context.Context, customerID, tokenID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.tokens[tokenID]; ok && t.CustomerID == customerID {
		delete(s.tokens, tokenID)
	}
	return nil
}
