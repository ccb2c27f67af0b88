package handlers

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// NonceStore issues and verifies single-use checkout nonces. Every
// state-changing checkout request must carry a nonce issued for its order,
// which shuts out cross-site request forgery and blind replays.
type NonceStore struct {
	mu     sync.Mutex
	ttl    time.Duration
	nonces map[string]nonceEntry // keyed by nonce value
	now    func() time.Time
}

type nonceEntry struct {
	orderID   string
	expiresAt time.Time
}

// NewNonceStore creates a nonce store with the given lifetime.
func NewNonceStore(ttl time.Duration) *NonceStore {
	return &NonceStore{
		ttl:    ttl,
		nonces: make(map[string]nonceEntry),
		now:    time.Now,
	}
}

// Issue creates a nonce bound to an order.
func (s *NonceStore) Issue(orderID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sweep()
	nonce := uuid.NewString()
	s.nonces[nonce] = nonceEntry{
		orderID:   orderID,
		expiresAt: s.now().Add(s.ttl),
	}
	return nonce
}

// Verify consumes a nonce. It succeeds at most once per issued nonce, and
// only for the order the nonce was issued for.
func (s *NonceStore) Verify(orderID, nonce string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.nonces[nonce]
	if !ok {
		return false
	}
	delete(s.nonces, nonce)

	if entry.orderID != orderID {
		return false
	}
	return s.now().Before(entry.expiresAt)
}

// sweep drops expired entries; called with the lock held.
func (s *NonceStore) sweep() {
	now := s.now()
	for nonce, entry := range s.nonces {
		if now.After(entry.expiresAt) {
			delete(s.nonces, nonce)
		}
	}
}
