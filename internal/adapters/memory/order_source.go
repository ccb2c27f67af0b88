package memory

import (
	"context"
	"sync"

	"github.com/derekgallardo01/converge-gateway/internal/domain"
)

// OrderStatus tracks what the in-memory order source knows about an order.
type OrderStatus string

const (
	OrderPending OrderStatus = "pending"
	OrderPaid    OrderStatus = "paid"
	OrderHeld    OrderStatus = "held"
)

type orderRecord struct {
	order  *domain.Order
	status OrderStatus
	reason string
	tc     *domain.TransactionContext
}

// OrderSource implements ports.OrderSource in memory. Production deployments
// point the gateway at the commerce platform instead.
type OrderSource struct {
	mu     sync.RWMutex
	orders map[string]*orderRecord
}

// NewOrderSource creates an empty order source.
func NewOrderSource() *OrderSource {
	return &OrderSource{orders: make(map[string]*orderRecord)}
}

// Put registers an order, replacing any prior state for the same ID.
func (s *OrderSource) Put(order *domain.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders[order.ID] = &orderRecord{order: order, status: OrderPending}
}

func (s *OrderSource) Get(_ context.Context, orderID string) (*domain.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	cp := *rec.order
	return &cp, nil
}

func (s *OrderSource) MarkPaid(_ context.Context, orderID string, tc *domain.TransactionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	rec.status = OrderPaid
	rec.tc = tc
	return nil
}

func (s *OrderSource) Hold(_ context.Context, orderID string, reason string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orders[orderID]
	if !ok {
		return domain.ErrOrderNotFound
	}
	rec.status = OrderHeld
	rec.reason = reason
	return nil
}

// Status reports the recorded state of an order, for tests and diagnostics.
func (s *OrderSource) Status(orderID string) (OrderStatus, *domain.TransactionContext, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orders[orderID]
	if !ok {
		return "", nil, false
	}
	return rec.status, rec.tc, true
}
