package service

import (
	"context"
	"sync"

	"github.com/fjod/storefront/internal/checkout/gateway"
	orders "github.com/fjod/storefront/internal/orders/domain"
	r "github.com/fjod/storefront/internal/orders/repository"
)

// MockOrderStore implements OrderStore for testing
type MockOrderStore struct {
	mu        sync.Mutex
	Created   []*orders.Order
	CreateErr error
	UpdateErr error
	Updates   []orders.PaymentStatus
}

func (m *MockOrderStore) CreateOrder(_ context.Context, order *orders.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateErr != nil {
		return m.CreateErr
	}
	m.Created = append(m.Created, order)
	return nil
}

func (m *MockOrderStore) GetOrderByReference(_ context.Context, reference string) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.Created {
		if o.Reference == reference {
			return o, nil
		}
	}
	return nil, r.ErrOrderNotFound
}

func (m *MockOrderStore) UpdatePaymentStatus(_ context.Context, reference string, payment orders.PaymentStatus, status orders.OrderStatus) (*orders.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.UpdateErr != nil {
		return nil, m.UpdateErr
	}
	for _, o := range m.Created {
		if o.Reference == reference {
			if o.PaymentStatus.IsTerminal() {
				return nil, orders.ErrPaymentSettled
			}
			o.PaymentStatus = payment
			o.Status = status
			m.Updates = append(m.Updates, payment)
			return o, nil
		}
	}
	return nil, r.ErrOrderNotFound
}

func (m *MockOrderStore) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Created)
}

// MockGateway implements gateway.Gateway for testing
type MockGateway struct {
	mu             sync.Mutex
	Requests       []gateway.SessionRequest
	Session        *gateway.Session
	Details        *gateway.SessionDetails
	Err            error
	BlockUntilDone bool
}

func (m *MockGateway) CreateSession(ctx context.Context, req gateway.SessionRequest) (*gateway.Session, error) {
	m.mu.Lock()
	m.Requests = append(m.Requests, req)
	m.mu.Unlock()

	if m.BlockUntilDone {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Session, nil
}

func (m *MockGateway) GetSession(_ context.Context, _ string) (*gateway.SessionDetails, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Details, nil
}

func (m *MockGateway) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Requests)
}
