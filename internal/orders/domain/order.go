package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "PENDING"
	OrderStatusConfirmed OrderStatus = "CONFIRMED"
	OrderStatusCancelled OrderStatus = "CANCELLED"
)

type PaymentStatus string

const (
	PaymentStatusCODPending      PaymentStatus = "cod_pending"
	PaymentStatusAwaitingPayment PaymentStatus = "awaiting_payment"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusFailed          PaymentStatus = "failed"
)

// IsTerminal reports whether no further payment transition is expected.
func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

const (
	EventOrderCreated       = "order.created"
	EventOrderPaymentUpdate = "order.payment_updated"
)

type OrderItem struct {
	ProductID string  `json:"product_id"`
	Name      string  `json:"name"`
	Price     float64 `json:"price"`
	Quantity  int     `json:"quantity"`
	Size      string  `json:"size,omitempty"`
	Color     string  `json:"color,omitempty"`
}

type ShippingAddress struct {
	Name       string `json:"name"`
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postal_code"`
	Phone      string `json:"phone"`
	Email      string `json:"email"`
}

type Order struct {
	ID              uuid.UUID
	Reference       string
	CartID          string
	PaymentMethod   string
	Status          OrderStatus
	PaymentStatus   PaymentStatus
	Items           []OrderItem
	ShippingAddress ShippingAddress
	Subtotal        float64
	Shipping        float64
	Tax             float64
	Discount        float64
	Total           float64
	Currency        string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Event is the outbox payload for order lifecycle changes.
type Event struct {
	EventType     string        `json:"event_type"`
	Reference     string        `json:"reference"`
	CartID        string        `json:"cart_id,omitempty"`
	PaymentMethod string        `json:"payment_method"`
	Status        OrderStatus   `json:"status"`
	PaymentStatus PaymentStatus `json:"payment_status"`
	Total         float64       `json:"total"`
	Currency      string        `json:"currency"`
	OccurredAt    time.Time     `json:"occurred_at"`
}

func NewEvent(eventType string, o *Order) Event {
	return Event{
		EventType:     eventType,
		Reference:     o.Reference,
		CartID:        o.CartID,
		PaymentMethod: o.PaymentMethod,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		Total:         o.Total,
		Currency:      o.Currency,
		OccurredAt:    time.Now().UTC(),
	}
}
