package order

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/promoquoter/internal/pricing"
)

var (
	// ErrNotFound indicates no order exists for the given identifier or key.
	ErrNotFound = errors.New("order not found")
	// ErrDuplicateKey indicates an order already holds the idempotency key.
	ErrDuplicateKey = errors.New("idempotency key already used")
)

// Status enumerates order lifecycle states. Confirmation is the only state
// transition this service performs.
type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
)

// Item is a persisted order line with its captured total and its share of the
// discount.
type Item struct {
	ProductID    uuid.UUID     `json:"productId"`
	Name         string        `json:"name"`
	Qty          int32         `json:"qty"`
	UnitPrice    pricing.Money `json:"unitPrice"`
	LineTotal    pricing.Money `json:"lineTotal"`
	LineDiscount pricing.Money `json:"lineDiscount"`
}

// Order is a confirmed purchase with its captured totals.
type Order struct {
	ID              uuid.UUID     `json:"orderId"`
	IdempotencyKey  string        `json:"-"`
	Status          Status        `json:"status"`
	CustomerSegment string        `json:"customerSegment,omitempty"`
	Subtotal        pricing.Money `json:"subtotal"`
	Discount        pricing.Money `json:"discount"`
	Total           pricing.Money `json:"total"`
	Items           []Item        `json:"items"`
	CreatedAt       time.Time     `json:"createdAt"`
}
