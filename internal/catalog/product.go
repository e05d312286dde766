package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/promoquoter/internal/pricing"
)

var (
	// ErrNotFound is returned when a referenced product does not exist.
	ErrNotFound = errors.New("product not found")
	// ErrVersionConflict indicates a concurrent writer updated the product first.
	ErrVersionConflict = errors.New("product version conflict")
	// ErrInsufficientStock indicates a stock adjustment would take stock negative.
	ErrInsufficientStock = errors.New("insufficient stock")
)

// Category enumerates the product categories known to the catalog.
type Category string

const (
	CategoryElectronics Category = "ELECTRONICS"
	CategoryFashion     Category = "FASHION"
	CategoryGrocery     Category = "GROCERY"
	CategoryBooks       Category = "BOOKS"
	CategoryHome        Category = "HOME"
)

// Valid reports whether the category is one of the known values.
func (c Category) Valid() bool {
	switch c {
	case CategoryElectronics, CategoryFashion, CategoryGrocery, CategoryBooks, CategoryHome:
		return true
	}
	return false
}

// ParseCategory normalises and validates a raw category string.
func ParseCategory(raw string) (Category, error) {
	c := Category(strings.ToUpper(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", errors.New("unknown category: " + raw)
	}
	return c, nil
}

// Product is a catalog entry. The version token increments on every stock
// mutation and backs the optimistic concurrency contract.
type Product struct {
	ID        uuid.UUID
	Name      string
	Category  Category
	Price     pricing.Money
	Stock     int32
	Version   int64
	CreatedAt time.Time
}
