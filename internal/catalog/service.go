package catalog

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promoquoter/internal/common"
	"github.com/noah-isme/promoquoter/internal/events"
	"github.com/noah-isme/promoquoter/internal/pricing"
)

const (
	listCacheKey       = "catalog:products"
	productCachePrefix = "catalog:product:"
)

// Store persists catalog products.
type Store interface {
	Create(ctx context.Context, p Product) (Product, error)
	GetByID(ctx context.Context, id uuid.UUID) (Product, error)
	GetByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]Product, error)
	List(ctx context.Context) ([]Product, error)
}

// ProductInput is one product in a batch create request.
type ProductInput struct {
	Name     string        `json:"name" validate:"required,max=200"`
	Category string        `json:"category" validate:"required"`
	Price    pricing.Money `json:"price" validate:"required,gt=0"`
	Stock    int32         `json:"stock" validate:"gte=0"`
}

// ProductView is the JSON shape of a product.
type ProductView struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Category  Category      `json:"category"`
	Price     pricing.Money `json:"price"`
	Stock     int32         `json:"stock"`
	Version   int64         `json:"version"`
	CreatedAt time.Time     `json:"createdAt"`
}

// View converts a product to its response shape.
func View(p Product) ProductView {
	return ProductView{
		ID:        p.ID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		Stock:     p.Stock,
		Version:   p.Version,
		CreatedAt: p.CreatedAt,
	}
}

// Service orchestrates catalog reads, creation, caching and event emission.
type Service struct {
	Store  Store
	Cache  *Cache
	Events *events.Bus
	Logger zerolog.Logger
}

// CreateBatch inserts the given products in request order. Any invalid entry
// fails the whole batch before anything is written.
func (s *Service) CreateBatch(ctx context.Context, inputs []ProductInput) ([]ProductView, error) {
	if len(inputs) == 0 {
		return nil, common.NewAppError("BAD_REQUEST", "at least one product is required", http.StatusBadRequest, nil)
	}
	prepared := make([]Product, 0, len(inputs))
	for i, in := range inputs {
		category, err := ParseCategory(in.Category)
		if err != nil {
			return nil, common.NewAppError("BAD_REQUEST", fmt.Sprintf("product %d: %v", i, err), http.StatusBadRequest, err)
		}
		prepared = append(prepared, Product{
			Name:     in.Name,
			Category: category,
			Price:    in.Price,
			Stock:    in.Stock,
		})
	}

	created := make([]ProductView, 0, len(prepared))
	for _, p := range prepared {
		stored, err := s.Store.Create(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("create product %q: %w", p.Name, err)
		}
		created = append(created, View(stored))
		if s.Events != nil {
			if _, err := s.Events.Emit(ctx, events.TopicProductCreated, stored.ID, map[string]any{
				"productId": stored.ID.String(),
				"name":      stored.Name,
				"category":  stored.Category,
			}); err != nil {
				s.Logger.Warn().Err(err).Str("product", stored.Name).Msg("emit product.created")
			}
		}
	}
	s.Cache.Invalidate(ctx, listCacheKey)
	return created, nil
}

// List returns all products, served from cache when possible.
func (s *Service) List(ctx context.Context) ([]ProductView, error) {
	var cached []ProductView
	if hit, err := s.Cache.GetJSON(ctx, listCacheKey, &cached); err == nil && hit {
		return cached, nil
	}
	products, err := s.Store.List(ctx)
	if err != nil {
		return nil, err
	}
	views := make([]ProductView, 0, len(products))
	for _, p := range products {
		views = append(views, View(p))
	}
	if err := s.Cache.SetJSON(ctx, listCacheKey, views); err != nil {
		s.Logger.Debug().Err(err).Msg("cache product list")
	}
	return views, nil
}

// Get returns one product by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (ProductView, error) {
	key := productCachePrefix + id.String()
	var cached ProductView
	if hit, err := s.Cache.GetJSON(ctx, key, &cached); err == nil && hit {
		return cached, nil
	}
	p, err := s.Store.GetByID(ctx, id)
	if err != nil {
		return ProductView{}, err
	}
	view := View(p)
	if err := s.Cache.SetJSON(ctx, key, view); err != nil {
		s.Logger.Debug().Err(err).Msg("cache product")
	}
	return view, nil
}
