package checkout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promoquoter/internal/cart"
	"github.com/noah-isme/promoquoter/internal/catalog"
	"github.com/noah-isme/promoquoter/internal/common"
	"github.com/noah-isme/promoquoter/internal/events"
	"github.com/noah-isme/promoquoter/internal/obs"
	"github.com/noah-isme/promoquoter/internal/order"
	"github.com/noah-isme/promoquoter/internal/pricing"
)

var (
	// ErrOutOfStock indicates requested quantity exceeds available stock.
	ErrOutOfStock = errors.New("insufficient stock")
	// ErrConcurrentModification indicates stock contention persisted through
	// every retry attempt.
	ErrConcurrentModification = errors.New("concurrent stock modification")
)

// Quoter prices cart lines.
type Quoter interface {
	Quote(ctx context.Context, lines []cart.Line) (cart.Quote, error)
}

// OrderStore reads persisted orders outside a transaction.
type OrderStore interface {
	FindByID(ctx context.Context, id uuid.UUID) (order.Order, error)
	FindByIdempotencyKey(ctx context.Context, key string) (order.Order, error)
}

// TxOps are the operations available inside one confirmation transaction.
type TxOps interface {
	FindOrderByKeyForUpdate(ctx context.Context, key string) (order.Order, error)
	GetProductForUpdate(ctx context.Context, id uuid.UUID) (catalog.Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int32, expectedVersion int64) error
	CreateOrder(ctx context.Context, o order.Order) (order.Order, error)
}

// TxRunner executes a function within one database transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(TxOps) error) error
}

// Coordinator confirms carts as orders. When the caller supplies an
// idempotency key the confirmation is idempotent on it; without a key every
// call creates a new order. Stock debits are serialized through versioned
// updates either way.
type Coordinator struct {
	Catalog cart.CatalogStore
	Quoter  Quoter
	Orders  OrderStore
	Tx      TxRunner
	Cache   *IdempotencyCache
	Events  *events.Bus
	Logger  zerolog.Logger

	MaxAttempts  int
	RetryBackoff time.Duration

	// Sleep is overridable for tests. Nil means time.Sleep.
	Sleep func(time.Duration)
}

// Confirm runs the confirmation protocol: look up the idempotency key when
// one is supplied, then validate stock, quote, recheck under lock and persist,
// retrying with linear backoff when another confirmation debits the same
// products first. An absent key skips the lookup and always creates a new
// order.
func (c *Coordinator) Confirm(ctx context.Context, in cart.ConfirmInput) (cart.Confirmation, bool, error) {
	key := strings.TrimSpace(in.IdempotencyKey)

	if key != "" {
		if existing, ok, err := c.lookup(ctx, key); err != nil {
			return cart.Confirmation{}, false, err
		} else if ok {
			c.countResult("duplicate")
			return replayed(existing), false, nil
		}
	}

	lines := cart.CollapseLines(in.Lines)
	if len(lines) == 0 {
		c.countResult("error")
		return cart.Confirmation{}, false, common.NewAppError("BAD_REQUEST", "cart has no purchasable lines", http.StatusBadRequest, nil)
	}

	attempts := c.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	backoff := c.RetryBackoff
	if backoff <= 0 {
		backoff = 100 * time.Millisecond
	}

	for attempt := 1; attempt <= attempts; attempt++ {
		confirmed, applied, err := c.attempt(ctx, key, in.CustomerSegment, lines, in.Lines)
		switch {
		case err == nil:
			c.countResult("created")
			c.finish(ctx, key, confirmed)
			return cart.Confirmation{Order: confirmed, AppliedPromotions: applied}, true, nil
		case errors.Is(err, order.ErrDuplicateKey):
			existing, findErr := c.Orders.FindByIdempotencyKey(ctx, key)
			if findErr != nil {
				return cart.Confirmation{}, false, findErr
			}
			c.countResult("duplicate")
			return replayed(existing), false, nil
		case errors.Is(err, ErrOutOfStock), errors.Is(err, catalog.ErrInsufficientStock):
			c.countResult("out_of_stock")
			return cart.Confirmation{}, false, common.NewAppError("OUT_OF_STOCK", err.Error(), http.StatusConflict, ErrOutOfStock)
		case errors.Is(err, catalog.ErrVersionConflict):
			if obs.StockConflicts != nil {
				obs.StockConflicts.Inc()
			}
			if attempt == attempts {
				break
			}
			if obs.ConfirmRetries != nil {
				obs.ConfirmRetries.Inc()
			}
			c.Logger.Warn().
				Int("attempt", attempt).
				Str("idempotency_key", key).
				Msg("stock version conflict, retrying")
			c.sleep(backoff * time.Duration(attempt))
		default:
			c.countResult("error")
			return cart.Confirmation{}, false, err
		}
	}

	c.countResult("conflict")
	return cart.Confirmation{}, false, common.NewAppError(
		"CONCURRENT_MODIFICATION",
		"stock changed concurrently, please retry",
		http.StatusConflict,
		ErrConcurrentModification,
	)
}

// lookup resolves an already-confirmed order for the key, consulting the
// advisory cache first. The unique constraint on orders remains the sole
// correctness guarantee.
func (c *Coordinator) lookup(ctx context.Context, key string) (order.Order, bool, error) {
	if c.Cache != nil {
		if id, ok := c.Cache.Get(ctx, key); ok {
			if existing, err := c.Orders.FindByID(ctx, id); err == nil {
				return existing, true, nil
			}
		}
	}
	existing, err := c.Orders.FindByIdempotencyKey(ctx, key)
	if err == nil {
		return existing, true, nil
	}
	if errors.Is(err, order.ErrNotFound) {
		return order.Order{}, false, nil
	}
	return order.Order{}, false, err
}

func (c *Coordinator) attempt(ctx context.Context, key, segment string, collapsed, raw []cart.Line) (order.Order, []string, error) {
	ids := make([]uuid.UUID, 0, len(collapsed))
	for _, line := range collapsed {
		ids = append(ids, line.ProductID)
	}
	products, err := c.Catalog.GetByIDs(ctx, ids)
	if err != nil {
		return order.Order{}, nil, err
	}
	versions := make(map[uuid.UUID]int64, len(collapsed))
	for _, line := range collapsed {
		product, ok := products[line.ProductID]
		if !ok {
			return order.Order{}, nil, common.NewAppError("NOT_FOUND", "product not found: "+line.ProductID.String(), http.StatusNotFound, catalog.ErrNotFound)
		}
		if product.Stock < line.Qty {
			return order.Order{}, nil, fmt.Errorf("product %s: %w", product.Name, ErrOutOfStock)
		}
		versions[line.ProductID] = product.Version
	}

	quote, err := c.Quoter.Quote(ctx, raw)
	if err != nil {
		return order.Order{}, nil, err
	}

	var confirmed order.Order
	err = c.Tx.InTx(ctx, func(ops TxOps) error {
		if key != "" {
			if _, findErr := ops.FindOrderByKeyForUpdate(ctx, key); findErr == nil {
				return order.ErrDuplicateKey
			} else if !errors.Is(findErr, order.ErrNotFound) {
				return findErr
			}
		}
		for _, line := range collapsed {
			locked, lockErr := ops.GetProductForUpdate(ctx, line.ProductID)
			if lockErr != nil {
				return lockErr
			}
			if locked.Stock < line.Qty {
				return fmt.Errorf("product %s: %w", locked.Name, ErrOutOfStock)
			}
			if adjErr := ops.AdjustStock(ctx, line.ProductID, -line.Qty, versions[line.ProductID]); adjErr != nil {
				return adjErr
			}
		}
		created, createErr := ops.CreateOrder(ctx, buildOrder(key, segment, quote))
		if createErr != nil {
			return createErr
		}
		confirmed = created
		return nil
	})
	if err != nil {
		return order.Order{}, nil, err
	}
	applied := make([]string, 0, len(quote.AppliedPromotions))
	for _, promotion := range quote.AppliedPromotions {
		applied = append(applied, promotion.Description)
	}
	return confirmed, applied, nil
}

// replayed wraps an already-confirmed order. The promotion descriptions of the
// original confirmation are not reconstructed on replay.
func replayed(existing order.Order) cart.Confirmation {
	return cart.Confirmation{Order: existing, AppliedPromotions: []string{}}
}

func buildOrder(key, segment string, quote cart.Quote) order.Order {
	items := make([]order.Item, 0, len(quote.Lines))
	for _, line := range quote.Lines {
		items = append(items, order.Item{
			ProductID:    line.ProductID,
			Name:         line.Name,
			Qty:          line.Qty,
			UnitPrice:    line.UnitPrice,
			LineTotal:    line.LineSubtotal,
			LineDiscount: pricing.Money(0),
		})
	}
	return order.Order{
		ID:              uuid.New(),
		IdempotencyKey:  key,
		Status:          order.StatusConfirmed,
		CustomerSegment: segment,
		Subtotal:        quote.Subtotal,
		Discount:        quote.TotalDiscount,
		Total:           quote.Total,
		Items:           items,
	}
}

// finish performs the post-commit bookkeeping for a freshly created order.
func (c *Coordinator) finish(ctx context.Context, key string, confirmed order.Order) {
	if c.Cache != nil && key != "" {
		c.Cache.Put(ctx, key, confirmed.ID)
	}
	if c.Events != nil {
		_, err := c.Events.Emit(ctx, events.TopicOrderConfirmed, confirmed.ID, map[string]any{
			"orderId": confirmed.ID.String(),
			"total":   confirmed.Total,
			"items":   len(confirmed.Items),
		})
		if err != nil {
			c.Logger.Warn().Err(err).Msg("emit order.confirmed")
		}
	}
}

func (c *Coordinator) countResult(result string) {
	if obs.ConfirmTotal != nil {
		obs.ConfirmTotal.WithLabelValues(result).Inc()
	}
}

func (c *Coordinator) sleep(d time.Duration) {
	if c.Sleep != nil {
		c.Sleep(d)
		return
	}
	time.Sleep(d)
}
