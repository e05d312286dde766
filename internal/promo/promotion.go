package promo

import (
	"time"

	"github.com/google/uuid"
)

// Kind enumerates the supported promotion rule kinds.
type Kind string

const (
	KindPercentOffCategory Kind = "PERCENT_OFF_CATEGORY"
	KindBuyXGetY           Kind = "BUY_X_GET_Y"
)

// Promotion captures a promotion rule and its kind-specific parameters.
// Parameters not relevant to the kind are left nil.
type Promotion struct {
	ID         uuid.UUID
	Name       string
	Kind       Kind
	Category   *string
	PercentBps *int32
	ProductID  *uuid.UUID
	BuyQty     *int32
	GetQty     *int32
	Priority   int32
	Active     bool
	CreatedAt  time.Time
}
