package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/noah-isme/promoquoter/internal/common"
	"github.com/noah-isme/promoquoter/internal/order"
)

// ConfirmInput carries everything needed to confirm a cart as an order.
type ConfirmInput struct {
	IdempotencyKey  string
	CustomerSegment string
	Lines           []Line
}

// Confirmation is the confirm response payload. AppliedPromotions holds the
// descriptions of the promotions applied when the order was created, in
// evaluation order; it is empty when an existing order is replayed.
type Confirmation struct {
	Order             order.Order `json:"order"`
	AppliedPromotions []string    `json:"appliedPromotions"`
}

// Confirmer turns a quoted cart into a persisted order.
type Confirmer interface {
	Confirm(ctx context.Context, in ConfirmInput) (Confirmation, bool, error)
}

// Handler wires cart quoting and confirmation to HTTP.
type Handler struct {
	Svc      *Service
	Confirm  Confirmer
	Validate *validator.Validate
	Logger   zerolog.Logger
}

type lineRequest struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Qty       int32  `json:"qty" validate:"required,gt=0"`
}

type cartRequest struct {
	Items           []lineRequest `json:"items" validate:"required,min=1,dive"`
	CustomerSegment string        `json:"customerSegment" validate:"omitempty,max=64"`
}

// Quote prices a cart against current stock and active promotions.
func (h *Handler) Quote(w http.ResponseWriter, r *http.Request) {
	lines, _, ok := h.decodeLines(w, r)
	if !ok {
		return
	}
	quote, err := h.Svc.Quote(r.Context(), lines)
	if err != nil {
		common.RenderError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": quote})
}

// ConfirmOrder confirms a cart as an order. The Idempotency-Key header is
// optional: replaying a key returns the original order, while requests without
// one always create a new order.
func (h *Handler) ConfirmOrder(w http.ResponseWriter, r *http.Request) {
	if h.Confirm == nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "confirmation not configured", nil)
		return
	}
	key := common.IdempotencyKey(r)
	lines, segment, ok := h.decodeLines(w, r)
	if !ok {
		return
	}
	confirmed, created, err := h.Confirm.Confirm(r.Context(), ConfirmInput{
		IdempotencyKey:  key,
		CustomerSegment: segment,
		Lines:           lines,
	})
	if err != nil {
		common.RenderError(w, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	common.JSON(w, status, map[string]any{"data": confirmed, "duplicate": !created})
}

func (h *Handler) decodeLines(w http.ResponseWriter, r *http.Request) ([]Line, string, bool) {
	var payload cartRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid payload", nil)
		return nil, "", false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(payload); err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid cart items", validationDetails(err))
			return nil, "", false
		}
	}
	lines := make([]Line, 0, len(payload.Items))
	for _, item := range payload.Items {
		id, err := uuid.Parse(item.ProductID)
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid product id: "+item.ProductID, nil)
			return nil, "", false
		}
		lines = append(lines, Line{ProductID: id, Qty: item.Qty})
	}
	return lines, payload.CustomerSegment, true
}

func validationDetails(err error) any {
	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return nil
	}
	fields := make([]string, 0, len(invalid))
	for _, fe := range invalid {
		fields = append(fields, fe.Namespace())
	}
	return map[string]any{"fields": fields}
}
