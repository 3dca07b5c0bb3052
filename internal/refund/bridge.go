package refund

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
)

// Bridge turns validated replacement requests into refund requests.
type Bridge struct {
	sink   Sink
	status string
	logger *zap.Logger
}

// NewBridge creates a Bridge. A nil sink means the refund system is not installed.
func NewBridge(sink Sink, status string, logger *zap.Logger) *Bridge {
	if status == "" {
		status = StatusPending
	}
	return &Bridge{sink: sink, status: status, logger: logger}
}

// Available reports whether a refund system is configured.
func (b *Bridge) Available() bool {
	return b != nil && b.sink != nil
}

// BuildSpec populates a refund request for the scope. Whole-order requests
// carry the order total and zero quantities.
func (b *Bridge) BuildSpec(order *replacement.Order, scope replacement.Scope, qty int) (*RefundRequestSpec, error) {
	spec := &RefundRequestSpec{
		OrderID:         order.ID,
		WholeOrder:      scope.IsWhole(),
		ItemValue:       decimal.Zero,
		ItemTotal:       order.Total,
		TaxValue:        decimal.Zero,
		TaxTotal:        decimal.Zero,
		ItemRefundTotal: order.Total,
		TaxRefundTotal:  decimal.Zero,
		RefundTotal:     order.Total,
		RefundedAmount:  decimal.Zero,
		CustomerID:      order.CustomerID,
		IsClosed:        false,
		Status:          b.status,
	}
	if scope.IsWhole() {
		return spec, nil
	}

	item, ok := order.Item(scope.ItemID)
	if !ok {
		return nil, replacement.NewRequestError(replacement.CodeItemNotFound, order.ID, scope, nil)
	}
	amount := item.RefundAmount(qty)

	spec.ItemID = item.ID
	spec.ItemValue = amount
	spec.ItemTotal = amount
	spec.ItemRefundTotal = amount
	spec.RefundTotal = amount
	spec.Qty = qty
	spec.QtyTotal = qty
	return spec, nil
}

// Create persists a refund request and its message. The returned spec is what
// was sent, also on failure. Errors wrap ErrRefundPluginUnavailable or
// ErrRefundSaveFailed.
func (b *Bridge) Create(ctx context.Context, order *replacement.Order, scope replacement.Scope, message string, qty int) (int64, *RefundRequestSpec, error) {
	spec, err := b.BuildSpec(order, scope, qty)
	if err != nil {
		return 0, nil, err
	}
	if !b.Available() {
		return 0, spec, replacement.ErrRefundPluginUnavailable
	}

	requestID, err := b.sink.CreateRequest(ctx, spec)
	if err != nil {
		if errors.Is(err, replacement.ErrRefundPluginUnavailable) {
			return 0, spec, err
		}
		return 0, spec, fmt.Errorf("%w: %v", replacement.ErrRefundSaveFailed, err)
	}
	if requestID == 0 {
		return 0, spec, replacement.ErrRefundSaveFailed
	}

	msg := &RequestMessage{
		RequestID: requestID,
		Message:   message,
		Author:    spec.CustomerID,
	}
	if err := b.sink.CreateMessage(ctx, msg); err != nil {
		b.logger.Warn("Failed to save refund request message",
			zap.Int64("refund_request_id", requestID),
			zap.Error(err),
		)
	}

	return requestID, spec, nil
}

// LinkBack writes the back-reference metadata on a created refund request.
func (b *Bridge) LinkBack(ctx context.Context, requestID, orderID int64, scope replacement.Scope) error {
	if !b.Available() {
		return replacement.ErrRefundPluginUnavailable
	}
	return b.sink.SetMeta(ctx, requestID, BackReferenceMeta(orderID, scope))
}

// BackReferenceMeta links a refund request to its originating order and item
// and marks it as replacement-derived.
func BackReferenceMeta(orderID int64, scope replacement.Scope) map[string]string {
	return map[string]string{
		replacement.MetaKeyRefundOrderID: strconv.FormatInt(orderID, 10),
		replacement.MetaKeyRefundItemID:  strconv.FormatInt(scope.ItemID, 10),
		replacement.MetaKeySubmitted:     "1",
	}
}
