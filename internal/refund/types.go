// Package refund maps replacement requests onto the external refund-management system.
package refund

import (
	"context"

	"github.com/shopspring/decimal"
)

// StatusPending is the status every refund request created from a replacement starts in.
const StatusPending = "ywcars-pending"

// RefundRequestSpec mirrors the refund request entity of the refund-management system.
type RefundRequestSpec struct {
	OrderID         int64           `json:"order_id"`
	WholeOrder      bool            `json:"whole_order"`
	ItemID          int64           `json:"item_id"`
	ItemValue       decimal.Decimal `json:"item_value"`
	ItemTotal       decimal.Decimal `json:"item_total"`
	TaxValue        decimal.Decimal `json:"tax_value"`
	TaxTotal        decimal.Decimal `json:"tax_total"`
	Qty             int             `json:"qty"`
	QtyTotal        int             `json:"qty_total"`
	ItemRefundTotal decimal.Decimal `json:"item_refund_total"`
	TaxRefundTotal  decimal.Decimal `json:"tax_refund_total"`
	RefundTotal     decimal.Decimal `json:"refund_total"`
	RefundID        int64           `json:"refund_id"`
	RefundedAmount  decimal.Decimal `json:"refunded_amount"`
	CustomerID      int64           `json:"customer_id"`
	CouponID        int64           `json:"coupon_id"`
	IsClosed        bool            `json:"is_closed"`
	Status          string          `json:"status"`
}

// RequestMessage is the justification attached to a refund request.
type RequestMessage struct {
	RequestID int64  `json:"request"`
	Message   string `json:"message"`
	Author    int64  `json:"author"`
}

// Sink persists refund requests in the refund-management system.
type Sink interface {
	// CreateRequest returns the new request id.
	CreateRequest(ctx context.Context, spec *RefundRequestSpec) (int64, error)
	CreateMessage(ctx context.Context, msg *RequestMessage) error
	SetMeta(ctx context.Context, requestID int64, meta map[string]string) error
}
