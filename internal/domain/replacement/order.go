package replacement

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// StatusCompleted is the only order status that admits a replacement request.
const StatusCompleted = "completed"

// Order is the subset of a host order that replacement requests depend on.
type Order struct {
	ID          int64           `json:"id"`
	Number      string          `json:"number,omitempty"`
	Status      string          `json:"status"`
	CompletedAt *time.Time      `json:"date_completed,omitempty"`
	Total       decimal.Decimal `json:"total"`
	Currency    string          `json:"currency,omitempty"`
	CustomerID  int64           `json:"customer_id"`
	Items       []LineItem      `json:"items"`
}

// LineItem is a single order line.
type LineItem struct {
	ID       int64           `json:"id"`
	Name     string          `json:"name"`
	Total    decimal.Decimal `json:"total"`
	Quantity int             `json:"quantity"`
}

// UnitPrice derives the per-unit price from the line total.
func (i LineItem) UnitPrice() decimal.Decimal {
	if i.Quantity <= 0 {
		return i.Total
	}
	return i.Total.Div(decimal.NewFromInt(int64(i.Quantity)))
}

// RefundAmount is (total / quantity) * qty, computed as total * qty / quantity
// so whole-unit multiples of the line total come out exact.
func (i LineItem) RefundAmount(qty int) decimal.Decimal {
	if i.Quantity <= 0 {
		return i.Total
	}
	return i.Total.Mul(decimal.NewFromInt(int64(qty))).Div(decimal.NewFromInt(int64(i.Quantity)))
}

// Item returns the line item with the given id.
func (o *Order) Item(id int64) (*LineItem, bool) {
	for idx := range o.Items {
		if o.Items[idx].ID == id {
			return &o.Items[idx], true
		}
	}
	return nil, false
}

// DisplayNumber returns the order number shown to people.
func (o *Order) DisplayNumber() string {
	if o.Number != "" {
		return o.Number
	}
	return strconv.FormatInt(o.ID, 10)
}

// Scope identifies what a replacement request covers: one line item or the
// whole order (ItemID == 0).
type Scope struct {
	ItemID int64
}

// ScopeWhole is the sentinel scope string for whole-order requests.
const ScopeWhole = "whole"

// WholeOrder returns the whole-order scope.
func WholeOrder() Scope {
	return Scope{}
}

// ItemScope returns the scope for a single line item.
func ItemScope(itemID int64) Scope {
	return Scope{ItemID: itemID}
}

// IsWhole reports whether the scope covers the whole order.
func (s Scope) IsWhole() bool {
	return s.ItemID == 0
}

// String returns "whole" or the decimal item id.
func (s Scope) String() string {
	if s.IsWhole() {
		return ScopeWhole
	}
	return strconv.FormatInt(s.ItemID, 10)
}

// ParseScope parses "whole", "0" or a positive item id.
func ParseScope(raw string) (Scope, error) {
	if raw == "" || raw == ScopeWhole {
		return WholeOrder(), nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return Scope{}, fmt.Errorf("%w: %q", ErrInvalidScope, raw)
	}
	return Scope{ItemID: id}, nil
}
