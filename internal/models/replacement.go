package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Refund bridge outcomes stored on a replacement request.
const (
	RefundStatusPending     = "pending"
	RefundStatusCreated     = "created"
	RefundStatusUnavailable = "unavailable"
	RefundStatusFailed      = "failed"
)

// ReplacementRequest is one accepted replacement request for an (order, scope) pair
type ReplacementRequest struct {
	ID              uuid.UUID      `gorm:"type:char(36);primaryKey" json:"id"`
	OrderID         int64          `gorm:"not null;uniqueIndex:idx_replacement_order_scope" json:"order_id"`
	Scope           string         `gorm:"size:32;not null;uniqueIndex:idx_replacement_order_scope" json:"scope"`
	ItemID          int64          `gorm:"not null;default:0" json:"item_id"`
	ItemName        string         `gorm:"size:255" json:"item_name,omitempty"`
	CustomerID      int64          `gorm:"not null;index" json:"customer_id"`
	Message         string         `gorm:"type:text" json:"message"`
	Quantity        int            `gorm:"not null;default:0" json:"quantity"`
	RefundRequestID *int64         `gorm:"index" json:"refund_request_id,omitempty"`
	RefundStatus    string         `gorm:"size:32;not null;default:'pending'" json:"refund_status"`
	RefundSpec      datatypes.JSON `json:"refund_spec,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
}

// TableName specifies the table name for ReplacementRequest
func (ReplacementRequest) TableName() string {
	return "replacement_requests"
}

// BeforeCreate assigns an id when none is set
func (r *ReplacementRequest) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	if r.RefundStatus == "" {
		r.RefundStatus = RefundStatusPending
	}
	return nil
}

// OrderReplacementFlag is the order-wide submitted-flag. Its presence blocks
// every further replacement request on the order.
type OrderReplacementFlag struct {
	OrderID   int64     `gorm:"primaryKey;autoIncrement:false" json:"order_id"`
	Scope     string    `gorm:"size:32;not null" json:"scope"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName specifies the table name for OrderReplacementFlag
func (OrderReplacementFlag) TableName() string {
	return "order_replacement_flags"
}

// ReplacementRequestFilter filters the admin listing
type ReplacementRequestFilter struct {
	OrderID      int64
	CustomerID   int64
	RefundStatus string
	Page         int
	PageSize     int
}
