package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
	"github.com/niaga-platform/service-replacement/internal/models"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

// ReplacementRepository persists replacement requests and submitted-flags
type ReplacementRepository struct {
	db *gorm.DB
}

// NewReplacementRepository creates a new ReplacementRepository
func NewReplacementRepository(db *gorm.DB) *ReplacementRepository {
	return &ReplacementRepository{db: db}
}

// Flags returns the submitted-flags currently recorded for an order
func (r *ReplacementRepository) Flags(ctx context.Context, orderID int64) (replacement.SubmittedFlags, error) {
	flags := replacement.SubmittedFlags{Scopes: make(map[string]bool)}

	var count int64
	if err := r.db.WithContext(ctx).Model(&models.OrderReplacementFlag{}).
		Where("order_id = ?", orderID).Count(&count).Error; err != nil {
		return flags, err
	}
	flags.Order = count > 0

	var scopes []string
	if err := r.db.WithContext(ctx).Model(&models.ReplacementRequest{}).
		Where("order_id = ?", orderID).Pluck("scope", &scopes).Error; err != nil {
		return flags, err
	}
	for _, s := range scopes {
		flags.Scopes[s] = true
	}
	return flags, nil
}

// Record stores a request and sets the order-wide flag in one transaction.
// Both inserts are conditional, so of two concurrent submissions for the
// same order only one succeeds; the other gets ErrAlreadySubmitted.
func (r *ReplacementRepository) Record(ctx context.Context, req *models.ReplacementRequest) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		flag := &models.OrderReplacementFlag{OrderID: req.OrderID, Scope: req.Scope}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(flag)
		if res.Error != nil {
			return fmt.Errorf("failed to set order flag: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return replacement.ErrAlreadySubmitted
		}

		res = tx.Clauses(clause.OnConflict{DoNothing: true}).Create(req)
		if res.Error != nil {
			return fmt.Errorf("failed to create replacement request: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return replacement.ErrAlreadySubmitted
		}
		return nil
	})
}

// AttachRefund stores the refund bridge outcome on a request
func (r *ReplacementRepository) AttachRefund(ctx context.Context, id uuid.UUID, refundRequestID *int64, status string, spec datatypes.JSON) error {
	updates := map[string]interface{}{
		"refund_request_id": refundRequestID,
		"refund_status":     status,
	}
	if spec != nil {
		updates["refund_spec"] = spec
	}
	res := r.db.WithContext(ctx).Model(&models.ReplacementRequest{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ListByOrder returns every request recorded for an order, oldest first
func (r *ReplacementRepository) ListByOrder(ctx context.Context, orderID int64) ([]models.ReplacementRequest, error) {
	var requests []models.ReplacementRequest
	err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("created_at ASC").
		Find(&requests).Error
	return requests, err
}

// GetByRefundRequestID finds the request that created a refund request
func (r *ReplacementRepository) GetByRefundRequestID(ctx context.Context, refundRequestID int64) (*models.ReplacementRequest, error) {
	var req models.ReplacementRequest
	err := r.db.WithContext(ctx).Where("refund_request_id = ?", refundRequestID).First(&req).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &req, nil
}

// ListByRefundRequestIDs returns requests keyed by refund request id
func (r *ReplacementRepository) ListByRefundRequestIDs(ctx context.Context, refundRequestIDs []int64) (map[int64]models.ReplacementRequest, error) {
	result := make(map[int64]models.ReplacementRequest, len(refundRequestIDs))
	if len(refundRequestIDs) == 0 {
		return result, nil
	}

	var requests []models.ReplacementRequest
	if err := r.db.WithContext(ctx).Where("refund_request_id IN ?", refundRequestIDs).Find(&requests).Error; err != nil {
		return nil, err
	}
	for _, req := range requests {
		if req.RefundRequestID != nil {
			result[*req.RefundRequestID] = req
		}
	}
	return result, nil
}

// FlaggedOrders returns which of the given orders carry any submitted-flag
func (r *ReplacementRepository) FlaggedOrders(ctx context.Context, orderIDs []int64) (map[int64]bool, error) {
	result := make(map[int64]bool, len(orderIDs))
	if len(orderIDs) == 0 {
		return result, nil
	}

	var flagged []int64
	if err := r.db.WithContext(ctx).Model(&models.OrderReplacementFlag{}).
		Where("order_id IN ?", orderIDs).Pluck("order_id", &flagged).Error; err != nil {
		return nil, err
	}
	for _, id := range flagged {
		result[id] = true
	}
	return result, nil
}

// List returns a page of requests matching the filter
func (r *ReplacementRepository) List(ctx context.Context, filter *models.ReplacementRequestFilter) ([]models.ReplacementRequest, int64, error) {
	scoped := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.ReplacementRequest{})
		if filter.OrderID != 0 {
			query = query.Where("order_id = ?", filter.OrderID)
		}
		if filter.CustomerID != 0 {
			query = query.Where("customer_id = ?", filter.CustomerID)
		}
		if filter.RefundStatus != "" {
			query = query.Where("refund_status = ?", filter.RefundStatus)
		}
		return query
	}

	var total int64
	if err := scoped().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := filter.Page, filter.PageSize
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	var requests []models.ReplacementRequest
	err := scoped().Order("created_at DESC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&requests).Error
	return requests, total, err
}
