package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
	"github.com/niaga-platform/service-replacement/internal/models"
	"github.com/niaga-platform/service-replacement/internal/repository"
)

// ReplacementLabel is the marker shown next to orders and refund requests
// that carry a replacement request.
const ReplacementLabel = "Replacement Requested"

// ErrRefundRequestNotLinked is returned for refund requests not created from a replacement
var ErrRefundRequestNotLinked = errors.New("refund request is not a replacement request")

// AdminStore is the read side used by the admin views
type AdminStore interface {
	ListByOrder(ctx context.Context, orderID int64) ([]models.ReplacementRequest, error)
	GetByRefundRequestID(ctx context.Context, refundRequestID int64) (*models.ReplacementRequest, error)
	ListByRefundRequestIDs(ctx context.Context, refundRequestIDs []int64) (map[int64]models.ReplacementRequest, error)
	FlaggedOrders(ctx context.Context, orderIDs []int64) (map[int64]bool, error)
	List(ctx context.Context, filter *models.ReplacementRequestFilter) ([]models.ReplacementRequest, int64, error)
}

// AdminRequestView is one replacement request on the order detail view
type AdminRequestView struct {
	ID              string    `json:"id"`
	Scope           string    `json:"scope"`
	ItemID          int64     `json:"item_id"`
	ItemName        string    `json:"item_name,omitempty"`
	Quantity        int       `json:"quantity,omitempty"`
	Message         string    `json:"message"`
	MessageHTML     string    `json:"message_html"`
	RefundRequestID *int64    `json:"refund_request_id,omitempty"`
	RefundStatus    string    `json:"refund_status"`
	CreatedAt       time.Time `json:"created_at"`
}

// AdminOrderView is the replacement block appended to an order's detail view
type AdminOrderView struct {
	OrderID   int64              `json:"order_id"`
	Submitted bool               `json:"submitted"`
	Label     string             `json:"label,omitempty"`
	Requests  []AdminRequestView `json:"requests"`
	Meta      map[string]string  `json:"meta"`
}

// RefundRequestColumn is the replacement column of the refund request list
type RefundRequestColumn struct {
	RefundRequestID int64  `json:"refund_request_id"`
	OrderID         int64  `json:"order_id"`
	ItemID          int64  `json:"item_id"`
	Label           string `json:"label"`
	Text            string `json:"text"`
}

// RefundRequestTitle is the heading shown on a refund request's detail view
type RefundRequestTitle struct {
	RefundRequestID int64            `json:"refund_request_id"`
	Title           string           `json:"title"`
	Request         AdminRequestView `json:"request"`
}

// AdminService projects stored replacement data onto admin views
type AdminService struct {
	store  AdminStore
	logger *zap.Logger
}

// NewAdminService creates a new AdminService
func NewAdminService(store AdminStore, logger *zap.Logger) *AdminService {
	return &AdminService{store: store, logger: logger}
}

// OrderDetail returns the replacement messages recorded for an order
func (s *AdminService) OrderDetail(ctx context.Context, orderID int64) (*AdminOrderView, error) {
	requests, err := s.store.ListByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to list replacement requests: %w", err)
	}

	view := &AdminOrderView{
		OrderID:  orderID,
		Requests: make([]AdminRequestView, 0, len(requests)),
		Meta:     make(map[string]string),
	}
	for i := range requests {
		req := &requests[i]
		view.Requests = append(view.Requests, requestView(req))

		scope, err := replacement.ParseScope(req.Scope)
		if err != nil {
			s.logger.Warn("Stored replacement request has invalid scope", zap.String("scope", req.Scope))
			continue
		}
		submittedKey, messageKey, quantityKey := replacement.MetaKeys(scope)
		view.Meta[submittedKey] = "1"
		view.Meta[messageKey] = req.Message
		if !scope.IsWhole() {
			view.Meta[quantityKey] = strconv.Itoa(req.Quantity)
		}
	}
	if len(requests) > 0 {
		view.Submitted = true
		view.Label = ReplacementLabel
		view.Meta[replacement.MetaKeySubmitted] = "1"
	}
	return view, nil
}

// OrderLabels returns the list-view label for each flagged order
func (s *AdminService) OrderLabels(ctx context.Context, orderIDs []int64) (map[int64]string, error) {
	flagged, err := s.store.FlaggedOrders(ctx, orderIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load flagged orders: %w", err)
	}

	labels := make(map[int64]string, len(flagged))
	for id, set := range flagged {
		if set {
			labels[id] = ReplacementLabel
		}
	}
	return labels, nil
}

// RefundRequestColumns resolves refund requests back to their order and item
func (s *AdminService) RefundRequestColumns(ctx context.Context, refundRequestIDs []int64) ([]RefundRequestColumn, error) {
	linked, err := s.store.ListByRefundRequestIDs(ctx, refundRequestIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load linked refund requests: %w", err)
	}

	columns := make([]RefundRequestColumn, 0, len(linked))
	for _, id := range refundRequestIDs {
		req, ok := linked[id]
		if !ok {
			continue
		}
		columns = append(columns, RefundRequestColumn{
			RefundRequestID: id,
			OrderID:         req.OrderID,
			ItemID:          req.ItemID,
			Label:           ReplacementLabel,
			Text:            describeRequest(&req),
		})
	}
	return columns, nil
}

// RefundRequestTitle returns the heading block for a replacement-derived refund request
func (s *AdminService) RefundRequestTitle(ctx context.Context, refundRequestID int64) (*RefundRequestTitle, error) {
	req, err := s.store.GetByRefundRequestID(ctx, refundRequestID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrRefundRequestNotLinked
		}
		return nil, err
	}
	return &RefundRequestTitle{
		RefundRequestID: refundRequestID,
		Title:           "Replacement Request",
		Request:         requestView(req),
	}, nil
}

// List returns a page of replacement requests
func (s *AdminService) List(ctx context.Context, filter *models.ReplacementRequestFilter) ([]AdminRequestView, int64, error) {
	requests, total, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	views := make([]AdminRequestView, 0, len(requests))
	for i := range requests {
		views = append(views, requestView(&requests[i]))
	}
	return views, total, nil
}

func requestView(req *models.ReplacementRequest) AdminRequestView {
	return AdminRequestView{
		ID:              req.ID.String(),
		Scope:           req.Scope,
		ItemID:          req.ItemID,
		ItemName:        req.ItemName,
		Quantity:        req.Quantity,
		Message:         req.Message,
		MessageHTML:     replacement.MessageHTML(req.Message),
		RefundRequestID: req.RefundRequestID,
		RefundStatus:    req.RefundStatus,
		CreatedAt:       req.CreatedAt,
	}
}

func describeRequest(req *models.ReplacementRequest) string {
	if req.Scope == replacement.ScopeWhole {
		return fmt.Sprintf("Order #%d / whole order", req.OrderID)
	}
	name := req.ItemName
	if name == "" {
		name = fmt.Sprintf("item %d", req.ItemID)
	}
	return fmt.Sprintf("Order #%d / %s x %d", req.OrderID, name, req.Quantity)
}
