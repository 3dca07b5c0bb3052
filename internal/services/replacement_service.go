package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
	"github.com/niaga-platform/service-replacement/internal/events"
	"github.com/niaga-platform/service-replacement/internal/models"
	"github.com/niaga-platform/service-replacement/internal/refund"
)

// OrderSource resolves host orders
type OrderSource interface {
	GetOrder(ctx context.Context, orderID int64) (*replacement.Order, error)
}

// FreshOrderSource is implemented by sources that can bypass their cache.
// Submit uses it so a stale cached order never passes the eligibility re-check.
type FreshOrderSource interface {
	GetFreshOrder(ctx context.Context, orderID int64) (*replacement.Order, error)
}

// ReplacementStore persists replacement requests and their submitted-flags
type ReplacementStore interface {
	Flags(ctx context.Context, orderID int64) (replacement.SubmittedFlags, error)
	Record(ctx context.Context, req *models.ReplacementRequest) error
	AttachRefund(ctx context.Context, id uuid.UUID, refundRequestID *int64, status string, spec datatypes.JSON) error
}

// EventPublisher publishes replacement events
type EventPublisher interface {
	PublishReplacementSubmitted(event *events.ReplacementSubmittedEvent) error
	PublishRefundFailed(event *events.RefundFailedEvent) error
}

// Outcome of an accepted submission
type Outcome string

const (
	// OutcomeSuccess means the request was recorded and a refund request created
	OutcomeSuccess Outcome = "success"
	// OutcomePartialSuccess means the request was recorded but no refund request exists
	OutcomePartialSuccess Outcome = "partial_success"
)

// Notice returns the customer-facing message for the outcome
func (o Outcome) Notice() string {
	if o == OutcomeSuccess {
		return "Your replacement request has been submitted and a refund request has been created."
	}
	return replacement.CodeRefundSaveFailed.Notice()
}

// SubmitInput is a validated replacement submission
type SubmitInput struct {
	CustomerID int64
	OrderID    int64
	Scope      replacement.Scope
	Message    string
	Quantity   int // 0 defaults to 1 for item scopes
}

// SubmitResult is returned for every accepted submission
type SubmitResult struct {
	Outcome         Outcome                    `json:"outcome"`
	Notice          string                     `json:"notice"`
	Request         *models.ReplacementRequest `json:"request"`
	RefundRequestID *int64                     `json:"refund_request_id,omitempty"`
	RefundError     replacement.ErrorCode      `json:"refund_error,omitempty"`
}

// ScopeEligibility is the eligibility of one scope, as shown to the customer
type ScopeEligibility struct {
	Scope       string  `json:"scope"`
	ItemID      int64   `json:"item_id"`
	ItemName    string  `json:"item_name,omitempty"`
	MaxQuantity int     `json:"max_quantity"`
	Eligibility string  `json:"eligibility"`
	Eligible    bool    `json:"eligible"`
	UnitPrice   *string `json:"unit_price,omitempty"`
}

// OrderEligibility is everything the request form renderer needs for one order
type OrderEligibility struct {
	Order     *replacement.Order `json:"order"`
	Deadline  *time.Time         `json:"deadline,omitempty"`
	Submitted bool               `json:"submitted"`
	Whole     ScopeEligibility   `json:"whole"`
	Items     []ScopeEligibility `json:"items"`
}

// AnyEligible reports whether any scope can still be requested
func (e *OrderEligibility) AnyEligible() bool {
	if e.Whole.Eligible {
		return true
	}
	for _, item := range e.Items {
		if item.Eligible {
			return true
		}
	}
	return false
}

// ReplacementServiceConfig holds configuration
type ReplacementServiceConfig struct {
	Window time.Duration
	Now    func() time.Time
}

// ReplacementService checks eligibility and handles replacement submissions
type ReplacementService struct {
	orders    OrderSource
	store     ReplacementStore
	bridge    *refund.Bridge
	publisher EventPublisher
	checker   replacement.Checker
	now       func() time.Time
	logger    *zap.Logger
}

// NewReplacementService creates a new ReplacementService. publisher may be nil.
func NewReplacementService(
	orders OrderSource,
	store ReplacementStore,
	bridge *refund.Bridge,
	publisher EventPublisher,
	cfg *ReplacementServiceConfig,
	logger *zap.Logger,
) *ReplacementService {
	now := time.Now
	var window time.Duration
	if cfg != nil {
		window = cfg.Window
		if cfg.Now != nil {
			now = cfg.Now
		}
	}

	return &ReplacementService{
		orders:    orders,
		store:     store,
		bridge:    bridge,
		publisher: publisher,
		checker:   replacement.NewChecker(window),
		now:       now,
		logger:    logger,
	}
}

// Eligibility evaluates every scope of a customer's order
func (s *ReplacementService) Eligibility(ctx context.Context, customerID, orderID int64) (*OrderEligibility, error) {
	order, err := s.customerOrder(ctx, customerID, orderID, false)
	if err != nil {
		return nil, err
	}

	flags, err := s.store.Flags(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submitted flags: %w", err)
	}

	now := s.now()
	result := &OrderEligibility{
		Order:     order,
		Submitted: flags.Any(),
		Whole:     s.scopeEligibility(order, replacement.WholeOrder(), nil, flags, now),
		Items:     make([]ScopeEligibility, 0, len(order.Items)),
	}
	if deadline, ok := s.checker.Deadline(order); ok {
		result.Deadline = &deadline
	}
	for i := range order.Items {
		item := &order.Items[i]
		result.Items = append(result.Items, s.scopeEligibility(order, replacement.ItemScope(item.ID), item, flags, now))
	}

	return result, nil
}

func (s *ReplacementService) scopeEligibility(order *replacement.Order, scope replacement.Scope, item *replacement.LineItem, flags replacement.SubmittedFlags, now time.Time) ScopeEligibility {
	status := s.checker.Check(order, scope, flags, now)
	view := ScopeEligibility{
		Scope:       scope.String(),
		ItemID:      scope.ItemID,
		Eligibility: status.String(),
		Eligible:    status == replacement.Eligible,
	}
	if item != nil {
		unit := item.UnitPrice().StringFixed(2)
		view.ItemName = item.Name
		view.MaxQuantity = item.Quantity
		view.UnitPrice = &unit
	}
	return view
}

// Submit re-validates and records a replacement request, then creates the
// matching refund request. A failed refund bridge still returns a result with
// OutcomePartialSuccess; every other failure is a *replacement.RequestError.
func (s *ReplacementService) Submit(ctx context.Context, in *SubmitInput) (*SubmitResult, error) {
	logger := s.logger.With(zap.Int64("order_id", in.OrderID), zap.String("scope", in.Scope.String()))

	if utf8.RuneCountInString(in.Message) > replacement.MaxMessageLength {
		return nil, replacement.NewRequestError(replacement.CodeMessageTooLong, in.OrderID, in.Scope, nil)
	}

	order, err := s.customerOrder(ctx, in.CustomerID, in.OrderID, true)
	if err != nil {
		logger.Warn("Replacement request for unknown order", zap.Error(err))
		return nil, err
	}

	flags, err := s.store.Flags(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load submitted flags: %w", err)
	}
	if status := s.checker.Check(order, in.Scope, flags, s.now()); status != replacement.Eligible {
		logger.Warn("Replacement request rejected", zap.String("eligibility", status.String()))
		return nil, replacement.NewRequestError(status.Code(), order.ID, in.Scope, nil)
	}

	req := &models.ReplacementRequest{
		OrderID:    order.ID,
		Scope:      in.Scope.String(),
		ItemID:     in.Scope.ItemID,
		CustomerID: order.CustomerID,
		Message:    replacement.SanitizeMessage(in.Message),
	}
	if !in.Scope.IsWhole() {
		item, ok := order.Item(in.Scope.ItemID)
		if !ok {
			return nil, replacement.NewRequestError(replacement.CodeItemNotFound, order.ID, in.Scope, nil)
		}
		qty := in.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 1 || qty > item.Quantity {
			return nil, replacement.NewRequestError(replacement.CodeInvalidQuantity, order.ID, in.Scope,
				fmt.Errorf("quantity %d outside 1..%d", qty, item.Quantity))
		}
		req.ItemName = item.Name
		req.Quantity = qty
	}

	if err := s.store.Record(ctx, req); err != nil {
		if errors.Is(err, replacement.ErrAlreadySubmitted) {
			logger.Warn("Replacement request already submitted")
			return nil, replacement.NewRequestError(replacement.CodeAlreadySubmitted, order.ID, in.Scope, nil)
		}
		return nil, fmt.Errorf("failed to record replacement request: %w", err)
	}
	logger.Info("Replacement message and order ID saved", zap.String("request_id", req.ID.String()))

	result := &SubmitResult{Request: req}
	refundID, spec, bridgeErr := s.bridge.Create(ctx, order, in.Scope, req.Message, req.Quantity)
	specJSON := marshalSpec(spec)

	if bridgeErr != nil {
		code := replacement.CodeOf(bridgeErr)
		status := models.RefundStatusFailed
		if code == replacement.CodeRefundPluginUnavailable {
			status = models.RefundStatusUnavailable
		}
		logger.Error("Failed to create refund request", zap.String("reason", code.String()), zap.Error(bridgeErr))

		if err := s.store.AttachRefund(ctx, req.ID, nil, status, specJSON); err != nil {
			logger.Error("Failed to store refund outcome", zap.Error(err))
		}
		req.RefundStatus = status

		result.Outcome = OutcomePartialSuccess
		result.RefundError = code
		s.publishRefundFailed(req, code, bridgeErr)
	} else {
		if err := s.bridge.LinkBack(ctx, refundID, order.ID, in.Scope); err != nil {
			logger.Warn("Failed to link refund request to order", zap.Int64("refund_request_id", refundID), zap.Error(err))
		}
		if err := s.store.AttachRefund(ctx, req.ID, &refundID, models.RefundStatusCreated, specJSON); err != nil {
			logger.Error("Failed to store refund outcome", zap.Error(err))
		}
		req.RefundRequestID = &refundID
		req.RefundStatus = models.RefundStatusCreated

		result.Outcome = OutcomeSuccess
		result.RefundRequestID = &refundID
		logger.Info("Refund request created successfully", zap.Int64("refund_request_id", refundID))
	}
	req.RefundSpec = specJSON
	result.Notice = result.Outcome.Notice()

	s.publishSubmitted(req)
	return result, nil
}

// customerOrder loads an order and hides orders that belong to someone else.
// fresh skips any cache in front of the order system.
func (s *ReplacementService) customerOrder(ctx context.Context, customerID, orderID int64, fresh bool) (*replacement.Order, error) {
	var (
		order *replacement.Order
		err   error
	)
	if src, ok := s.orders.(FreshOrderSource); ok && fresh {
		order, err = src.GetFreshOrder(ctx, orderID)
	} else {
		order, err = s.orders.GetOrder(ctx, orderID)
	}
	if err != nil {
		if errors.Is(err, replacement.ErrOrderNotFound) {
			return nil, replacement.NewRequestError(replacement.CodeOrderNotFound, orderID, replacement.WholeOrder(), nil)
		}
		return nil, fmt.Errorf("failed to load order %d: %w", orderID, err)
	}
	if order.CustomerID != customerID {
		return nil, replacement.NewRequestError(replacement.CodeOrderNotFound, orderID, replacement.WholeOrder(), nil)
	}
	return order, nil
}

func (s *ReplacementService) publishSubmitted(req *models.ReplacementRequest) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishReplacementSubmitted(&events.ReplacementSubmittedEvent{
		EventID:         uuid.New(),
		RequestID:       req.ID,
		OrderID:         req.OrderID,
		Scope:           req.Scope,
		ItemID:          req.ItemID,
		CustomerID:      req.CustomerID,
		Quantity:        req.Quantity,
		RefundRequestID: req.RefundRequestID,
		RefundStatus:    req.RefundStatus,
		Timestamp:       s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to publish replacement event", zap.Error(err))
	}
}

func (s *ReplacementService) publishRefundFailed(req *models.ReplacementRequest, code replacement.ErrorCode, cause error) {
	if s.publisher == nil {
		return
	}
	err := s.publisher.PublishRefundFailed(&events.RefundFailedEvent{
		EventID:   uuid.New(),
		RequestID: req.ID,
		OrderID:   req.OrderID,
		Scope:     req.Scope,
		Reason:    code.String(),
		Error:     cause.Error(),
		Timestamp: s.now(),
	})
	if err != nil {
		s.logger.Warn("Failed to publish refund failure event", zap.Error(err))
	}
}

func marshalSpec(spec *refund.RefundRequestSpec) datatypes.JSON {
	if spec == nil {
		return nil
	}
	data, err := json.Marshal(spec)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
