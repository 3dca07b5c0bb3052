package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event subjects
const (
	SubjectReplacementSubmitted = "replacement.request.submitted"
	SubjectReplacementRefundErr = "replacement.refund.failed"

	// Order events - cached orders are dropped when the order changes
	SubjectOrderStatusChanged = "order.status.changed"
	SubjectOrderUpdated       = "order.updated"
)

// OrderChangedEvent represents an order change from the order system
type OrderChangedEvent struct {
	OrderID   int64     `json:"order_id"`
	OldStatus string    `json:"old_status,omitempty"`
	NewStatus string    `json:"new_status,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReplacementSubmittedEvent is published for every accepted replacement request
type ReplacementSubmittedEvent struct {
	EventID         uuid.UUID `json:"event_id"`
	RequestID       uuid.UUID `json:"request_id"`
	OrderID         int64     `json:"order_id"`
	Scope           string    `json:"scope"`
	ItemID          int64     `json:"item_id"`
	CustomerID      int64     `json:"customer_id"`
	Quantity        int       `json:"quantity"`
	RefundRequestID *int64    `json:"refund_request_id,omitempty"`
	RefundStatus    string    `json:"refund_status"`
	Timestamp       time.Time `json:"timestamp"`
}

// RefundFailedEvent is published when a request was recorded but no refund request was created
type RefundFailedEvent struct {
	EventID   uuid.UUID `json:"event_id"`
	RequestID uuid.UUID `json:"request_id"`
	OrderID   int64     `json:"order_id"`
	Scope     string    `json:"scope"`
	Reason    string    `json:"reason"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Subscriber handles NATS event subscriptions
type Subscriber struct {
	nc      *nats.Conn
	logger  *zap.Logger
	handler EventHandler
	subs    []*nats.Subscription
}

// EventHandler defines the interface for handling events
type EventHandler interface {
	HandleOrderChanged(event *OrderChangedEvent) error
}

// NewSubscriber creates a new NATS subscriber
func NewSubscriber(nc *nats.Conn, handler EventHandler, logger *zap.Logger) *Subscriber {
	return &Subscriber{
		nc:      nc,
		logger:  logger,
		handler: handler,
		subs:    make([]*nats.Subscription, 0),
	}
}

// Start subscribes to all relevant events
func (s *Subscriber) Start() error {
	for _, subject := range []string{SubjectOrderStatusChanged, SubjectOrderUpdated} {
		sub, err := s.nc.Subscribe(subject, s.HandleOrderMessage)
		if err != nil {
			return err
		}
		s.subs = append(s.subs, sub)
		s.logger.Info("Subscribed to event", zap.String("subject", subject))
	}

	s.logger.Info("NATS subscriber started with all subscriptions")
	return nil
}

// Stop unsubscribes from all events
func (s *Subscriber) Stop() {
	for _, sub := range s.subs {
		sub.Unsubscribe()
	}
	s.logger.Info("NATS subscriber stopped")
}

// HandleOrderMessage processes order change events
func (s *Subscriber) HandleOrderMessage(msg *nats.Msg) {
	var event OrderChangedEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		s.logger.Error("Failed to unmarshal order changed event", zap.Error(err))
		return
	}
	if event.OrderID == 0 {
		s.logger.Warn("Ignoring order event without order id", zap.String("subject", msg.Subject))
		return
	}

	s.logger.Debug("Received order changed event",
		zap.Int64("order_id", event.OrderID),
		zap.String("new_status", event.NewStatus),
	)

	if err := s.handler.HandleOrderChanged(&event); err != nil {
		s.logger.Error("Failed to handle order changed event",
			zap.Int64("order_id", event.OrderID),
			zap.Error(err),
		)
	}
}

// Publisher handles publishing events to NATS
type Publisher struct {
	nc     *nats.Conn
	logger *zap.Logger
}

// NewPublisher creates a new NATS publisher
func NewPublisher(nc *nats.Conn, logger *zap.Logger) *Publisher {
	return &Publisher{nc: nc, logger: logger}
}

// PublishReplacementSubmitted publishes a replacement submitted event
func (p *Publisher) PublishReplacementSubmitted(event *ReplacementSubmittedEvent) error {
	return p.publish(SubjectReplacementSubmitted, event)
}

// PublishRefundFailed publishes a refund failed event
func (p *Publisher) PublishRefundFailed(event *RefundFailedEvent) error {
	return p.publish(SubjectReplacementRefundErr, event)
}

func (p *Publisher) publish(subject string, event interface{}) error {
	if p == nil || p.nc == nil {
		return nil
	}
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.nc.Publish(subject, data)
}
