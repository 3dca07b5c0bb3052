package services

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
	"github.com/niaga-platform/service-replacement/internal/events"
)

// OrderCacheService caches host orders in Redis
type OrderCacheService struct {
	redis  *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewOrderCacheService creates a new order cache service
func NewOrderCacheService(redisClient *redis.Client, ttl time.Duration, logger *zap.Logger) *OrderCacheService {
	if ttl == 0 {
		ttl = 2 * time.Minute // Default TTL
	}
	return &OrderCacheService{
		redis:  redisClient,
		ttl:    ttl,
		logger: logger,
	}
}

// cacheKey generates a cache key for an order
func (s *OrderCacheService) cacheKey(orderID int64) string {
	return fmt.Sprintf("replacement:order:%d", orderID)
}

// Get retrieves a cached order. A miss or a Redis failure returns nil, nil.
func (s *OrderCacheService) Get(ctx context.Context, orderID int64) (*replacement.Order, error) {
	if s.redis == nil {
		return nil, nil // No cache available
	}

	key := s.cacheKey(orderID)
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil // Cache miss
		}
		s.logger.Warn("failed to get order from cache", zap.Error(err), zap.String("key", key))
		return nil, nil
	}

	var order replacement.Order
	if err := json.Unmarshal(data, &order); err != nil {
		s.logger.Warn("failed to unmarshal cached order", zap.Error(err))
		return nil, nil
	}

	s.logger.Debug("cache hit for order", zap.Int64("order_id", orderID))
	return &order, nil
}

// Set stores an order in cache
func (s *OrderCacheService) Set(ctx context.Context, order *replacement.Order) error {
	if s.redis == nil {
		return nil // No cache available
	}

	key := s.cacheKey(order.ID)
	data, err := json.Marshal(order)
	if err != nil {
		s.logger.Warn("failed to marshal order for cache", zap.Error(err))
		return err
	}

	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to set order in cache", zap.Error(err), zap.String("key", key))
		return err
	}

	s.logger.Debug("cached order", zap.Int64("order_id", order.ID), zap.Duration("ttl", s.ttl))
	return nil
}

// Invalidate removes a cached order
func (s *OrderCacheService) Invalidate(ctx context.Context, orderID int64) error {
	if s.redis == nil {
		return nil
	}

	if err := s.redis.Del(ctx, s.cacheKey(orderID)).Err(); err != nil {
		s.logger.Warn("failed to invalidate order cache", zap.Error(err), zap.Int64("order_id", orderID))
		return err
	}
	s.logger.Debug("invalidated order cache", zap.Int64("order_id", orderID))
	return nil
}

// OrderFetcher loads orders from the host order system
type OrderFetcher interface {
	GetOrder(ctx context.Context, orderID int64) (*replacement.Order, error)
	ListCustomerOrders(ctx context.Context, customerID int64) ([]replacement.Order, error)
}

// OrderLookup puts the cache in front of the order system
type OrderLookup struct {
	fetcher OrderFetcher
	cache   *OrderCacheService
}

// NewOrderLookup creates a new OrderLookup. cache may be nil.
func NewOrderLookup(fetcher OrderFetcher, cache *OrderCacheService) *OrderLookup {
	return &OrderLookup{fetcher: fetcher, cache: cache}
}

// GetOrder returns the cached order or fetches and caches it
func (l *OrderLookup) GetOrder(ctx context.Context, orderID int64) (*replacement.Order, error) {
	if l.cache != nil {
		if order, _ := l.cache.Get(ctx, orderID); order != nil {
			return order, nil
		}
	}

	order, err := l.fetcher.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if l.cache != nil {
		_ = l.cache.Set(ctx, order)
	}
	return order, nil
}

// GetFreshOrder skips the cache and refreshes the cached copy
func (l *OrderLookup) GetFreshOrder(ctx context.Context, orderID int64) (*replacement.Order, error) {
	order, err := l.fetcher.GetOrder(ctx, orderID)
	if err != nil {
		_ = l.Invalidate(ctx, orderID)
		return nil, err
	}
	if l.cache != nil {
		_ = l.cache.Set(ctx, order)
	}
	return order, nil
}

// ListCustomerOrders always reads through to the order system
func (l *OrderLookup) ListCustomerOrders(ctx context.Context, customerID int64) ([]replacement.Order, error) {
	return l.fetcher.ListCustomerOrders(ctx, customerID)
}

// Invalidate drops a cached order
func (l *OrderLookup) Invalidate(ctx context.Context, orderID int64) error {
	if l.cache == nil {
		return nil
	}
	return l.cache.Invalidate(ctx, orderID)
}

// HandleOrderChanged drops the cached copy of a changed order
func (l *OrderLookup) HandleOrderChanged(event *events.OrderChangedEvent) error {
	return l.Invalidate(context.Background(), event.OrderID)
}
