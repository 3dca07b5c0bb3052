package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
	"github.com/niaga-platform/service-replacement/internal/events"
)

type countingFetcher struct {
	orders map[int64]*replacement.Order
	calls  int
}

func (f *countingFetcher) GetOrder(_ context.Context, orderID int64) (*replacement.Order, error) {
	f.calls++
	order, ok := f.orders[orderID]
	if !ok {
		return nil, replacement.ErrOrderNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *countingFetcher) ListCustomerOrders(_ context.Context, customerID int64) ([]replacement.Order, error) {
	var out []replacement.Order
	for _, o := range f.orders {
		if o.CustomerID == customerID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func newMiniredis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestOrderCacheService_RoundTrip(t *testing.T) {
	mr, client := newMiniredis(t)
	cache := NewOrderCacheService(client, time.Minute, zap.NewNop())
	ctx := context.Background()

	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)

	completed := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)
	order := &replacement.Order{ID: 1, Status: "completed", CompletedAt: &completed, Total: decimal.RequireFromString("12.50")}
	require.NoError(t, cache.Set(ctx, order))
	assert.True(t, mr.Exists("replacement:order:1"))
	assert.Equal(t, time.Minute, mr.TTL("replacement:order:1"))

	got, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Total.Equal(order.Total))
	assert.True(t, got.CompletedAt.Equal(completed))

	require.NoError(t, cache.Invalidate(ctx, 1))
	assert.False(t, mr.Exists("replacement:order:1"))
}

func TestOrderCacheService_NilClient(t *testing.T) {
	cache := NewOrderCacheService(nil, 0, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &replacement.Order{ID: 1}))
	got, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got)
	assert.NoError(t, cache.Invalidate(ctx, 1))
}

func TestOrderLookup_UsesCache(t *testing.T) {
	_, client := newMiniredis(t)
	fetcher := &countingFetcher{orders: map[int64]*replacement.Order{
		5: {ID: 5, Status: "completed", CustomerID: 2},
	}}
	lookup := NewOrderLookup(fetcher, NewOrderCacheService(client, time.Minute, zap.NewNop()))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		order, err := lookup.GetOrder(ctx, 5)
		require.NoError(t, err)
		assert.Equal(t, int64(5), order.ID)
	}
	assert.Equal(t, 1, fetcher.calls)

	require.NoError(t, lookup.Invalidate(ctx, 5))
	_, err := lookup.GetOrder(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, fetcher.calls)

	_, err = lookup.GetOrder(ctx, 6)
	assert.ErrorIs(t, err, replacement.ErrOrderNotFound)

	orders, err := lookup.ListCustomerOrders(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, orders, 1)
}

func TestOrderLookup_HandleOrderChanged(t *testing.T) {
	mr, client := newMiniredis(t)
	fetcher := &countingFetcher{orders: map[int64]*replacement.Order{8: {ID: 8}}}
	lookup := NewOrderLookup(fetcher, NewOrderCacheService(client, time.Minute, zap.NewNop()))

	_, err := lookup.GetOrder(context.Background(), 8)
	require.NoError(t, err)
	require.True(t, mr.Exists("replacement:order:8"))

	require.NoError(t, lookup.HandleOrderChanged(&events.OrderChangedEvent{OrderID: 8, NewStatus: "refunded"}))
	assert.False(t, mr.Exists("replacement:order:8"))
}
