package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
)

// Order listing paging defaults
const (
	DefaultOrderPageSize = 50
	maxOrderPages        = 20
)

// OrderClient handles communication with the host order system
type OrderClient struct {
	baseURL    string
	httpClient *http.Client
	retry      *RetryPolicy
	pageSize   int
	logger     *zap.Logger
}

// NewOrderClient creates a new OrderClient
func NewOrderClient(baseURL string, timeout time.Duration, logger *zap.Logger) *OrderClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OrderClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		retry:    DefaultRetryPolicy(),
		pageSize: DefaultOrderPageSize,
		logger:   logger,
	}
}

// WithPageSize sets how many orders are requested per listing page
func (c *OrderClient) WithPageSize(size int) *OrderClient {
	if size > 0 {
		c.pageSize = size
	}
	return c
}

// WithRetryPolicy replaces the retry policy used for order reads
func (c *OrderClient) WithRetryPolicy(policy *RetryPolicy) *OrderClient {
	c.retry = policy
	return c
}

// GetOrder fetches an order by ID
func (c *OrderClient) GetOrder(ctx context.Context, orderID int64) (*replacement.Order, error) {
	endpoint := fmt.Sprintf("%s/api/v1/orders/%d", c.baseURL, orderID)

	var result struct {
		Success bool              `json:"success"`
		Message string            `json:"message"`
		Data    replacement.Order `json:"data"`
	}
	if err := c.get(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	if result.Data.ID == 0 {
		return nil, replacement.ErrOrderNotFound
	}

	return &result.Data, nil
}

// ListCustomerOrders fetches the orders placed by a customer, following pages
// until a short page comes back
func (c *OrderClient) ListCustomerOrders(ctx context.Context, customerID int64) ([]replacement.Order, error) {
	var orders []replacement.Order

	for page := 1; page <= maxOrderPages; page++ {
		query := url.Values{}
		query.Set("customer_id", strconv.FormatInt(customerID, 10))
		query.Set("page", strconv.Itoa(page))
		query.Set("page_size", strconv.Itoa(c.pageSize))
		endpoint := fmt.Sprintf("%s/api/v1/orders?%s", c.baseURL, query.Encode())

		var result struct {
			Success bool                `json:"success"`
			Message string              `json:"message"`
			Data    []replacement.Order `json:"data"`
		}
		if err := c.get(ctx, endpoint, &result); err != nil {
			return nil, err
		}
		orders = append(orders, result.Data...)

		if len(result.Data) < c.pageSize {
			break
		}
		if page == maxOrderPages {
			c.logger.Warn("Customer order listing truncated", zap.Int64("customer_id", customerID), zap.Int("pages", page))
		}
	}

	c.logger.Debug("Fetched customer orders", zap.Int64("customer_id", customerID), zap.Int("count", len(orders)))
	return orders, nil
}

func (c *OrderClient) get(ctx context.Context, endpoint string, out interface{}) error {
	return c.retry.Do(ctx, func() error {
		return c.getOnce(ctx, endpoint, out)
	})
}

func (c *OrderClient) getOnce(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("Order system request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return &retryableError{err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return replacement.ErrOrderNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		err := fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
		if retryableStatus(resp.StatusCode) {
			return &retryableError{status: resp.StatusCode, err: err}
		}
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
