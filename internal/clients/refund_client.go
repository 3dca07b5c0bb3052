package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
	"github.com/niaga-platform/service-replacement/internal/refund"
)

// RefundClient talks to the refund-management system and implements refund.Sink
type RefundClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ refund.Sink = (*RefundClient)(nil)

// NewRefundClient creates a new RefundClient. An empty baseURL means the
// refund system is not installed and every call reports it unavailable.
func NewRefundClient(baseURL string, timeout time.Duration, logger *zap.Logger) *RefundClient {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &RefundClient{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Configured reports whether a refund system URL is set
func (c *RefundClient) Configured() bool {
	return c.baseURL != ""
}

// CreateRequest saves a refund request and returns its id
// POST /api/v1/refund-requests
func (c *RefundClient) CreateRequest(ctx context.Context, spec *refund.RefundRequestSpec) (int64, error) {
	var result struct {
		Success bool   `json:"success"`
		Message string `json:"message"`
		Data    struct {
			ID int64 `json:"id"`
		} `json:"data"`
	}
	if err := c.send(ctx, http.MethodPost, "/api/v1/refund-requests", spec, &result); err != nil {
		return 0, err
	}
	if result.Data.ID == 0 {
		return 0, fmt.Errorf("%w: no id returned", replacement.ErrRefundSaveFailed)
	}

	c.logger.Info("Refund request created",
		zap.Int64("refund_request_id", result.Data.ID),
		zap.Int64("order_id", spec.OrderID),
	)
	return result.Data.ID, nil
}

// CreateMessage saves a message on a refund request
// POST /api/v1/refund-requests/:id/messages
func (c *RefundClient) CreateMessage(ctx context.Context, msg *refund.RequestMessage) error {
	path := fmt.Sprintf("/api/v1/refund-requests/%d/messages", msg.RequestID)
	return c.send(ctx, http.MethodPost, path, msg, nil)
}

// SetMeta writes metadata on a refund request
// PUT /api/v1/refund-requests/:id/meta
func (c *RefundClient) SetMeta(ctx context.Context, requestID int64, meta map[string]string) error {
	path := fmt.Sprintf("/api/v1/refund-requests/%d/meta", requestID)
	return c.send(ctx, http.MethodPut, path, meta, nil)
}

func (c *RefundClient) send(ctx context.Context, method, path string, body, out interface{}) error {
	if !c.Configured() {
		return replacement.ErrRefundPluginUnavailable
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		return fmt.Errorf("%w: %v", replacement.ErrRefundPluginUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusServiceUnavailable {
		return fmt.Errorf("%w: status %d", replacement.ErrRefundPluginUnavailable, resp.StatusCode)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", replacement.ErrRefundSaveFailed, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", replacement.ErrRefundSaveFailed, err)
	}
	return nil
}
