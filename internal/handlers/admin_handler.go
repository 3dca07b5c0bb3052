package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-replacement/internal/models"
	"github.com/niaga-platform/service-replacement/internal/services"
)

// AdminHandler serves the admin views of replacement requests
type AdminHandler struct {
	service *services.AdminService
	logger  *zap.Logger
}

// NewAdminHandler creates a new AdminHandler
func NewAdminHandler(service *services.AdminService, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger,
	}
}

// GetOrder returns the replacement block of an order's detail view
// GET /api/v1/admin/replacements/orders/:order_id
func (h *AdminHandler) GetOrder(c *gin.Context) {
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	view, err := h.service.OrderDetail(c.Request.Context(), orderID)
	if err != nil {
		h.logger.Error("Failed to load order replacements", zap.Int64("order_id", orderID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetOrderLabels returns list-view labels for the given orders
// GET /api/v1/admin/replacements/orders/labels?ids=1,2,3
func (h *AdminHandler) GetOrderLabels(c *gin.Context) {
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	labels, err := h.service.OrderLabels(c.Request.Context(), ids)
	if err != nil {
		h.logger.Error("Failed to load order labels", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"labels": labels})
}

// GetRefundRequestLabels returns the replacement column for refund requests
// GET /api/v1/admin/replacements/refund-requests/labels?ids=1,2,3
func (h *AdminHandler) GetRefundRequestLabels(c *gin.Context) {
	ids, err := parseIDs(c.Query("ids"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	columns, err := h.service.RefundRequestColumns(c.Request.Context(), ids)
	if err != nil {
		h.logger.Error("Failed to load refund request labels", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"columns": columns})
}

// GetRefundRequest returns the title block of a replacement-derived refund request
// GET /api/v1/admin/replacements/refund-requests/:id
func (h *AdminHandler) GetRefundRequest(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid refund request ID"})
		return
	}

	title, err := h.service.RefundRequestTitle(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, services.ErrRefundRequestNotLinked) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		h.logger.Error("Failed to load refund request", zap.Int64("refund_request_id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, title)
}

// List returns a page of replacement requests
// GET /api/v1/admin/replacements
func (h *AdminHandler) List(c *gin.Context) {
	filter := &models.ReplacementRequestFilter{
		Page:     1,
		PageSize: 20,
	}

	if orderIDStr := c.Query("order_id"); orderIDStr != "" {
		if orderID, err := strconv.ParseInt(orderIDStr, 10, 64); err == nil {
			filter.OrderID = orderID
		}
	}
	if customerIDStr := c.Query("customer_id"); customerIDStr != "" {
		if customerID, err := strconv.ParseInt(customerIDStr, 10, 64); err == nil {
			filter.CustomerID = customerID
		}
	}
	if status := c.Query("refund_status"); status != "" {
		filter.RefundStatus = status
	}
	if pageStr := c.Query("page"); pageStr != "" {
		if page, err := strconv.Atoi(pageStr); err == nil && page > 0 {
			filter.Page = page
		}
	}
	if pageSizeStr := c.Query("page_size"); pageSizeStr != "" {
		if pageSize, err := strconv.Atoi(pageSizeStr); err == nil && pageSize > 0 && pageSize <= 100 {
			filter.PageSize = pageSize
		}
	}

	requests, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list replacement requests", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"requests": requests,
		"total":    total,
		"page":     filter.Page,
		"pageSize": filter.PageSize,
	})
}

func parseIDs(raw string) ([]int64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, errors.New("ids is required")
	}
	parts := strings.Split(raw, ",")
	ids := make([]int64, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		id, err := strconv.ParseInt(p, 10, 64)
		if err != nil || id <= 0 {
			return nil, errors.New("invalid id: " + p)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
