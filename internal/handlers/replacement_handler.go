package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
	"github.com/niaga-platform/service-replacement/internal/middleware"
	"github.com/niaga-platform/service-replacement/internal/services"
)

// Customer page paths
const (
	ViewOrderPath   = "/my-account/view-order"
	SubmitPath      = "/my-account/replacement-request"
	OrdersPagePath  = "/my-account/orders"
	defaultPageName = "My account"
)

// CustomerOrders lists a customer's orders
type CustomerOrders interface {
	ListCustomerOrders(ctx context.Context, customerID int64) ([]replacement.Order, error)
}

// OrderLabeler labels orders that carry a replacement request
type OrderLabeler interface {
	OrderLabels(ctx context.Context, orderIDs []int64) (map[int64]string, error)
}

// ReplacementHandler serves the customer pages and API for replacement requests
type ReplacementHandler struct {
	service   *services.ReplacementService
	orders    CustomerOrders
	labels    OrderLabeler
	ordersURL string
	logger    *zap.Logger
}

// NewReplacementHandler creates a new ReplacementHandler
func NewReplacementHandler(
	service *services.ReplacementService,
	orders CustomerOrders,
	labels OrderLabeler,
	ordersURL string,
	logger *zap.Logger,
) *ReplacementHandler {
	if ordersURL == "" {
		ordersURL = OrdersPagePath
	}
	return &ReplacementHandler{
		service:   service,
		orders:    orders,
		labels:    labels,
		ordersURL: ordersURL,
		logger:    logger,
	}
}

// ViewOrder renders an order with a request form for every eligible scope
// GET /my-account/view-order/:order_id
func (h *ReplacementHandler) ViewOrder(c *gin.Context) {
	customerID, _ := middleware.CustomerID(c)
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		h.renderNotFound(c)
		return
	}

	view, err := h.service.Eligibility(c.Request.Context(), customerID, orderID)
	if err != nil {
		if replacement.CodeOf(err) == replacement.CodeOrderNotFound {
			h.renderNotFound(c)
			return
		}
		h.logger.Error("Failed to load order eligibility", zap.Int64("order_id", orderID), zap.Error(err))
		c.HTML(http.StatusInternalServerError, "not_found.html", gin.H{
			"Title":     defaultPageName,
			"Notice":    &Notice{Kind: NoticeError, Message: replacement.CodeInternal.Notice()},
			"OrdersURL": h.ordersURL,
		})
		return
	}

	c.HTML(http.StatusOK, "view_order.html", gin.H{
		"Title":     "Order #" + view.Order.DisplayNumber(),
		"Notice":    takeNotice(c),
		"View":      view,
		"SubmitURL": SubmitPath,
	})
}

// SubmitForm handles the replacement request form
// POST /my-account/replacement-request
func (h *ReplacementHandler) SubmitForm(c *gin.Context) {
	customerID, _ := middleware.CustomerID(c)

	input, code := parseForm(c)
	if code == replacement.CodeOrderNotFound {
		h.renderNotFound(c)
		return
	}
	if code != "" {
		setNotice(c, NoticeError, code.Notice())
		c.Redirect(http.StatusFound, h.ordersURL)
		return
	}
	input.CustomerID = customerID

	result, err := h.service.Submit(c.Request.Context(), input)
	if err != nil {
		code := replacement.CodeOf(err)
		if code == replacement.CodeOrderNotFound {
			h.renderNotFound(c)
			return
		}
		if code == replacement.CodeInternal {
			h.logger.Error("Failed to submit replacement request", zap.Int64("order_id", input.OrderID), zap.Error(err))
		}
		setNotice(c, NoticeError, code.Notice())
		c.Redirect(http.StatusFound, h.ordersURL)
		return
	}

	kind := NoticeSuccess
	if result.Outcome != services.OutcomeSuccess {
		kind = NoticeError
	}
	setNotice(c, kind, result.Notice)
	c.Redirect(http.StatusFound, h.ordersURL)
}

// OrdersPage lists the customer's orders and shows the flashed notice
// GET /my-account/orders
func (h *ReplacementHandler) OrdersPage(c *gin.Context) {
	customerID, _ := middleware.CustomerID(c)
	notice := takeNotice(c)

	orders, err := h.orders.ListCustomerOrders(c.Request.Context(), customerID)
	if err != nil {
		h.logger.Error("Failed to list customer orders", zap.Int64("customer_id", customerID), zap.Error(err))
		orders = nil
		if notice == nil {
			notice = &Notice{Kind: NoticeError, Message: "Your orders could not be loaded."}
		}
	}

	labels := map[int64]string{}
	if len(orders) > 0 && h.labels != nil {
		ids := make([]int64, 0, len(orders))
		for _, o := range orders {
			ids = append(ids, o.ID)
		}
		if labels, err = h.labels.OrderLabels(c.Request.Context(), ids); err != nil {
			h.logger.Warn("Failed to load replacement labels", zap.Error(err))
			labels = map[int64]string{}
		}
	}

	c.HTML(http.StatusOK, "orders.html", gin.H{
		"Title":   "Orders",
		"Notice":  notice,
		"Orders":  orders,
		"Labels":  labels,
		"ViewURL": ViewOrderPath,
	})
}

// GetEligibility returns the eligibility of every scope of an order
// GET /api/v1/replacements/orders/:order_id/eligibility
func (h *ReplacementHandler) GetEligibility(c *gin.Context) {
	customerID, _ := middleware.CustomerID(c)
	orderID, err := strconv.ParseInt(c.Param("order_id"), 10, 64)
	if err != nil || orderID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid order ID"})
		return
	}

	view, err := h.service.Eligibility(c.Request.Context(), customerID, orderID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"eligibility":  view,
		"any_eligible": view.AnyEligible(),
	})
}

// SubmitRequest is the JSON replacement submission
type SubmitRequest struct {
	OrderID  int64  `json:"order_id" binding:"required,gt=0"`
	Scope    string `json:"scope"` // "whole" or an item id; item_id is used when empty
	ItemID   int64  `json:"item_id" binding:"gte=0"`
	Message  string `json:"message" binding:"required,max=5000"`
	Quantity int    `json:"quantity"`
}

// Submit records a replacement request
// POST /api/v1/replacements
func (h *ReplacementHandler) Submit(c *gin.Context) {
	customerID, _ := middleware.CustomerID(c)

	var req SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rawScope := req.Scope
	if rawScope == "" {
		rawScope = strconv.FormatInt(req.ItemID, 10)
	}
	scope, err := replacement.ParseScope(rawScope)
	if err != nil {
		h.respondError(c, err)
		return
	}

	result, err := h.service.Submit(c.Request.Context(), &services.SubmitInput{
		CustomerID: customerID,
		OrderID:    req.OrderID,
		Scope:      scope,
		Message:    req.Message,
		Quantity:   req.Quantity,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	status := http.StatusCreated
	if result.Outcome != services.OutcomeSuccess {
		status = result.RefundError.HTTPStatus()
	}
	c.JSON(status, result)
}

func (h *ReplacementHandler) respondError(c *gin.Context, err error) {
	code := replacement.CodeOf(err)
	if code == replacement.CodeInternal {
		h.logger.Error("Replacement request failed", zap.Error(err))
	}
	c.JSON(code.HTTPStatus(), gin.H{
		"error": code.Notice(),
		"code":  code,
	})
}

func (h *ReplacementHandler) renderNotFound(c *gin.Context) {
	c.HTML(http.StatusNotFound, "not_found.html", gin.H{
		"Title":     defaultPageName,
		"Notice":    &Notice{Kind: NoticeError, Message: replacement.CodeOrderNotFound.Notice()},
		"OrdersURL": h.ordersURL,
	})
}

// parseForm reads either the item form (order_id, item_id, replacement_message,
// replacement_quantity) or the whole-order form (order_id_whole,
// replacement_message_whole).
func parseForm(c *gin.Context) (*services.SubmitInput, replacement.ErrorCode) {
	input := &services.SubmitInput{}

	if raw := strings.TrimSpace(c.PostForm("order_id_whole")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, replacement.CodeOrderNotFound
		}
		input.OrderID = id
		input.Scope = replacement.WholeOrder()
		input.Message = c.PostForm("replacement_message_whole")
		if code := checkMessage(input.Message); code != "" {
			return nil, code
		}
		return input, ""
	}

	id, err := strconv.ParseInt(strings.TrimSpace(c.PostForm("order_id")), 10, 64)
	if err != nil || id <= 0 {
		return nil, replacement.CodeOrderNotFound
	}
	input.OrderID = id

	scope, err := replacement.ParseScope(strings.TrimSpace(c.PostForm("item_id")))
	if err != nil {
		return nil, replacement.CodeInvalidScope
	}
	input.Scope = scope

	input.Message = c.PostForm("replacement_message")
	if scope.IsWhole() && input.Message == "" {
		input.Message = c.PostForm("replacement_message_whole")
	}

	if raw := strings.TrimSpace(c.PostForm("replacement_quantity")); raw != "" && !scope.IsWhole() {
		qty, err := strconv.Atoi(raw)
		if err != nil {
			return nil, replacement.CodeInvalidQuantity
		}
		input.Quantity = qty
	}
	if code := checkMessage(input.Message); code != "" {
		return nil, code
	}
	return input, ""
}

func checkMessage(msg string) replacement.ErrorCode {
	if utf8.RuneCountInString(msg) > replacement.MaxMessageLength {
		return replacement.CodeMessageTooLong
	}
	return ""
}
