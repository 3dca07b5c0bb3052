package routes_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/niaga-platform/service-replacement/internal/database"
	"github.com/niaga-platform/service-replacement/internal/domain/replacement"
	"github.com/niaga-platform/service-replacement/internal/handlers"
	"github.com/niaga-platform/service-replacement/internal/middleware"
	"github.com/niaga-platform/service-replacement/internal/refund"
	"github.com/niaga-platform/service-replacement/internal/repository"
	"github.com/niaga-platform/service-replacement/internal/routes"
	"github.com/niaga-platform/service-replacement/internal/services"
)

var now = time.Date(2026, 6, 15, 12, 0, 0, 0, time.UTC)

type orderStore map[int64]replacement.Order

func (s orderStore) GetOrder(_ context.Context, id int64) (*replacement.Order, error) {
	o, ok := s[id]
	if !ok {
		return nil, replacement.ErrOrderNotFound
	}
	return &o, nil
}

func (s orderStore) ListCustomerOrders(_ context.Context, customerID int64) ([]replacement.Order, error) {
	var out []replacement.Order
	for _, o := range s {
		if o.CustomerID == customerID {
			out = append(out, o)
		}
	}
	return out, nil
}

type countingSink struct{ next int64 }

func (s *countingSink) CreateRequest(context.Context, *refund.RefundRequestSpec) (int64, error) {
	s.next++
	return s.next, nil
}
func (s *countingSink) CreateMessage(context.Context, *refund.RequestMessage) error { return nil }
func (s *countingSink) SetMeta(context.Context, int64, map[string]string) error     { return nil }

type testServer struct {
	router   *gin.Engine
	jwt      *middleware.JWTManager
	customer string
	admin    string
}

func newTestServer(t *testing.T, sink refund.Sink) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Discard})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	completed := now.Add(-24 * time.Hour)
	orders := orderStore{
		1001: {
			ID: 1001, Status: replacement.StatusCompleted, CompletedAt: &completed,
			Total: decimal.NewFromInt(300), Currency: "MYR", CustomerID: 77,
			Items: []replacement.LineItem{{ID: 5, Name: "Batik sarong", Total: decimal.NewFromInt(300), Quantity: 3}},
		},
		1002: {ID: 1002, Status: "processing", Total: decimal.NewFromInt(50), CustomerID: 77},
	}

	logger := zap.NewNop()
	repo := repository.NewReplacementRepository(db)
	lookup := services.NewOrderLookup(orders, nil)
	svc := services.NewReplacementService(lookup, repo, refund.NewBridge(sink, "", logger), nil,
		&services.ReplacementServiceConfig{Now: func() time.Time { return now }}, logger)
	adminSvc := services.NewAdminService(repo, logger)

	manager := middleware.NewJWTManager("test-secret", time.Hour)
	customer, err := manager.Generate(77, "customer@example.com", "customer")
	require.NoError(t, err)
	admin, err := manager.Generate(1, "admin@example.com", middleware.RoleAdmin)
	require.NoError(t, err)

	router := gin.New()
	routes.SetupRoutes(router, &routes.RouteConfig{
		ReplacementHandler: handlers.NewReplacementHandler(svc, lookup, adminSvc, "", logger),
		AdminHandler:       handlers.NewAdminHandler(adminSvc, logger),
		JWTManager:         manager,
	})

	return &testServer{router: router, jwt: manager, customer: customer, admin: admin}
}

func (s *testServer) do(method, path, token string, body string, contentType string, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) postForm(values url.Values) *httptest.ResponseRecorder {
	return s.do(http.MethodPost, "/my-account/replacement-request", s.customer, values.Encode(), "application/x-www-form-urlencoded")
}

func noticeCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == handlers.NoticeCookie {
			return c
		}
	}
	t.Fatal("notice cookie not set")
	return nil
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, &countingSink{})
	w := s.do(http.MethodGet, "/health", "", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestViewOrder_RendersForms(t *testing.T) {
	s := newTestServer(t, &countingSink{})

	w := s.do(http.MethodGet, "/my-account/view-order/1001", s.customer, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="item_id" value="5"`)
	assert.Contains(t, body, `max="3"`)
	assert.Contains(t, body, `name="order_id_whole" value="1001"`)

	w = s.do(http.MethodGet, "/my-account/view-order/1002", s.customer, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "replacement_message")

	w = s.do(http.MethodGet, "/my-account/view-order/999", s.customer, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/my-account/view-order/1001", "", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSubmitForm_RedirectsWithNotice(t *testing.T) {
	s := newTestServer(t, &countingSink{})

	w := s.postForm(url.Values{
		"order_id":             {"1001"},
		"item_id":              {"5"},
		"replacement_message":  {"Two arrived torn"},
		"replacement_quantity": {"2"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, handlers.OrdersPagePath, w.Header().Get("Location"))

	w = s.do(http.MethodGet, "/my-account/orders", s.customer, "", "", noticeCookie(t, w))
	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "a refund request has been created")
	assert.Contains(t, body, services.ReplacementLabel)

	// the order is now single-use
	w = s.postForm(url.Values{
		"order_id_whole":            {"1001"},
		"replacement_message_whole": {"again"},
	})
	require.Equal(t, http.StatusFound, w.Code)
	w = s.do(http.MethodGet, "/my-account/orders", s.customer, "", "", noticeCookie(t, w))
	assert.Contains(t, w.Body.String(), "already been submitted")

	w = s.do(http.MethodGet, "/my-account/view-order/1001", s.customer, "", "")
	assert.Contains(t, w.Body.String(), "A replacement request has been submitted for this order.")
}

func TestSubmitForm_NotFoundDoesNotRedirect(t *testing.T) {
	s := newTestServer(t, &countingSink{})

	w := s.postForm(url.Values{"order_id": {"999"}, "item_id": {"0"}, "replacement_message": {"x"}})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Empty(t, w.Header().Get("Location"))
	assert.Contains(t, w.Body.String(), "Order not found.")
}

func TestSubmitForm_RefundSystemAbsent(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.postForm(url.Values{"order_id_whole": {"1001"}, "replacement_message_whole": {"wrong colour"}})
	require.Equal(t, http.StatusFound, w.Code)

	w = s.do(http.MethodGet, "/my-account/orders", s.customer, "", "", noticeCookie(t, w))
	assert.Contains(t, w.Body.String(), "there was an issue creating the refund request")
}

func TestAPI_SubmitAndEligibility(t *testing.T) {
	s := newTestServer(t, &countingSink{})

	w := s.do(http.MethodGet, "/api/v1/replacements/orders/1001/eligibility", s.customer, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	var eligibility struct {
		AnyEligible bool `json:"any_eligible"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &eligibility))
	assert.True(t, eligibility.AnyEligible)

	w = s.do(http.MethodPost, "/api/v1/replacements", s.customer,
		`{"order_id":1001,"item_id":5,"message":"torn","quantity":2}`, "application/json")
	require.Equal(t, http.StatusCreated, w.Code)
	var result struct {
		Outcome         string `json:"outcome"`
		RefundRequestID int64  `json:"refund_request_id"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "success", result.Outcome)
	assert.Equal(t, int64(1), result.RefundRequestID)

	w = s.do(http.MethodPost, "/api/v1/replacements", s.customer,
		`{"order_id":1001,"scope":"whole","message":"again"}`, "application/json")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "already_submitted")

	w = s.do(http.MethodPost, "/api/v1/replacements", s.customer,
		`{"order_id":1002,"scope":"whole","message":"x"}`, "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	w = s.do(http.MethodPost, "/api/v1/replacements", s.customer, `{"order_id":1001}`, "application/json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminRoutes(t *testing.T) {
	s := newTestServer(t, &countingSink{})

	w := s.do(http.MethodPost, "/api/v1/replacements", s.customer,
		`{"order_id":1001,"item_id":5,"message":"torn","quantity":1}`, "application/json")
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/replacements/orders/1001", s.customer, "", "")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/replacements/orders/1001", s.admin, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"_replacement_request_message_5":"torn"`)

	w = s.do(http.MethodGet, "/api/v1/admin/replacements/orders/labels?ids=1001,1002", s.admin, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"labels":{"1001":"Replacement Requested"}}`, w.Body.String())

	w = s.do(http.MethodGet, "/api/v1/admin/replacements/orders/labels?ids=abc", s.admin, "", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/replacements/refund-requests/labels?ids=1,2", s.admin, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Order #1001 / Batik sarong x 1")

	w = s.do(http.MethodGet, "/api/v1/admin/replacements/refund-requests/1", s.admin, "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/replacements/refund-requests/2", s.admin, "", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(http.MethodGet, "/api/v1/admin/replacements?order_id=1001", s.admin, "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"total":1`)
}
