package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	alertdomain "github.com/smallbiznis/karat/internal/alert/domain"
	analyticsdomain "github.com/smallbiznis/karat/internal/analytics/domain"
	apikeydomain "github.com/smallbiznis/karat/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"github.com/smallbiznis/karat/internal/authorization"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	"github.com/smallbiznis/karat/internal/config"
	inventorydomain "github.com/smallbiznis/karat/internal/inventory/domain"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/observability"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	adminToken  = "kt_live_key_admin"
	viewerToken = "kt_live_key_viewer"
)

type fakeAPIKeys struct {
	apikeydomain.Service
}

func (fakeAPIKeys) Authenticate(ctx context.Context, raw string) (*apikeydomain.APIKey, error) {
	_ = ctx
	switch raw {
	case adminToken:
		return &apikeydomain.APIKey{ID: snowflake.ID(11), Role: apikeydomain.RoleAdmin, KeyHash: apikeydomain.HashAPIKey(raw), IsActive: true}, nil
	case viewerToken:
		return &apikeydomain.APIKey{ID: snowflake.ID(12), Role: apikeydomain.RoleViewer, KeyHash: apikeydomain.HashAPIKey(raw), IsActive: true}, nil
	default:
		return nil, apikeydomain.ErrInvalidAPIKey
	}
}

// fakeAuthz lets admins do anything and viewers only *.view actions.
type fakeAuthz struct {
	calls []string
}

func (f *fakeAuthz) Authorize(ctx context.Context, apiKeyID string, role string, object string, action string) error {
	_ = ctx
	f.calls = append(f.calls, apiKeyID+"|"+role+"|"+object+"|"+action)
	if role == apikeydomain.RoleAdmin {
		return nil
	}
	if role == apikeydomain.RoleViewer && strings.HasSuffix(action, ".view") {
		return nil
	}
	return authorization.ErrForbidden
}

type fakePricing struct {
	pricingdomain.Service
	subtotal decimal.Decimal
	rules    []pricingdomain.AddRuleRequest
}

func (f *fakePricing) ComputePrice(ctx context.Context, productID string) (pricingdomain.Quote, error) {
	f.subtotal = catalogdomain.ContextCart{}.Subtotal(ctx)
	switch productID {
	case "404":
		return pricingdomain.Quote{}, catalogdomain.ErrProductNotFound
	case "55":
		// no rates loaded: labor cost only
		return pricingdomain.Quote{Amount: decimal.NewFromInt(5), Kind: "jewelry"}, nil
	}
	return pricingdomain.Quote{Amount: decimal.RequireFromString("123.456"), Computed: true, Kind: "jewelry"}, nil
}

func (f *fakePricing) ListRules(ctx context.Context) ([]pricingdomain.Rule, error) {
	_ = ctx
	return nil, nil
}

func (f *fakePricing) AddRule(ctx context.Context, req pricingdomain.AddRuleRequest) (*pricingdomain.Rule, error) {
	_ = ctx
	f.rules = append(f.rules, req)
	return &pricingdomain.Rule{ID: snowflake.ID(5), Condition: req.Condition, Threshold: req.Threshold, Discount: req.Discount}, nil
}

type fakeInventory struct {
	inventorydomain.Service
	processed map[string]bool
}

func (f *fakeInventory) CheckProduct(ctx context.Context, productID string, quantity int) (bool, error) {
	_ = ctx
	if productID == "404" {
		return false, catalogdomain.ErrProductNotFound
	}
	return quantity <= 2, nil
}

func (f *fakeInventory) ProcessOrder(ctx context.Context, orderID string, items []catalogdomain.OrderItem) (*inventorydomain.OrderResult, error) {
	_ = ctx
	if f.processed[orderID] {
		return nil, inventorydomain.ErrOrderAlreadyProcessed
	}
	f.processed[orderID] = true
	return &inventorydomain.OrderResult{OrderID: orderID}, nil
}

type fakeAlerts struct {
	alertdomain.Service
	err error
}

func (f *fakeAlerts) Subscribe(ctx context.Context, productID, email string) (*alertdomain.Subscription, error) {
	_ = ctx
	if f.err != nil {
		return nil, f.err
	}
	return &alertdomain.Subscription{Email: email}, nil
}

type fakeAudit struct {
	auditdomain.Service
	recentLimit int
}

func (f *fakeAudit) ListRecent(ctx context.Context, limit int) ([]auditdomain.AuditLog, error) {
	_ = ctx
	f.recentLimit = limit
	return []auditdomain.AuditLog{{ID: snowflake.ID(1), Action: auditdomain.ActionRatesUpdated}}, nil
}

type testServer struct {
	server    *Server
	authz     *fakeAuthz
	pricing   *fakePricing
	inventory *fakeInventory
	alerts    *fakeAlerts
	audit     *fakeAudit
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	ts := &testServer{
		authz:     &fakeAuthz{},
		pricing:   &fakePricing{},
		inventory: &fakeInventory{processed: map[string]bool{}},
		alerts:    &fakeAlerts{},
		audit:     &fakeAudit{},
	}
	ts.server = NewServer(ServerParams{
		Gin:          NewEngine(observability.Config{Environment: "test"}, nil),
		Cfg:          config.Config{},
		Settings:     config.NewStaticStoreSettings(config.StoreSettings{Currency: "USD", PriceDecimals: 2}),
		APIKeySvc:    fakeAPIKeys{},
		AuthzSvc:     ts.authz,
		AuditSvc:     ts.audit,
		VendorSvc:    supplierdomain.Service(nil),
		MaterialSvc:  materialdomain.Service(nil),
		RateSvc:      ratedomain.Service(nil),
		CatalogSvc:   catalogdomain.Service(nil),
		PricingSvc:   ts.pricing,
		InventorySvc: ts.inventory,
		AlertSvc:     ts.alerts,
		AnalyticsSvc: analyticsdomain.Service(nil),
	})
	return ts
}

func (ts *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/health", "", nil)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGetPriceCarriesCartSubtotal(t *testing.T) {
	ts := newTestServer(t)

	req := httptest.NewRequest(http.MethodGet, "/v1/products/77/price", nil)
	req.Header.Set(HeaderCartSubtotal, "250.50")
	rec := httptest.NewRecorder()
	ts.server.Engine().ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ts.pricing.subtotal.Equal(decimal.RequireFromString("250.50")))

	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "123.46", data["price"])
	assert.Equal(t, "USD", data["currency"])
}

func TestGetPriceCartSubtotalFromQuery(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/v1/products/77/price?cart_subtotal=90", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, ts.pricing.subtotal.Equal(decimal.NewFromInt(90)))
}

func TestGetPriceUnknownProduct(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/v1/products/404/price", "", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "not_found", errBody["type"])
}

func TestGetPriceWithoutRatesAnswersLaborOnly(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/v1/products/55/price", "", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "5.00", data["price"])
	assert.Equal(t, false, data["computed"])
}

func TestCheckInventory(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/inventory/check", "", gin.H{"product_id": "77", "quantity": 2})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, decodeBody(t, rec)["success"])

	rec = ts.do(http.MethodPost, "/v1/inventory/check", "", gin.H{"product_id": "77", "quantity": 3})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, msgOutOfStock, body["message"])

	rec = ts.do(http.MethodPost, "/v1/inventory/check", "", gin.H{"product_id": "77"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/inventory/check", "", gin.H{"product_id": "404", "quantity": 1})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSubscribeAlert(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/alerts/subscribe", "", gin.H{"product_id": "77", "email": "a@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, msgSubscribed, body["message"])

	ts.alerts.err = alertdomain.ErrPriceUnavailable
	rec = ts.do(http.MethodPost, "/v1/alerts/subscribe", "", gin.H{"product_id": "77", "email": "a@example.com"})
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, msgPriceUnavailable, decodeBody(t, rec)["message"])

	ts.alerts.err = alertdomain.ErrInvalidEmail
	rec = ts.do(http.MethodPost, "/v1/alerts/subscribe", "", gin.H{"product_id": "77", "email": "nope"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, false, decodeBody(t, rec)["success"])
}

func TestAdminRequiresAPIKey(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/admin/v1/pricing/rules", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(http.MethodGet, "/admin/v1/pricing/rules", "kt_live_key_unknown", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Empty(t, ts.authz.calls)
}

func TestViewerCannotManagePricing(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/admin/v1/pricing/rules", viewerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/admin/v1/pricing/rules", viewerToken, gin.H{"condition": "weight", "threshold": 10, "discount": 5})
	require.Equal(t, http.StatusForbidden, rec.Code)
	assert.Empty(t, ts.pricing.rules)
	assert.Contains(t, ts.authz.calls, "12|viewer|pricing|pricing.manage")
}

func TestAddRuleValidatesCondition(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/admin/v1/pricing/rules", adminToken, gin.H{"condition": "color", "threshold": 10, "discount": 5})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	fields := errBody["errors"].([]any)
	require.Len(t, fields, 1)
	assert.Equal(t, "condition", fields[0].(map[string]any)["field"])
	assert.Equal(t, "rule_condition", fields[0].(map[string]any)["code"])

	rec = ts.do(http.MethodPost, "/admin/v1/pricing/rules", adminToken, gin.H{"condition": "order_total", "threshold": 100, "discount": 5})
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, ts.pricing.rules, 1)
	assert.Equal(t, pricingdomain.ConditionOrderTotal, ts.pricing.rules[0].Condition)
}

func TestCompleteOrderOnlyOnce(t *testing.T) {
	ts := newTestServer(t)
	body := gin.H{"items": []gin.H{{"product_id": "77", "quantity": 1}}}

	rec := ts.do(http.MethodPost, "/v1/orders/1001/completed", adminToken, body)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = ts.do(http.MethodPost, "/v1/orders/1001/completed", adminToken, body)
	require.Equal(t, http.StatusConflict, rec.Code)
	errBody := decodeBody(t, rec)["error"].(map[string]any)
	assert.Equal(t, "order already processed", errBody["message"])

	rec = ts.do(http.MethodPost, "/v1/orders/1002/completed", viewerToken, body)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCompleteOrderRejectsEmptyItems(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodPost, "/v1/orders/1001/completed", adminToken, gin.H{"items": []gin.H{}})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ts.inventory.processed)
}

func TestListAuditLogsByLimit(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(http.MethodGet, "/admin/v1/audit-logs?limit=5", viewerToken, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 5, ts.audit.recentLimit)

	rec = ts.do(http.MethodGet, "/admin/v1/audit-logs?limit=abc", viewerToken, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMapErrorStatuses(t *testing.T) {
	cases := map[error]int{
		materialdomain.ErrDuplicateMaterial: http.StatusConflict,
		supplierdomain.ErrNotFound:            http.StatusNotFound,
		supplierdomain.ErrInvalidEndpoint:     http.StatusBadRequest,
		ratedomain.ErrNoRates:               http.StatusServiceUnavailable,
		ratedomain.ErrRefreshInProgress:     http.StatusConflict,
		authorization.ErrForbidden:          http.StatusForbidden,
		apikeydomain.ErrInvalidAPIKey:       http.StatusUnauthorized,
		ErrRateLimited:                      http.StatusTooManyRequests,
		analyticsdomain.ErrTooManyProducts:  http.StatusBadRequest,
	}
	for err, want := range cases {
		status, _ := mapError(err)
		assert.Equal(t, want, status, err.Error())
	}

	_, payload := mapError(supplierdomain.ErrInvalidEndpoint)
	require.Len(t, payload.Errors, 1)
	assert.Equal(t, "vendor_endpoint", payload.Errors[0].Field)
}
