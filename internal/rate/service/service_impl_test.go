package service_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/karat/internal/cache"
	"github.com/smallbiznis/karat/internal/clock"
	"github.com/smallbiznis/karat/internal/config"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/rate/domain"
	"github.com/smallbiznis/karat/internal/rate/repository"
	"github.com/smallbiznis/karat/internal/rate/service"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubVendors struct {
	vendors []supplierdomain.Vendor
}

func (s *stubVendors) ListActive(ctx context.Context) ([]supplierdomain.Vendor, error) {
	return s.vendors, nil
}

type stubClient struct {
	mu      sync.Mutex
	quotes  map[string]map[string]float64
	failing map[string]bool
}

func (c *stubClient) Fetch(ctx context.Context, vendor supplierdomain.Vendor) (map[string]float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failing[vendor.Name] {
		return nil, errors.New("vendor down")
	}
	return c.quotes[vendor.Name], nil
}

type stubExchange struct {
	rate  float64
	err   error
	calls int
}

func (e *stubExchange) Rate(ctx context.Context, from, to string) (float64, error) {
	e.calls++
	return e.rate, e.err
}

type stubMaterials struct {
	items []materialdomain.Material
}

func (m *stubMaterials) List(ctx context.Context) ([]materialdomain.Material, error) {
	return m.items, nil
}

type fixture struct {
	svc      domain.Service
	db       *gorm.DB
	client   *stubClient
	exchange *stubExchange
	clock    *clock.FakeClock
	gold     materialdomain.Material
}

func setup(t *testing.T, storeCurrency string, vendorNames ...string) *fixture {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.CurrentRate{}, &domain.RateSnapshot{}))

	node, err := snowflake.NewNode(4)
	require.NoError(t, err)

	vendors := make([]supplierdomain.Vendor, 0, len(vendorNames))
	for _, name := range vendorNames {
		vendors = append(vendors, supplierdomain.Vendor{ID: node.Generate(), Name: name, Endpoint: "https://" + name, Active: true})
	}

	gold := materialdomain.Material{ID: node.Generate(), Name: "gold", Code: "gold"}
	silver := materialdomain.Material{ID: node.Generate(), Name: "silver", Code: "silver"}

	f := &fixture{
		db:       db,
		client:   &stubClient{quotes: map[string]map[string]float64{}, failing: map[string]bool{}},
		exchange: &stubExchange{rate: 1},
		clock:    clock.NewFakeClock(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)),
		gold:     gold,
	}

	cfg := config.Config{Rates: config.RatesConfig{
		VendorCurrency:      "USD",
		RateCacheTTL:        24 * time.Hour,
		ExchangeCacheTTL:    time.Hour,
		RefreshLockTTL:      time.Minute,
		MaxConcurrentVendor: 4,
	}}

	f.svc = service.New(service.Params{
		DB:           db,
		Log:          zap.NewNop(),
		GenID:        node,
		Cfg:          cfg,
		Settings:     config.NewStaticStoreSettings(config.StoreSettings{Currency: storeCurrency, PriceDecimals: 2}),
		Repo:         repository.Provide(),
		Cache:        cache.NewMemoryStore(),
		Clock:        f.clock,
		Vendors:      &stubVendors{vendors: vendors},
		VendorClient: f.client,
		Exchange:     f.exchange,
		Materials:    &stubMaterials{items: []materialdomain.Material{gold, silver}},
	})
	return f
}

func TestRefreshAveragesVendorQuotes(t *testing.T) {
	f := setup(t, "USD", "a", "b")
	f.client.quotes["a"] = map[string]float64{"gold": 58, "silver": 0.8}
	f.client.quotes["b"] = map[string]float64{"Gold": 62}

	table, err := f.svc.RefreshRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60.0, table["gold"])
	assert.Equal(t, 0.8, table["silver"])
	assert.Equal(t, 0, f.exchange.calls)

	current, err := f.svc.GetRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, table, current)
}

func TestRefreshAppendsRawQuotesToHistory(t *testing.T) {
	f := setup(t, "USD", "a", "b")
	f.client.quotes["a"] = map[string]float64{"gold": 58, "unobtainium": 1}
	f.client.quotes["b"] = map[string]float64{"gold": 62}

	_, err := f.svc.RefreshRates(context.Background())
	require.NoError(t, err)

	points, err := f.svc.History(context.Background(), f.gold.ID.String(), 30)
	require.NoError(t, err)
	require.Len(t, points, 2)

	var total int64
	require.NoError(t, f.db.Model(&domain.RateSnapshot{}).Count(&total).Error)
	assert.EqualValues(t, 2, total)
}

func TestRefreshWithAllVendorsFailingKeepsTable(t *testing.T) {
	f := setup(t, "USD", "a", "b")
	f.client.quotes["a"] = map[string]float64{"gold": 60}
	f.client.quotes["b"] = map[string]float64{"gold": 60}

	before, err := f.svc.RefreshRates(context.Background())
	require.NoError(t, err)

	f.client.failing["a"] = true
	f.client.failing["b"] = true

	_, err = f.svc.RefreshRates(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoRates)

	after, err := f.svc.GetRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, before, after)

	var rows []domain.CurrentRate
	require.NoError(t, f.db.Find(&rows).Error)
	require.Len(t, rows, 1)
	assert.Equal(t, 60.0, rows[0].Rate)
}

func TestRefreshSkipsFailingVendor(t *testing.T) {
	f := setup(t, "USD", "a", "b")
	f.client.quotes["a"] = map[string]float64{"gold": 50}
	f.client.failing["b"] = true

	table, err := f.svc.RefreshRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, table["gold"])
}

func TestRefreshConvertsCurrencyAndCachesExchangeRate(t *testing.T) {
	f := setup(t, "EUR", "a")
	f.client.quotes["a"] = map[string]float64{"gold": 100}
	f.exchange.rate = 0.5

	table, err := f.svc.RefreshRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 50.0, table["gold"])

	_, err = f.svc.RefreshRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, f.exchange.calls)
}

func TestRefreshPassesThroughWhenExchangeFails(t *testing.T) {
	f := setup(t, "EUR", "a")
	f.client.quotes["a"] = map[string]float64{"gold": 100}
	f.exchange.err = errors.New("exchange down")

	table, err := f.svc.RefreshRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 100.0, table["gold"])
}

func TestRefreshSurvivesCancelledCaller(t *testing.T) {
	f := setup(t, "USD", "a")
	f.client.quotes["a"] = map[string]float64{"gold": 70}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	table, err := f.svc.RefreshRates(ctx)
	require.NoError(t, err)
	assert.Equal(t, 70.0, table["gold"])
}

func TestGetRatesEmptyIsValid(t *testing.T) {
	f := setup(t, "USD")
	table, err := f.svc.GetRates(context.Background())
	require.NoError(t, err)
	assert.Empty(t, table)
}

func TestOldestRatesUsesEarliestCycleInWindow(t *testing.T) {
	f := setup(t, "USD", "a", "b")
	f.client.quotes["a"] = map[string]float64{"gold": 40}
	f.client.quotes["b"] = map[string]float64{"gold": 44}
	_, err := f.svc.RefreshRates(context.Background())
	require.NoError(t, err)

	f.clock.Advance(48 * time.Hour)
	f.client.quotes["a"] = map[string]float64{"gold": 60}
	f.client.quotes["b"] = map[string]float64{"gold": 60}
	_, err = f.svc.RefreshRates(context.Background())
	require.NoError(t, err)

	oldest, err := f.svc.OldestRates(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 42.0, oldest["gold"])

	current, err := f.svc.GetRates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 60.0, current["gold"])
}

func TestHistoryValidatesInput(t *testing.T) {
	f := setup(t, "USD")
	_, err := f.svc.History(context.Background(), "nope", 30)
	assert.ErrorIs(t, err, domain.ErrInvalidMaterialID)

	_, err = f.svc.History(context.Background(), f.gold.ID.String(), -1)
	assert.ErrorIs(t, err, domain.ErrInvalidDays)
}
