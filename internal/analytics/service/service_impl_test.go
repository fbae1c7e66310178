package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/karat/internal/analytics/domain"
	"github.com/smallbiznis/karat/internal/analytics/service"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubRates struct {
	current ratedomain.RateTable
	oldest  ratedomain.RateTable
	history []ratedomain.HistoryPoint
}

func (s stubRates) GetRates(ctx context.Context) (ratedomain.RateTable, error) {
	return s.current, nil
}

func (s stubRates) History(ctx context.Context, materialID string, days int) ([]ratedomain.HistoryPoint, error) {
	if materialID == "bad" {
		return nil, ratedomain.ErrInvalidMaterialID
	}
	return s.history, nil
}

func (s stubRates) OldestRates(ctx context.Context, days int) (ratedomain.RateTable, error) {
	return s.oldest, nil
}

// linearPricer prices every product at 10 grams of gold.
type linearPricer struct {
	current ratedomain.RateTable
	seen    []ratedomain.RateTable
}

func (p *linearPricer) price(rates ratedomain.RateTable) pricingdomain.Quote {
	amount := decimal.NewFromFloat(rates["gold"]).Mul(decimal.NewFromInt(10))
	return pricingdomain.Quote{Amount: amount, Computed: true, Kind: "jewelry"}
}

func (p *linearPricer) ComputePrice(ctx context.Context, productID string) (pricingdomain.Quote, error) {
	if productID == "404" {
		return pricingdomain.Quote{}, catalogdomain.ErrProductNotFound
	}
	return p.price(p.current), nil
}

func (p *linearPricer) Simulate(ctx context.Context, productID string, rates ratedomain.RateTable) (pricingdomain.Quote, error) {
	p.seen = append(p.seen, rates)
	return p.price(rates), nil
}

type stubCatalog []catalogdomain.CatalogProduct

func (c stubCatalog) List(ctx context.Context) ([]catalogdomain.CatalogProduct, error) {
	return c, nil
}

func (c stubCatalog) GetProduct(ctx context.Context, id string) (catalogdomain.Product, error) {
	for _, p := range c {
		if p.ID.String() == id {
			return p.ToProduct(), nil
		}
	}
	return catalogdomain.Product{}, catalogdomain.ErrProductNotFound
}

func newService(rates stubRates, pricer *linearPricer, catalog stubCatalog) domain.Service {
	return service.New(service.Params{
		Log:     zap.NewNop(),
		Rates:   rates,
		Pricer:  pricer,
		Catalog: catalog,
	})
}

func TestAverageRate(t *testing.T) {
	now := time.Now()
	svc := newService(stubRates{history: []ratedomain.HistoryPoint{
		{Rate: 58, FetchedAt: now.Add(-2 * time.Hour)},
		{Rate: 62, FetchedAt: now.Add(-time.Hour)},
		{Rate: 66, FetchedAt: now},
	}}, &linearPricer{}, nil)

	avg, err := svc.AverageRate(context.Background(), "1", 0)
	require.NoError(t, err)
	assert.Equal(t, 30, avg.Days)
	assert.Equal(t, 3, avg.Samples)
	assert.InDelta(t, 62.0, avg.Average, 1e-9)
}

func TestAverageRateWithoutHistoryIsZero(t *testing.T) {
	svc := newService(stubRates{}, &linearPricer{}, nil)

	avg, err := svc.AverageRate(context.Background(), "1", 7)
	require.NoError(t, err)
	assert.Zero(t, avg.Average)
	assert.Zero(t, avg.Samples)

	_, err = svc.AverageRate(context.Background(), "bad", 7)
	assert.ErrorIs(t, err, ratedomain.ErrInvalidMaterialID)
}

func TestPriceImpactUsesOldestRates(t *testing.T) {
	current := ratedomain.RateTable{"gold": 60, "silver": 1}
	pricer := &linearPricer{current: current}
	svc := newService(stubRates{
		current: current,
		oldest:  ratedomain.RateTable{"gold": 50},
	}, pricer, stubCatalog{
		{ID: 1, Name: "Ring", IsJewelry: true},
		{ID: 2, Name: "Mug", IsJewelry: false},
	})

	impacts, err := svc.PriceImpact(context.Background(), nil, 30)
	require.NoError(t, err)
	require.Len(t, impacts, 1)

	impact := impacts[0]
	assert.Equal(t, "1", impact.ProductID)
	assert.Equal(t, "Ring", impact.Name)
	assert.Equal(t, "600", impact.CurrentPrice.String())
	assert.Equal(t, "500", impact.OldPrice.String())
	assert.Equal(t, "100", impact.Change.String())
	assert.Equal(t, "20", impact.ChangePercent.String())

	// silver had no quote in the window and keeps its current rate
	require.Len(t, pricer.seen, 1)
	assert.Equal(t, 1.0, pricer.seen[0]["silver"])
	assert.Equal(t, 60.0, current["gold"])
}

func TestPriceImpactExplicitProductsSkipsUnknown(t *testing.T) {
	current := ratedomain.RateTable{"gold": 60}
	svc := newService(stubRates{current: current, oldest: ratedomain.RateTable{}}, &linearPricer{current: current}, stubCatalog{
		{ID: 1, Name: "Ring", IsJewelry: true},
	})

	impacts, err := svc.PriceImpact(context.Background(), []string{"1", "404"}, 30)
	require.NoError(t, err)
	require.Len(t, impacts, 1)
	assert.True(t, impacts[0].Change.IsZero())
	assert.True(t, impacts[0].ChangePercent.IsZero())
}
