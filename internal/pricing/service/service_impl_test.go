package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	"github.com/smallbiznis/karat/internal/config"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/pricing/domain"
	"github.com/smallbiznis/karat/internal/pricing/repository"
	"github.com/smallbiznis/karat/internal/pricing/service"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const goldID = snowflake.ID(1)

type stubProducts map[string]catalogdomain.Product

func (s stubProducts) GetProduct(ctx context.Context, id string) (catalogdomain.Product, error) {
	p, ok := s[id]
	if !ok {
		return catalogdomain.Product{}, catalogdomain.ErrProductNotFound
	}
	return p, nil
}

type stubRates struct {
	table ratedomain.RateTable
	calls int
}

func (s *stubRates) GetRates(ctx context.Context) (ratedomain.RateTable, error) {
	s.calls++
	return s.table, nil
}

type stubMaterials []materialdomain.Material

func (s stubMaterials) List(ctx context.Context) ([]materialdomain.Material, error) {
	return s, nil
}

func setupService(t *testing.T, rates *stubRates) *service.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.Rule{}, &domain.Setting{}))

	node, err := snowflake.NewNode(5)
	require.NoError(t, err)

	products := stubProducts{
		"10": {ID: 10, Name: "Ring", Kind: catalogdomain.Jewelry{Composition: []catalogdomain.Component{
			{MaterialID: goldID, Weight: decimal.NewFromInt(10), Purity: "18"},
		}}},
		"11": {ID: 11, Name: "Mug", Kind: catalogdomain.Standard{Price: decimal.RequireFromString("12.5")}},
	}
	materials := stubMaterials{{
		ID: goldID, Name: "gold", Code: "gold", Unit: "grams",
		Purities: datatypes.NewJSONType(materialdomain.PurityTable{"18": {Label: "18K", Fraction: 0.75}}),
	}}

	return service.New(service.Params{
		DB:        db,
		Log:       zap.NewNop(),
		GenID:     node,
		Repo:      repository.Provide(),
		Settings:  config.NewStaticStoreSettings(config.StoreSettings{Currency: "USD", PriceDecimals: 2, DefaultLaborCost: 5}),
		Products:  products,
		Rates:     rates,
		Materials: materials,
	})
}

func TestComputePriceUsesDefaultLaborCost(t *testing.T) {
	svc := setupService(t, &stubRates{table: ratedomain.RateTable{"gold": 60}})

	quote, err := svc.ComputePrice(context.Background(), "10")
	require.NoError(t, err)
	assert.Equal(t, "455", quote.Amount.String())
	assert.True(t, quote.Computed)
}

func TestComputePriceWithEmptyRateTable(t *testing.T) {
	svc := setupService(t, &stubRates{table: ratedomain.RateTable{}})

	quote, err := svc.ComputePrice(context.Background(), "10")
	require.NoError(t, err)
	assert.False(t, quote.Computed)
	assert.Equal(t, "5", quote.Amount.String())
}

func TestStandardProductSkipsRateLookup(t *testing.T) {
	rates := &stubRates{table: ratedomain.RateTable{"gold": 60}}
	svc := setupService(t, rates)

	quote, err := svc.ComputePrice(context.Background(), "11")
	require.NoError(t, err)
	assert.Equal(t, "12.5", quote.Amount.String())
	assert.Equal(t, 0, rates.calls)
}

func TestLaborCostAndRulesArePersisted(t *testing.T) {
	svc := setupService(t, &stubRates{table: ratedomain.RateTable{"gold": 60}})
	ctx := context.Background()

	require.NoError(t, svc.SetLaborCost(ctx, decimal.NewFromInt(20)))
	require.NoError(t, svc.SetLaborCost(ctx, decimal.NewFromInt(10)))
	cost, err := svc.GetLaborCost(ctx)
	require.NoError(t, err)
	assert.Equal(t, "10", cost.String())

	first, err := svc.AddRule(ctx, domain.AddRuleRequest{Condition: domain.ConditionWeight, Threshold: decimal.NewFromInt(5), Discount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	second, err := svc.AddRule(ctx, domain.AddRuleRequest{Condition: domain.ConditionOrderTotal, Threshold: decimal.Zero, Discount: decimal.NewFromInt(10)})
	require.NoError(t, err)
	assert.Less(t, first.Position, second.Position)

	quote, err := svc.ComputePrice(ctx, "10")
	require.NoError(t, err)
	// 450 * 0.9 * 0.9 + 10
	assert.Equal(t, "374.5", quote.Amount.String())

	require.NoError(t, svc.DeleteRule(ctx, first.ID.String()))
	rules, err := svc.ListRules(ctx)
	require.NoError(t, err)
	require.Len(t, rules, 1)
	assert.Equal(t, second.ID, rules[0].ID)

	assert.ErrorIs(t, svc.DeleteRule(ctx, first.ID.String()), domain.ErrRuleNotFound)
}

func TestAddRuleValidation(t *testing.T) {
	svc := setupService(t, &stubRates{})
	ctx := context.Background()

	_, err := svc.AddRule(ctx, domain.AddRuleRequest{Condition: "color", Discount: decimal.NewFromInt(5)})
	assert.ErrorIs(t, err, domain.ErrInvalidCondition)

	_, err = svc.AddRule(ctx, domain.AddRuleRequest{Condition: domain.ConditionWeight, Threshold: decimal.NewFromInt(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidThreshold)

	_, err = svc.AddRule(ctx, domain.AddRuleRequest{Condition: domain.ConditionWeight, Discount: decimal.NewFromInt(101)})
	assert.ErrorIs(t, err, domain.ErrInvalidDiscount)

	assert.ErrorIs(t, svc.SetLaborCost(ctx, decimal.NewFromInt(-1)), domain.ErrInvalidLaborCost)
}

func TestOrderTotalRuleReadsCartFromContext(t *testing.T) {
	svc := setupService(t, &stubRates{table: ratedomain.RateTable{"gold": 60}})
	ctx := context.Background()

	_, err := svc.AddRule(ctx, domain.AddRuleRequest{Condition: domain.ConditionOrderTotal, Threshold: decimal.NewFromInt(1000), Discount: decimal.NewFromInt(50)})
	require.NoError(t, err)

	quote, err := svc.ComputePrice(ctx, "10")
	require.NoError(t, err)
	assert.Equal(t, "455", quote.Amount.String())

	quote, err = svc.ComputePrice(catalogdomain.WithCartSubtotal(ctx, decimal.NewFromInt(1500)), "10")
	require.NoError(t, err)
	assert.Equal(t, "230", quote.Amount.String())
}

func TestSimulateUsesExplicitRates(t *testing.T) {
	rates := &stubRates{table: ratedomain.RateTable{"gold": 60}}
	svc := setupService(t, rates)

	quote, err := svc.Simulate(context.Background(), "10", ratedomain.RateTable{"gold": 40})
	require.NoError(t, err)
	assert.Equal(t, "305", quote.Amount.String())
	assert.Equal(t, 0, rates.calls)
}

func TestBreakdownUnknownProduct(t *testing.T) {
	svc := setupService(t, &stubRates{})
	_, err := svc.PriceBreakdown(context.Background(), "404")
	assert.ErrorIs(t, err, catalogdomain.ErrProductNotFound)
}
