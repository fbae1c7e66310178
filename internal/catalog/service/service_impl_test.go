package service_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/karat/internal/catalog/domain"
	"github.com/smallbiznis/karat/internal/catalog/repository"
	"github.com/smallbiznis/karat/internal/catalog/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) domain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&domain.CatalogProduct{}))

	return service.New(service.Params{DB: db, Log: zap.NewNop(), Repo: repository.Provide()})
}

func TestUpsertThenComposeJewelry(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()
	gold := snowflake.ID(900)

	_, err := svc.UpsertProduct(ctx, "101", domain.UpsertRequest{Name: "Ring", Price: decimal.NewFromInt(99)})
	require.NoError(t, err)

	product, err := svc.GetProduct(ctx, "101")
	require.NoError(t, err)
	_, standard := product.Kind.(domain.Standard)
	assert.True(t, standard)

	_, err = svc.SetJewelry(ctx, "101", true)
	require.NoError(t, err)
	_, err = svc.SetComponent(ctx, "101", gold.String(), decimal.NewFromInt(10), "18")
	require.NoError(t, err)

	product, err = svc.GetProduct(ctx, "101")
	require.NoError(t, err)
	jewelry, ok := product.Kind.(domain.Jewelry)
	require.True(t, ok)
	require.Len(t, jewelry.Composition, 1)
	assert.Equal(t, gold, jewelry.Composition[0].MaterialID)
	assert.True(t, jewelry.Composition[0].Weight.Equal(decimal.NewFromInt(10)))

	_, err = svc.SetComponent(ctx, "101", gold.String(), decimal.Zero, "")
	require.NoError(t, err)
	product, err = svc.GetProduct(ctx, "101")
	require.NoError(t, err)
	assert.Empty(t, product.Kind.(domain.Jewelry).Composition)
}

func TestGetProductNotFound(t *testing.T) {
	svc := setupService(t)
	_, err := svc.GetProduct(context.Background(), "555")
	assert.ErrorIs(t, err, domain.ErrProductNotFound)

	_, err = svc.GetProduct(context.Background(), "abc")
	assert.ErrorIs(t, err, domain.ErrInvalidProductID)
}

func TestSetComponentRejectsNegativeWeight(t *testing.T) {
	svc := setupService(t)
	_, err := svc.UpsertProduct(context.Background(), "7", domain.UpsertRequest{Name: "Chain"})
	require.NoError(t, err)

	_, err = svc.SetComponent(context.Background(), "7", "900", decimal.NewFromInt(-1), "")
	assert.ErrorIs(t, err, domain.ErrInvalidWeight)
}
