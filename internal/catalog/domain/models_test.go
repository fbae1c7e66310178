package domain

import (
	"context"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

func TestToProductStandard(t *testing.T) {
	p := CatalogProduct{ID: 1, Name: "Mug", Price: decimal.RequireFromString("12.50")}

	product := p.ToProduct()
	standard, ok := product.Kind.(Standard)
	require.True(t, ok)
	assert.True(t, standard.Price.Equal(decimal.RequireFromString("12.5")))
}

func TestToProductJewelryReadsAttributes(t *testing.T) {
	gold, silver, unused := snowflake.ID(20), snowflake.ID(10), snowflake.ID(30)
	p := CatalogProduct{
		ID:        1,
		IsJewelry: true,
		Attributes: datatypes.JSONMap{
			WeightKey(gold):   "10",
			PurityKey(gold):   "18",
			WeightKey(silver): 2.5,
			WeightKey(unused): "0",
			"color":           "yellow",
		},
	}

	jewelry, ok := p.ToProduct().Kind.(Jewelry)
	require.True(t, ok)
	require.Len(t, jewelry.Composition, 2)

	assert.Equal(t, silver, jewelry.Composition[0].MaterialID)
	assert.Equal(t, "", jewelry.Composition[0].Purity)
	assert.Equal(t, gold, jewelry.Composition[1].MaterialID)
	assert.Equal(t, "18", jewelry.Composition[1].Purity)
	assert.True(t, jewelry.TotalWeight(nil).Equal(decimal.RequireFromString("12.5")))
	onlyGold := func(id snowflake.ID) bool { return id == gold }
	assert.True(t, jewelry.TotalWeight(onlyGold).Equal(decimal.NewFromInt(10)))
}

func TestContextCart(t *testing.T) {
	var cart ContextCart
	assert.True(t, cart.Subtotal(context.Background()).IsZero())

	ctx := WithCartSubtotal(context.Background(), decimal.NewFromInt(250))
	assert.True(t, cart.Subtotal(ctx).Equal(decimal.NewFromInt(250)))
}
