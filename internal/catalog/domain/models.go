package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// CatalogProduct is the stored storefront product. Jewelry composition
// lives in Attributes under _material_{id}_weight / _material_{id}_purity.
type CatalogProduct struct {
	ID         snowflake.ID      `gorm:"primaryKey"`
	Name       string            `gorm:"type:varchar(255);not null"`
	Price      decimal.Decimal   `gorm:"type:numeric(20,6);not null"`
	IsJewelry  bool              `gorm:"not null"`
	Attributes datatypes.JSONMap `gorm:"type:json"`
	CreatedAt  time.Time         `gorm:"not null"`
	UpdatedAt  time.Time         `gorm:"not null"`
}

func (CatalogProduct) TableName() string { return "catalog_products" }

// Kind is either Standard or Jewelry.
type Kind interface {
	isKind()
	Name() string
}

// Standard products are sold at their static catalog price.
type Standard struct {
	Price decimal.Decimal
}

// Jewelry products are priced from their material composition.
type Jewelry struct {
	Composition []Component
}

func (Standard) isKind()      {}
func (Standard) Name() string { return "standard" }
func (Jewelry) isKind()       {}
func (Jewelry) Name() string  { return "jewelry" }

type Component struct {
	MaterialID snowflake.ID
	Weight     decimal.Decimal
	Purity     string
}

type Product struct {
	ID   snowflake.ID
	Name string
	Kind Kind
}

// TotalWeight sums the weight of every component whose material passes
// include, regardless of material rates. A nil include counts every component.
func (j Jewelry) TotalWeight(include func(materialID snowflake.ID) bool) decimal.Decimal {
	total := decimal.Zero
	for _, c := range j.Composition {
		if include != nil && !include(c.MaterialID) {
			continue
		}
		total = total.Add(c.Weight)
	}
	return total
}

func WeightKey(materialID snowflake.ID) string {
	return fmt.Sprintf("_material_%s_weight", materialID.String())
}

func PurityKey(materialID snowflake.ID) string {
	return fmt.Sprintf("_material_%s_purity", materialID.String())
}

// ToProduct projects the stored row into the tagged variant. Components
// with a zero or unparsable weight are left out.
func (p CatalogProduct) ToProduct() Product {
	product := Product{ID: p.ID, Name: p.Name}
	if !p.IsJewelry {
		product.Kind = Standard{Price: p.Price}
		return product
	}

	var components []Component
	for key, value := range p.Attributes {
		if !strings.HasPrefix(key, "_material_") || !strings.HasSuffix(key, "_weight") {
			continue
		}
		raw := strings.TrimSuffix(strings.TrimPrefix(key, "_material_"), "_weight")
		materialID, err := snowflake.ParseString(raw)
		if err != nil || materialID == 0 {
			continue
		}
		weight, ok := parseDecimal(value)
		if !ok || !weight.IsPositive() {
			continue
		}
		purity, _ := p.Attributes[PurityKey(materialID)].(string)
		components = append(components, Component{
			MaterialID: materialID,
			Weight:     weight,
			Purity:     strings.TrimSpace(purity),
		})
	}
	sort.Slice(components, func(i, j int) bool {
		return components[i].MaterialID < components[j].MaterialID
	})

	product.Kind = Jewelry{Composition: components}
	return product
}

func parseDecimal(value any) (decimal.Decimal, bool) {
	switch v := value.(type) {
	case float64:
		return decimal.NewFromFloat(v), true
	case int64:
		return decimal.NewFromInt(v), true
	case int:
		return decimal.NewFromInt(int64(v)), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(v))
		return d, err == nil
	default:
		return decimal.Zero, false
	}
}
