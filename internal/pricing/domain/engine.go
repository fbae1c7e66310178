package domain

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
)

var hundred = decimal.NewFromInt(100)

type Input struct {
	Product      catalogdomain.Product
	Rates        ratedomain.RateTable
	Materials    map[snowflake.ID]materialdomain.Material
	Settings     Settings
	CartSubtotal decimal.Decimal
	Decimals     int32
}

// Compute prices a product. It performs no I/O.
func Compute(in Input) Quote {
	switch kind := in.Product.Kind.(type) {
	case catalogdomain.Jewelry:
		return computeJewelry(in, kind)
	case catalogdomain.Standard:
		return Quote{
			Amount:    kind.Price,
			Computed:  true,
			Kind:      kind.Name(),
			Breakdown: Breakdown{Materials: []BreakdownRow{}, FinalPrice: kind.Price},
		}
	default:
		return Quote{Kind: "unknown", Breakdown: Breakdown{Materials: []BreakdownRow{}}}
	}
}

func computeJewelry(in Input, jewelry catalogdomain.Jewelry) Quote {
	rows := make([]BreakdownRow, 0, len(jewelry.Composition))
	materialCost := decimal.Zero
	priced := 0

	for _, component := range jewelry.Composition {
		if !component.Weight.IsPositive() {
			continue
		}
		material, ok := in.Materials[component.MaterialID]
		if !ok {
			continue
		}

		row := BreakdownRow{
			Material: displayName(material.Name),
			Weight:   component.Weight,
			Unit:     material.Unit,
			Purity:   materialdomain.PurityLabel(material, component.Purity),
			Rate:     decimal.Zero,
			Cost:     decimal.Zero,
		}

		baseRate, ok := in.Rates[material.Code]
		if ok {
			fraction := materialdomain.PurityFraction(material, component.Purity)
			adjusted := decimal.NewFromFloat(baseRate).Mul(decimal.NewFromFloat(fraction))
			cost := adjusted.Mul(component.Weight)

			materialCost = materialCost.Add(cost)
			row.Rate = adjusted.Round(in.Decimals)
			row.Cost = cost.Round(in.Decimals)
			priced++
		}
		rows = append(rows, row)
	}

	price := materialCost
	totalWeight := jewelry.TotalWeight(func(materialID snowflake.ID) bool {
		_, ok := in.Materials[materialID]
		return ok
	})
	for _, rule := range in.Settings.Rules {
		if !ruleApplies(rule, totalWeight, in.CartSubtotal) {
			continue
		}
		price = price.Mul(decimal.NewFromInt(1).Sub(rule.Discount.Div(hundred)))
	}
	discount := materialCost.Sub(price)

	price = price.Add(in.Settings.LaborCost).Round(in.Decimals)

	return Quote{
		Amount:   price,
		Computed: priced > 0,
		Kind:     jewelry.Name(),
		Breakdown: Breakdown{
			Materials:    rows,
			MaterialCost: materialCost.Round(in.Decimals),
			Discount:     discount.Round(in.Decimals),
			LaborCost:    in.Settings.LaborCost.Round(in.Decimals),
			FinalPrice:   price,
		},
	}
}

func ruleApplies(rule Rule, totalWeight, cartSubtotal decimal.Decimal) bool {
	switch rule.Condition {
	case ConditionWeight:
		return totalWeight.GreaterThanOrEqual(rule.Threshold)
	case ConditionOrderTotal:
		return cartSubtotal.GreaterThanOrEqual(rule.Threshold)
	default:
		return false
	}
}

func displayName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return name
	}
	return strings.ToUpper(name[:1]) + name[1:]
}
