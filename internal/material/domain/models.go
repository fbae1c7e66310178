package domain

import (
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"gorm.io/datatypes"
)

const DefaultUnit = "grams"

// PurityOption describes one purity grade of a material.
type PurityOption struct {
	Label    string  `json:"label"`
	Fraction float64 `json:"fraction"`
}

// PurityTable maps purity code (e.g. "18", "925") to its option.
type PurityTable map[string]PurityOption

// Material is a priced commodity with a unit and purity table.
type Material struct {
	ID        snowflake.ID                    `gorm:"primaryKey" json:"id"`
	Name      string                          `gorm:"type:varchar(100);not null" json:"name"`
	Code      string                          `gorm:"type:varchar(100);not null;uniqueIndex" json:"code"`
	Unit      string                          `gorm:"type:varchar(20);not null" json:"unit"`
	Purities  datatypes.JSONType[PurityTable] `gorm:"type:json" json:"purity_options"`
	CreatedAt time.Time                       `gorm:"not null" json:"created_at"`
	UpdatedAt time.Time                       `gorm:"not null" json:"updated_at"`
}

func (Material) TableName() string { return "materials" }

// PurityOptions returns the material's purity table, never nil.
func (m Material) PurityOptions() PurityTable {
	table := m.Purities.Data()
	if table == nil {
		return PurityTable{}
	}
	return table
}

// CodeFor derives the case-insensitive unique key for a material name.
func CodeFor(name string) string {
	return slug.Make(strings.TrimSpace(name))
}

// PurityFraction converts a purity code into the multiplier applied to the
// material's pure-form rate. Codes missing from the material's table yield 1.
func PurityFraction(m Material, code string) float64 {
	code = strings.TrimSpace(code)
	option, ok := m.PurityOptions()[code]
	if !ok {
		return 1
	}
	if fraction, ok := standardFraction(m.Code, code); ok {
		return fraction
	}
	if option.Fraction > 0 && option.Fraction <= 1 {
		return option.Fraction
	}
	return 1
}

// PurityLabel returns the display label for a purity code, or "N/A".
func PurityLabel(m Material, code string) string {
	option, ok := m.PurityOptions()[strings.TrimSpace(code)]
	if !ok || strings.TrimSpace(option.Label) == "" {
		return "N/A"
	}
	return option.Label
}

// standardFraction covers the hallmark conventions: karat gold, sterling
// silver and 950 platinum.
func standardFraction(materialCode, purityCode string) (float64, bool) {
	switch materialCode {
	case "gold":
		karat, err := strconv.Atoi(purityCode)
		if err != nil || karat <= 0 || karat > 24 {
			return 0, false
		}
		return float64(karat) / 24, true
	case "silver":
		if purityCode == "925" {
			return 0.925, true
		}
	case "platinum":
		if purityCode == "950" {
			return 0.95, true
		}
	}
	return 0, false
}

// DefaultMaterials are seeded on first start.
func DefaultMaterials() []Material {
	return []Material{
		{
			Name: "gold",
			Unit: DefaultUnit,
			Purities: datatypes.NewJSONType(PurityTable{
				"18": {Label: "18K", Fraction: 0.75},
				"22": {Label: "22K", Fraction: 22.0 / 24},
				"24": {Label: "24K", Fraction: 1},
			}),
		},
		{
			Name: "silver",
			Unit: DefaultUnit,
			Purities: datatypes.NewJSONType(PurityTable{
				"925": {Label: "925 Sterling", Fraction: 0.925},
			}),
		},
		{
			Name: "platinum",
			Unit: DefaultUnit,
			Purities: datatypes.NewJSONType(PurityTable{
				"950": {Label: "950 Platinum", Fraction: 0.95},
			}),
		},
	}
}
