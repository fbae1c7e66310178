package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type RuleCondition string

const (
	ConditionWeight     RuleCondition = "weight"
	ConditionOrderTotal RuleCondition = "order_total"
)

func (c RuleCondition) Valid() bool {
	return c == ConditionWeight || c == ConditionOrderTotal
}

// Rule is a conditional percentage discount. Rules compound in Position order.
type Rule struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	Condition RuleCondition   `gorm:"type:varchar(20);not null" json:"condition"`
	Threshold decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"threshold"`
	Discount  decimal.Decimal `gorm:"type:numeric(9,4);not null" json:"discount"`
	Position  int             `gorm:"not null;index" json:"position"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (Rule) TableName() string { return "pricing_rules" }

// Setting is a key/value row of operator pricing configuration.
type Setting struct {
	Key       string    `gorm:"column:setting_key;primaryKey;type:varchar(64)"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (Setting) TableName() string { return "pricing_settings" }

const SettingLaborCost = "labor_cost"

// Settings is the pricing state handed to the engine.
type Settings struct {
	LaborCost decimal.Decimal
	Rules     []Rule
}

type BreakdownRow struct {
	Material string          `json:"material"`
	Weight   decimal.Decimal `json:"weight"`
	Unit     string          `json:"unit"`
	Purity   string          `json:"purity"`
	Rate     decimal.Decimal `json:"rate"`
	Cost     decimal.Decimal `json:"cost"`
}

type Breakdown struct {
	Materials    []BreakdownRow  `json:"materials"`
	MaterialCost decimal.Decimal `json:"material_cost"`
	Discount     decimal.Decimal `json:"discount"`
	LaborCost    decimal.Decimal `json:"labor_cost"`
	FinalPrice   decimal.Decimal `json:"final_price"`
}

// Quote is a computed price. Computed is false for a jewelry product none
// of whose materials had a current rate; Amount then carries labor only.
type Quote struct {
	Amount    decimal.Decimal `json:"price"`
	Computed  bool            `json:"computed"`
	Kind      string          `json:"kind"`
	Breakdown Breakdown       `json:"breakdown"`
}
