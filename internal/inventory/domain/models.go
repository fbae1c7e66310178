package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Record is the on-hand quantity of one material. Quantity never drops below 0.
type Record struct {
	MaterialID snowflake.ID    `gorm:"primaryKey" json:"material_id"`
	Quantity   decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"quantity"`
	UpdatedAt  time.Time       `gorm:"not null" json:"updated_at"`
}

func (Record) TableName() string { return "inventory" }

// OrderDeduction marks an order whose inventory has been deducted.
type OrderDeduction struct {
	OrderID     string    `gorm:"primaryKey;type:varchar(100)"`
	ProcessedAt time.Time `gorm:"not null"`
}

func (OrderDeduction) TableName() string { return "inventory_order_deductions" }

type Adjustment struct {
	MaterialID  string          `json:"material_id"`
	Change      decimal.Decimal `json:"change"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
}

type OrderResult struct {
	OrderID     string       `json:"order_id"`
	Adjustments []Adjustment `json:"adjustments"`
}
