package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Subscription asks for one email when the product's price falls below
// Threshold. It is deleted once it fires.
type Subscription struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	ProductID snowflake.ID    `gorm:"not null;index" json:"product_id"`
	Email     string          `gorm:"type:varchar(255);not null" json:"email"`
	Threshold decimal.Decimal `gorm:"type:numeric(20,6);not null" json:"threshold"`
	CreatedAt time.Time       `gorm:"not null" json:"created_at"`
}

func (Subscription) TableName() string { return "alerts" }

// EvaluationResult summarises one evaluation pass.
type EvaluationResult struct {
	Checked  int `json:"checked"`
	Notified int `json:"notified"`
	Failed   int `json:"failed"`
}
