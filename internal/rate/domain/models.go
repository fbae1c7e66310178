package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// RateTable maps material code to the current rate per unit in store currency.
type RateTable map[string]float64

func (t RateTable) Clone() RateTable {
	out := make(RateTable, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

// CurrentRate is one row of the durable current rate table.
type CurrentRate struct {
	Material  string    `gorm:"primaryKey;type:varchar(100)"`
	Rate      float64   `gorm:"not null"`
	Currency  string    `gorm:"type:varchar(3);not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (CurrentRate) TableName() string { return "current_rates" }

// RateSnapshot is a raw vendor quote kept for analytics. Rates are in the
// vendor's quote currency.
type RateSnapshot struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	MaterialID snowflake.ID `gorm:"not null;index:idx_rate_history_material_fetched,priority:1"`
	VendorID   snowflake.ID `gorm:"not null"`
	Rate       float64      `gorm:"not null"`
	Currency   string       `gorm:"type:varchar(3);not null"`
	FetchedAt  time.Time    `gorm:"not null;index:idx_rate_history_material_fetched,priority:2"`
}

func (RateSnapshot) TableName() string { return "rate_history" }

type HistoryPoint struct {
	VendorID  string    `json:"vendor_id"`
	Rate      float64   `json:"rate"`
	Currency  string    `json:"currency"`
	FetchedAt time.Time `json:"fetched_at"`
}
