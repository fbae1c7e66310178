package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/karat/internal/audit/masking"
)

// Vendor is an upstream source of material rate quotes.
type Vendor struct {
	ID         snowflake.ID `gorm:"primaryKey"`
	Name       string       `gorm:"type:varchar(100);not null"`
	Endpoint   string       `gorm:"type:text;not null"`
	Credential string       `gorm:"type:text"`
	Active     bool         `gorm:"not null"`
	CreatedAt  time.Time    `gorm:"not null"`
	UpdatedAt  time.Time    `gorm:"not null"`
}

func (Vendor) TableName() string { return "vendors" }

// Response is the operator-facing view. The credential is masked.
type Response struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Endpoint   string    `json:"endpoint"`
	Credential string    `json:"credential,omitempty"`
	Active     bool      `json:"active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func ToResponse(v *Vendor) Response {
	return Response{
		ID:         v.ID.String(),
		Name:       v.Name,
		Endpoint:   v.Endpoint,
		Credential: masking.MaskSecret(v.Credential),
		Active:     v.Active,
		CreatedAt:  v.CreatedAt,
		UpdatedAt:  v.UpdatedAt,
	}
}

// DefaultVendor is the mock feed seeded on first start.
func DefaultVendor() Vendor {
	return Vendor{
		Name:     "Free Metal API (Mock)",
		Endpoint: "https://api.metals.live/v1/spot",
		Active:   true,
	}
}
