package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	"gorm.io/gorm"
)

type Repository interface {
	ListRules(ctx context.Context, db *gorm.DB) ([]Rule, error)
	InsertRule(ctx context.Context, db *gorm.DB, rule *Rule) error
	DeleteRule(ctx context.Context, db *gorm.DB, id snowflake.ID) (int64, error)
	NextRulePosition(ctx context.Context, db *gorm.DB) (int, error)
	GetSetting(ctx context.Context, db *gorm.DB, key string) (*Setting, error)
	PutSetting(ctx context.Context, db *gorm.DB, setting *Setting) error
}

// SettingsStore loads the pricing state for a computation.
type SettingsStore interface {
	Load(ctx context.Context) (Settings, error)
}

type AddRuleRequest struct {
	Condition RuleCondition   `json:"condition" binding:"required,rule_condition"`
	Threshold decimal.Decimal `json:"threshold"`
	Discount  decimal.Decimal `json:"discount"`
}

type Service interface {
	ComputePrice(ctx context.Context, productID string) (Quote, error)
	PriceBreakdown(ctx context.Context, productID string) (Breakdown, error)
	// Simulate prices the product against an explicit rate table.
	Simulate(ctx context.Context, productID string, rates ratedomain.RateTable) (Quote, error)

	GetLaborCost(ctx context.Context) (decimal.Decimal, error)
	SetLaborCost(ctx context.Context, cost decimal.Decimal) error
	ListRules(ctx context.Context) ([]Rule, error)
	AddRule(ctx context.Context, req AddRuleRequest) (*Rule, error)
	DeleteRule(ctx context.Context, id string) error
}

var (
	ErrInvalidCondition = errors.New("invalid_rule_condition")
	ErrInvalidThreshold = errors.New("invalid_rule_threshold")
	ErrInvalidDiscount  = errors.New("invalid_rule_discount")
	ErrInvalidLaborCost = errors.New("invalid_labor_cost")
	ErrInvalidRuleID    = errors.New("invalid_rule_id")
	ErrRuleNotFound     = errors.New("pricing_rule_not_found")
)
