package domain

import (
	"context"
	"errors"

	"github.com/smallbiznis/karat/pkg/db/pagination"
	"gorm.io/gorm"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

// Actions recorded across the pricing pipeline.
const (
	ActionVendorAdded          = "Vendor Added"
	ActionVendorUpdated        = "Vendor Updated"
	ActionVendorDeleted        = "Vendor Deleted"
	ActionVendorStatusToggled  = "Vendor Status Toggled"
	ActionMaterialAdded        = "Material Added"
	ActionMaterialUpdated      = "Material Updated"
	ActionMaterialDeleted      = "Material Deleted"
	ActionPricingRuleAdded     = "Pricing Rule Added"
	ActionPricingRuleDeleted   = "Pricing Rule Deleted"
	ActionLaborCostUpdated     = "Labor Cost Updated"
	ActionInventoryUpdated     = "Inventory Updated"
	ActionOrderInventoryDeduct = "Order Inventory Deducted"
	ActionProductUpdated       = "Jewelry Product Updated"
	ActionRatesUpdated         = "Rates Updated"
	ActionAlertSubscribed      = "Price Alert Subscribed"
	ActionAlertSent            = "Price Alert Sent"
	ActionAuditLogsCleared     = "Audit Logs Cleared"
	ActionAuthorizationDenied  = "Authorization Denied"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, entry *AuditLog) error
	List(ctx context.Context, db *gorm.DB, filter ListFilter) ([]*AuditLog, error)
	DeleteAll(ctx context.Context, db *gorm.DB) (int64, error)
}

type ListAuditLogRequest struct {
	pagination.Pagination
	Action string `form:"action"`
}

type ListAuditLogResponse struct {
	pagination.PageInfo
	AuditLogs []AuditLog `json:"audit_logs"`
}

type Service interface {
	// Record appends an entry attributed to the actor in ctx, or the system actor.
	Record(ctx context.Context, action string, details map[string]any) error
	ListRecent(ctx context.Context, limit int) ([]AuditLog, error)
	List(ctx context.Context, req ListAuditLogRequest) (ListAuditLogResponse, error)
	// Clear removes every entry and then records that it did so.
	Clear(ctx context.Context) error
}

var (
	ErrInvalidAction    = errors.New("invalid_action")
	ErrInvalidPageToken = errors.New("invalid_page_token")
)
