package authorization

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

const (
	ObjectVendor    = "vendor"
	ObjectMaterial  = "material"
	ObjectPricing   = "pricing"
	ObjectProduct   = "product"
	ObjectInventory = "inventory"
	ObjectRate      = "rate"
	ObjectAnalytics = "analytics"
	ObjectAuditLog  = "audit_log"
	ObjectAPIKey    = "api_key"
	ObjectOrder     = "order"
)

const (
	ActionVendorView   = "vendor.view"
	ActionVendorManage = "vendor.manage"

	ActionMaterialView   = "material.view"
	ActionMaterialManage = "material.manage"

	ActionPricingView   = "pricing.view"
	ActionPricingManage = "pricing.manage"

	ActionProductManage = "product.manage"

	ActionInventoryView   = "inventory.view"
	ActionInventoryAdjust = "inventory.adjust"

	ActionRateView    = "rate.view"
	ActionRateRefresh = "rate.refresh"

	ActionAnalyticsView = "analytics.view"

	ActionAuditLogView  = "audit_log.view"
	ActionAuditLogClear = "audit_log.clear"

	ActionAPIKeyView   = "api_key.view"
	ActionAPIKeyCreate = "api_key.create"
	ActionAPIKeyRotate = "api_key.rotate"
	ActionAPIKeyRevoke = "api_key.revoke"

	ActionOrderComplete = "order.complete"
)

const (
	RoleAdmin  = "role:admin"
	RoleViewer = "role:viewer"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
	AuditSvc auditdomain.Service `optional:"true"`
}

type ServiceImpl struct {
	db       *gorm.DB
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
	auditSvc auditdomain.Service
}

func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	enforcer.EnableAutoBuildRoleLinks(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	enforcer.BuildRoleLinks()
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		db:       p.DB,
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
		auditSvc: p.AuditSvc,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, apiKeyID string, role string, object string, action string) error {
	keyID, err := snowflake.ParseString(strings.TrimSpace(apiKeyID))
	if err != nil || keyID == 0 {
		return ErrInvalidActor
	}
	role = strings.ToLower(strings.TrimSpace(role))
	if role == "" {
		return ErrInvalidRole
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return ErrInvalidObject
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return ErrInvalidAction
	}

	subject := fmt.Sprintf("api_key:%s", keyID.String())
	roleName := fmt.Sprintf("role:%s", role)
	if err := s.ensureGrouping(subject, roleName); err != nil {
		return err
	}

	allowed, err := s.enforcer.Enforce(subject, object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Warn("authorization denied",
			zap.String("subject", subject),
			zap.String("role", roleName),
			zap.String("object", object),
			zap.String("action", action),
		)
		s.auditDenied(ctx, subject, object, action)
		return ErrForbidden
	}
	return nil
}

// ensureGrouping keeps exactly one role link per subject, matching the key's current role.
func (s *ServiceImpl) ensureGrouping(subject string, roleName string) error {
	existing, err := s.enforcer.GetFilteredGroupingPolicy(0, subject)
	if err != nil {
		return err
	}
	for _, rule := range existing {
		if len(rule) < 2 {
			continue
		}
		if rule[1] != roleName {
			params := make([]interface{}, 0, len(rule))
			for _, value := range rule {
				params = append(params, value)
			}
			_, _ = s.enforcer.RemoveGroupingPolicy(params...)
		}
	}

	has, err := s.enforcer.HasGroupingPolicy(subject, roleName)
	if err != nil {
		return err
	}
	if has {
		return nil
	}
	_, err = s.enforcer.AddGroupingPolicy(subject, roleName)
	return err
}

func (s *ServiceImpl) auditDenied(ctx context.Context, subject string, object string, action string) {
	if s.auditSvc == nil {
		return
	}
	_ = s.auditSvc.Record(ctx, auditdomain.ActionAuthorizationDenied, map[string]any{
		"subject": subject,
		"object":  object,
		"action":  action,
	})
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	viewer := [][]string{
		{ObjectVendor, ActionVendorView},
		{ObjectMaterial, ActionMaterialView},
		{ObjectPricing, ActionPricingView},
		{ObjectInventory, ActionInventoryView},
		{ObjectRate, ActionRateView},
		{ObjectAnalytics, ActionAnalyticsView},
		{ObjectAuditLog, ActionAuditLogView},
	}
	adminOnly := [][]string{
		{ObjectVendor, ActionVendorManage},
		{ObjectMaterial, ActionMaterialManage},
		{ObjectPricing, ActionPricingManage},
		{ObjectProduct, ActionProductManage},
		{ObjectInventory, ActionInventoryAdjust},
		{ObjectRate, ActionRateRefresh},
		{ObjectAuditLog, ActionAuditLogClear},
		{ObjectAPIKey, ActionAPIKeyView},
		{ObjectAPIKey, ActionAPIKeyCreate},
		{ObjectAPIKey, ActionAPIKeyRotate},
		{ObjectAPIKey, ActionAPIKeyRevoke},
		{ObjectOrder, ActionOrderComplete},
	}

	policies := make([][]string, 0, 2*len(viewer)+len(adminOnly))
	for _, p := range viewer {
		policies = append(policies, []string{RoleViewer, p[0], p[1]}, []string{RoleAdmin, p[0], p[1]})
	}
	for _, p := range adminOnly {
		policies = append(policies, []string{RoleAdmin, p[0], p[1]})
	}

	for _, policy := range policies {
		if _, err := enforcer.AddPolicy(policy); err != nil {
			return err
		}
	}
	return nil
}
