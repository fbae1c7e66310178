package authorization_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/smallbiznis/karat/internal/authorization"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupAuthz(t *testing.T) authorization.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)

	enforcer, err := authorization.NewEnforcer(db)
	require.NoError(t, err)

	return authorization.NewService(authorization.Params{
		DB:       db,
		Log:      zap.NewNop(),
		Enforcer: enforcer,
	})
}

func TestViewerCanOnlyView(t *testing.T) {
	svc := setupAuthz(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "101", "viewer", authorization.ObjectRate, authorization.ActionRateView))
	assert.NoError(t, svc.Authorize(ctx, "101", "viewer", authorization.ObjectAnalytics, authorization.ActionAnalyticsView))
	assert.ErrorIs(t, svc.Authorize(ctx, "101", "viewer", authorization.ObjectRate, authorization.ActionRateRefresh), authorization.ErrForbidden)
	assert.ErrorIs(t, svc.Authorize(ctx, "101", "viewer", authorization.ObjectVendor, authorization.ActionVendorManage), authorization.ErrForbidden)
}

func TestAdminCanManage(t *testing.T) {
	svc := setupAuthz(t)
	ctx := context.Background()

	assert.NoError(t, svc.Authorize(ctx, "202", "admin", authorization.ObjectVendor, authorization.ActionVendorManage))
	assert.NoError(t, svc.Authorize(ctx, "202", "admin", authorization.ObjectVendor, authorization.ActionVendorView))
	assert.NoError(t, svc.Authorize(ctx, "202", "admin", authorization.ObjectOrder, authorization.ActionOrderComplete))
}

func TestRoleChangeReplacesGrouping(t *testing.T) {
	svc := setupAuthz(t)
	ctx := context.Background()

	require.NoError(t, svc.Authorize(ctx, "303", "admin", authorization.ObjectPricing, authorization.ActionPricingManage))
	assert.ErrorIs(t, svc.Authorize(ctx, "303", "viewer", authorization.ObjectPricing, authorization.ActionPricingManage), authorization.ErrForbidden)
}

func TestAuthorizeValidatesInput(t *testing.T) {
	svc := setupAuthz(t)
	ctx := context.Background()

	assert.ErrorIs(t, svc.Authorize(ctx, "abc", "admin", authorization.ObjectRate, authorization.ActionRateView), authorization.ErrInvalidActor)
	assert.ErrorIs(t, svc.Authorize(ctx, "1", "", authorization.ObjectRate, authorization.ActionRateView), authorization.ErrInvalidRole)
	assert.ErrorIs(t, svc.Authorize(ctx, "1", "admin", "", authorization.ActionRateView), authorization.ErrInvalidObject)
	assert.ErrorIs(t, svc.Authorize(ctx, "1", "admin", authorization.ObjectRate, " "), authorization.ErrInvalidAction)
}
