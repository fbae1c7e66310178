package service_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	apikeydomain "github.com/smallbiznis/karat/internal/apikey/domain"
	"github.com/smallbiznis/karat/internal/apikey/repository"
	"github.com/smallbiznis/karat/internal/apikey/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupService(t *testing.T) apikeydomain.Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&apikeydomain.APIKey{}))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return service.New(service.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Repo:  repository.Provide(),
	})
}

func TestCreateAndAuthenticate(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "dashboard"})
	require.NoError(t, err)
	assert.Equal(t, apikeydomain.RoleViewer, secret.Role)
	assert.True(t, strings.HasPrefix(secret.APIKey, "kt_live_key_"))

	key, err := svc.Authenticate(ctx, secret.APIKey)
	require.NoError(t, err)
	assert.Equal(t, secret.KeyID, key.KeyID)
	assert.Equal(t, apikeydomain.RoleViewer, key.Role)

	_, err = svc.Authenticate(ctx, secret.APIKey+"x")
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidAPIKey)

	_, err = svc.Create(ctx, apikeydomain.CreateRequest{Name: "ops", Role: "owner"})
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidRole)
	_, err = svc.Create(ctx, apikeydomain.CreateRequest{Name: "  "})
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidName)
}

func TestRevokeDisablesKey(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	secret, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "ops", Role: apikeydomain.RoleAdmin})
	require.NoError(t, err)
	require.NoError(t, svc.Revoke(ctx, secret.KeyID))

	_, err = svc.Authenticate(ctx, secret.APIKey)
	assert.ErrorIs(t, err, apikeydomain.ErrInvalidAPIKey)
	assert.ErrorIs(t, svc.Revoke(ctx, "key_missing"), apikeydomain.ErrNotFound)
}

func TestRotateKeepsRoleAndGracePeriod(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, apikeydomain.CreateRequest{Name: "ops", Role: apikeydomain.RoleAdmin})
	require.NoError(t, err)

	next, err := svc.Rotate(ctx, first.KeyID)
	require.NoError(t, err)
	assert.Equal(t, apikeydomain.RoleAdmin, next.Role)
	assert.NotEqual(t, first.APIKey, next.APIKey)

	// the old key still works during the grace period
	_, err = svc.Authenticate(ctx, first.APIKey)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, next.APIKey)
	require.NoError(t, err)

	keys, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, keys, 2)
}

func TestEnsureBootstrapIsIdempotent(t *testing.T) {
	svc := setupService(t)
	ctx := context.Background()

	created, err := svc.EnsureBootstrap(ctx, "super-secret")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureBootstrap(ctx, "super-secret")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.EnsureBootstrap(ctx, "")
	require.NoError(t, err)
	assert.False(t, created)

	key, err := svc.Authenticate(ctx, "super-secret")
	require.NoError(t, err)
	assert.Equal(t, apikeydomain.RoleAdmin, key.Role)
	assert.Equal(t, apikeydomain.BootstrapKeyName, key.Name)
}
