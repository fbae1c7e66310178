package seed_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	"github.com/smallbiznis/karat/internal/migration"
	"github.com/smallbiznis/karat/internal/seed"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, migration.AutoMigrateModels(db))
	return db
}

func TestEnsureDefaultsIsIdempotent(t *testing.T) {
	db := setupDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, seed.EnsureDefaults(ctx, db, node))
	require.NoError(t, seed.EnsureDefaults(ctx, db, node))

	var vendors []supplierdomain.Vendor
	require.NoError(t, db.Find(&vendors).Error)
	require.Len(t, vendors, 1)
	assert.True(t, vendors[0].Active)
	assert.Equal(t, supplierdomain.DefaultVendor().Endpoint, vendors[0].Endpoint)

	var materials []materialdomain.Material
	require.NoError(t, db.Order("code").Find(&materials).Error)
	require.Len(t, materials, 3)
	assert.Equal(t, "gold", materials[0].Code)
	assert.InDelta(t, 0.75, materials[0].PurityOptions()["18"].Fraction, 1e-9)
}

func TestEnsureDefaultsKeepsExistingVendors(t *testing.T) {
	db := setupDB(t)
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	custom := supplierdomain.Vendor{ID: node.Generate(), Name: "Custom", Endpoint: "https://rates.example.com", Active: false}
	require.NoError(t, db.Create(&custom).Error)

	require.NoError(t, seed.EnsureDefaults(context.Background(), db, node))

	var count int64
	require.NoError(t, db.Model(&supplierdomain.Vendor{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

type fakeKeys struct {
	raw []string
}

func (f *fakeKeys) EnsureBootstrap(ctx context.Context, raw string) (bool, error) {
	_ = ctx
	f.raw = append(f.raw, raw)
	return len(f.raw) == 1, nil
}

func TestEnsureBootstrapKey(t *testing.T) {
	keys := &fakeKeys{}
	ctx := context.Background()

	created, err := seed.EnsureBootstrapKey(ctx, keys, "")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Empty(t, keys.raw)

	created, err = seed.EnsureBootstrapKey(ctx, keys, "kt_live_key_bootstrap")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = seed.EnsureBootstrapKey(ctx, keys, "kt_live_key_bootstrap")
	require.NoError(t, err)
	assert.False(t, created)
}
