package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/karat/internal/apikey/domain"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// EnsureDefaults seeds the mock vendor feed when no vendor exists, and every
// default material whose code is not yet taken.
func EnsureDefaults(ctx context.Context, db *gorm.DB, node *snowflake.Node) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	if node == nil {
		return errors.New("seed id generator is required")
	}

	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureDefaultVendorTx(ctx, tx, node); err != nil {
			return err
		}
		return ensureDefaultMaterialsTx(ctx, tx, node)
	})
}

func ensureDefaultVendorTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	var count int64
	if err := tx.WithContext(ctx).Model(&supplierdomain.Vendor{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	now := time.Now().UTC()
	vendor := supplierdomain.DefaultVendor()
	vendor.ID = node.Generate()
	vendor.CreatedAt = now
	vendor.UpdatedAt = now
	return tx.WithContext(ctx).Create(&vendor).Error
}

func ensureDefaultMaterialsTx(ctx context.Context, tx *gorm.DB, node *snowflake.Node) error {
	now := time.Now().UTC()
	for _, m := range materialdomain.DefaultMaterials() {
		m.ID = node.Generate()
		m.Code = materialdomain.CodeFor(m.Name)
		m.CreatedAt = now
		m.UpdatedAt = now
		if err := tx.WithContext(ctx).
			Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "code"}}, DoNothing: true}).
			Create(&m).Error; err != nil {
			return err
		}
	}
	return nil
}

// BootstrapKeyProvider is the slice of the api key service the seed needs.
type BootstrapKeyProvider interface {
	EnsureBootstrap(ctx context.Context, raw string) (bool, error)
}

// EnsureBootstrapKey stores raw as an admin key. An empty raw is a no-op.
func EnsureBootstrapKey(ctx context.Context, keys BootstrapKeyProvider, raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	if keys == nil {
		return false, errors.New("seed api key service is required")
	}
	return keys.EnsureBootstrap(ctx, raw)
}

var _ BootstrapKeyProvider = apikeydomain.Service(nil)
