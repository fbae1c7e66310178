package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	alertdomain "github.com/smallbiznis/karat/internal/alert/domain"
	apikeydomain "github.com/smallbiznis/karat/internal/apikey/domain"
	auditdomain "github.com/smallbiznis/karat/internal/audit/domain"
	catalogdomain "github.com/smallbiznis/karat/internal/catalog/domain"
	inventorydomain "github.com/smallbiznis/karat/internal/inventory/domain"
	materialdomain "github.com/smallbiznis/karat/internal/material/domain"
	pricingdomain "github.com/smallbiznis/karat/internal/pricing/domain"
	ratedomain "github.com/smallbiznis/karat/internal/rate/domain"
	supplierdomain "github.com/smallbiznis/karat/internal/supplier/domain"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// RunMigrations applies the embedded postgres schema.
func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}

// Models lists every persisted type, parents first.
func Models() []any {
	return []any{
		&supplierdomain.Vendor{},
		&materialdomain.Material{},
		&inventorydomain.Record{},
		&inventorydomain.OrderDeduction{},
		&ratedomain.RateSnapshot{},
		&ratedomain.CurrentRate{},
		&alertdomain.Subscription{},
		&auditdomain.AuditLog{},
		&pricingdomain.Rule{},
		&pricingdomain.Setting{},
		&catalogdomain.CatalogProduct{},
		&apikeydomain.APIKey{},
	}
}

// AutoMigrateModels builds the schema through GORM for engines without SQL
// migrations (mysql, sqlite).
func AutoMigrateModels(db *gorm.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
