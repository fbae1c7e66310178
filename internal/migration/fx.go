package migration

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	apikeydomain "github.com/smallbiznis/karat/internal/apikey/domain"
	"github.com/smallbiznis/karat/internal/config"
	"github.com/smallbiznis/karat/internal/seed"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, node *snowflake.Node, keys apikeydomain.Service, log *zap.Logger) error {
		if strings.EqualFold(strings.TrimSpace(cfg.DBType), "postgres") {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else if err := AutoMigrateModels(conn); err != nil {
			return err
		}

		ctx := context.Background()
		if cfg.Bootstrap.SeedDefaults {
			if err := seed.EnsureDefaults(ctx, conn, node); err != nil {
				return err
			}
		}

		created, err := seed.EnsureBootstrapKey(ctx, keys, cfg.Bootstrap.AdminAPIKey)
		if err != nil {
			return err
		}
		if created {
			log.Info("bootstrap admin api key stored")
		}
		return nil
	}),
)
