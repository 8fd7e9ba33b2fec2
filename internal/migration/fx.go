package migration

import (
	"strings"

	"github.com/framehaus/callsheet/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		// Only the postgres deployment path migrates automatically; other
		// dialects are expected to be provisioned out of band.
		if !strings.EqualFold(cfg.DBType, "postgres") {
			log.Named("migration").Info("skipping automatic migrations", zap.String("db_type", cfg.DBType))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
