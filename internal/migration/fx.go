package migration

import (
	"github.com/smallbiznis/certihub/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config, log *zap.Logger) error {
		if !cfg.DBAutoMigrate {
			log.Info("schema migrations skipped, DATABASE_AUTO_MIGRATE is off")
			return nil
		}
		if cfg.DBType != "postgres" {
			log.Warn("schema migrations only run on postgres", zap.String("db_type", cfg.DBType))
			return nil
		}

		sqlDB, err := conn.DB()
		if err != nil {
			return err
		}
		return RunMigrations(sqlDB)
	}),
)
