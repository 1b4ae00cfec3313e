package db

import (
	"fmt"

	"github.com/smallbiznis/certihub/internal/config"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Dialect resolves DATABASE_TYPE. Only engines with partial unique indexes
// and INSERT ... ON CONFLICT are accepted: the one-active-enrollment guard
// and idempotent payment upserts depend on both.
func Dialect(cfg config.Config) (gorm.Dialector, error) {
	switch cfg.DBType {
	case "postgres":
		return postgres.Open(PostgresDSN(cfg)), nil
	case "sqlite":
		return sqlite.Open(cfg.DBName + ".db"), nil
	case "mysql":
		return nil, fmt.Errorf("database type mysql is not supported: it has no partial unique indexes or ON CONFLICT upserts")
	default:
		return nil, fmt.Errorf("unsupported %s type", cfg.DBType)
	}
}

func PostgresDSN(cfg config.Config) string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=UTC",
		cfg.DBHost,
		cfg.DBUser,
		cfg.DBPassword,
		cfg.DBName,
		cfg.DBPort,
		cfg.DBSSLMode,
	)
}
