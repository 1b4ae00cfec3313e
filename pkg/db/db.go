package db

import (
	"context"
	"time"

	"github.com/smallbiznis/certihub/internal/config"
	obslogger "github.com/smallbiznis/certihub/internal/observability/logger"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("database",
	fx.Provide(Dialect),
	fx.Provide(New),
)

type Params struct {
	fx.In

	Lifecycle fx.Lifecycle
	Config    config.Config
	Dialector gorm.Dialector
	Log       *zap.Logger
}

// New opens the connection pool, retrying while the database comes up.
func New(p Params) (*gorm.DB, error) {
	log := p.Log.Named("database")

	var (
		conn *gorm.DB
		err  error
	)
	for attempt := 1; attempt <= 5; attempt++ {
		conn, err = Open(p.Dialector, obslogger.NewGormLogger(p.Log, p.Config.Debug()))
		if err == nil {
			break
		}
		log.Warn("database not ready, retrying", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, err
	}

	if err := conn.Use(otelgorm.NewPlugin()); err != nil {
		return nil, err
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxIdleConns(p.Config.DBMaxIdleConn)
	sqlDB.SetMaxOpenConns(p.Config.DBMaxOpenConn)
	sqlDB.SetConnMaxLifetime(time.Duration(p.Config.DBConnMaxLifetime) * time.Second)
	sqlDB.SetConnMaxIdleTime(time.Duration(p.Config.DBConnMaxIdleTime) * time.Second)

	p.Lifecycle.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			log.Info("closing connection pool")
			return sqlDB.Close()
		},
	})

	log.Info("database connection configured", zap.String("type", p.Config.DBType))
	return conn, nil
}

// Open creates a gorm handle with the shared settings used by the service and tests.
func Open(dialector gorm.Dialector, logger *obslogger.GormLogger) (*gorm.DB, error) {
	cfg := &gorm.Config{
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	}
	if logger != nil {
		cfg.Logger = logger
	}
	return gorm.Open(dialector, cfg)
}
