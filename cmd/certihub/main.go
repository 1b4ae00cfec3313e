package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/admission"
	"github.com/smallbiznis/certihub/internal/audit"
	"github.com/smallbiznis/certihub/internal/authorization"
	"github.com/smallbiznis/certihub/internal/cache"
	"github.com/smallbiznis/certihub/internal/catalog"
	"github.com/smallbiznis/certihub/internal/certificate"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/config"
	"github.com/smallbiznis/certihub/internal/enrollment"
	"github.com/smallbiznis/certihub/internal/migration"
	"github.com/smallbiznis/certihub/internal/observability"
	"github.com/smallbiznis/certihub/internal/payment"
	"github.com/smallbiznis/certihub/internal/ratelimit"
	"github.com/smallbiznis/certihub/internal/scheduler"
	"github.com/smallbiznis/certihub/internal/server"
	"github.com/smallbiznis/certihub/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		// Core Infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		cache.Module,

		// Functional Domains
		audit.Module,
		authorization.Module,
		catalog.Module,
		admission.Module,
		enrollment.Module,
		payment.Module,
		certificate.Module,

		ratelimit.Module,
		scheduler.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
