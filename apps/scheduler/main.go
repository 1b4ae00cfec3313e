// Command scheduler runs only the background jobs, for deployments that
// scale the HTTP API separately.
package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/admission"
	"github.com/smallbiznis/certihub/internal/audit"
	"github.com/smallbiznis/certihub/internal/cache"
	"github.com/smallbiznis/certihub/internal/catalog"
	"github.com/smallbiznis/certihub/internal/clock"
	"github.com/smallbiznis/certihub/internal/config"
	"github.com/smallbiznis/certihub/internal/enrollment"
	"github.com/smallbiznis/certihub/internal/observability"
	"github.com/smallbiznis/certihub/internal/scheduler"
	"github.com/smallbiznis/certihub/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,

		// Domain services required by scheduler
		audit.Module,
		catalog.Module,
		admission.Module,
		enrollment.Module,
		scheduler.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.NodeID)
}
