package scheduler

import (
	"context"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/certihub/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("scheduler",
	fx.Provide(ProvideConfig),
	fx.Provide(ProvideLocker),
	fx.Provide(New),
	fx.Invoke(NewScheduler),
)

// ProvideLocker returns a redis backed job lock when a redis client is
// configured. A single replica deployment runs without one.
func ProvideLocker(client *redis.Client, log *zap.Logger) JobLocker {
	if client == nil {
		log.Info("scheduler lock disabled, REDIS_ADDR not set")
		return nil
	}
	return NewRedisLocker(client)
}

func NewScheduler(lc fx.Lifecycle, cfg config.Config, sched *Scheduler) {
	if !cfg.SchedulerEnabled {
		return
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ctx, cancel := context.WithCancel(context.Background())

			go sched.RunForever(ctx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
