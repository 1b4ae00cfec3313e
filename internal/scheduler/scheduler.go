package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/certihub/internal/clock"
	enrollmentdomain "github.com/smallbiznis/certihub/internal/enrollment/domain"
	"github.com/smallbiznis/certihub/internal/observability/metrics"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const jobModuleBackfill = "module_backfill"

var ErrInvalidConfig = errors.New("scheduler: invalid config")

type Params struct {
	fx.In

	Log           *zap.Logger
	GenID         *snowflake.Node
	Clock         clock.Clock
	EnrollmentSvc enrollmentdomain.Service
	Config        Config           `optional:"true"`
	Locker        JobLocker        `optional:"true"`
	Metrics       *metrics.Metrics `optional:"true"`
}

type Scheduler struct {
	log           *zap.Logger
	cfg           Config
	genID         *snowflake.Node
	clock         clock.Clock
	enrollmentSvc enrollmentdomain.Service
	locker        JobLocker
	metrics       *metrics.Metrics
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.EnrollmentSvc == nil {
		return nil, ErrInvalidConfig
	}
	return &Scheduler{
		log:           p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:           p.Config.withDefaults(),
		genID:         p.GenID,
		clock:         p.Clock,
		enrollmentSvc: p.EnrollmentSvc,
		locker:        p.Locker,
		metrics:       p.Metrics,
	}, nil
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	batchSize int,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name, batchSize)
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)

	release, acquired, err := s.acquire(ctx, name)
	if err != nil {
		log.Warn("job lock unavailable", zap.Error(err))
		return nil
	}
	if !acquired {
		log.Debug("job held by another replica")
		return nil
	}
	defer release()

	if owner {
		s.logJobStart(ctx, run)
	}

	err = fn(ctx)
	s.metrics.RecordJob(name, s.clock.Now().Sub(start), err)
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// deadline is a soft timeout, the next tick picks up the remainder
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

func (s *Scheduler) acquire(ctx context.Context, name string) (func(), bool, error) {
	if s.locker == nil {
		return func() {}, true, nil
	}
	token, ok, err := s.locker.TryLock(ctx, name, s.cfg.LockTTL)
	if err != nil || !ok {
		return nil, false, err
	}
	return func() {
		// ctx may already be past its deadline here
		releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, name, token); err != nil {
			s.log.Warn("job lock release failed", zap.String("job", name), zap.Error(err))
		}
	}, true, nil
}

func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error

	jobs := []struct {
		Name    string
		Enabled bool
		Run     func(context.Context) error
	}{
		{jobModuleBackfill, s.isJobEnabled(jobModuleBackfill), func(ctx context.Context) error {
			return s.runJob(ctx, jobModuleBackfill, s.cfg.BatchSize, s.cfg.JobTimeout, s.ModuleBackfillJob)
		}},
	}

	for _, job := range jobs {
		if job.Enabled {
			err = errors.Join(err, job.Run(parent))
		}
	}

	return err
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}

// ModuleBackfillJob repairs enrollments whose module progress rows were not
// written when they were created.
func (s *Scheduler) ModuleBackfillJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, jobModuleBackfill, s.cfg.BatchSize)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	result, err := s.enrollmentSvc.BackfillModules(ctx, s.cfg.BatchSize)
	if err != nil {
		s.logSchedulerError(ctx, run, "module backfill failed", err)
		return err
	}
	run.AddProcessed(result.Repaired)
	run.AddErrors(result.Failed)
	if result.Scanned > 0 {
		s.logger(ctx).Info("scheduler.backfill.result",
			zap.Int("scanned", result.Scanned),
			zap.Int("repaired", result.Repaired),
			zap.Int64("inserted", result.Inserted),
			zap.Int("failed", result.Failed),
		)
	}
	return nil
}
