package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/smallbiznis/certihub/internal/clock"
	enrollmentdomain "github.com/smallbiznis/certihub/internal/enrollment/domain"
	"github.com/smallbiznis/certihub/internal/observability/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type fakeEnrollments struct {
	enrollmentdomain.Service

	mu      sync.Mutex
	batches []int
	result  enrollmentdomain.BackfillResult
	err     error
	block   bool
}

func (f *fakeEnrollments) BackfillModules(ctx context.Context, batch int) (enrollmentdomain.BackfillResult, error) {
	f.mu.Lock()
	f.batches = append(f.batches, batch)
	f.mu.Unlock()
	if f.block {
		<-ctx.Done()
		return enrollmentdomain.BackfillResult{}, ctx.Err()
	}
	return f.result, f.err
}

func (f *fakeEnrollments) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
	err      error
}

func (l *fakeLocker) TryLock(_ context.Context, key string, _ time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *fakeLocker) Release(_ context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		l.released = append(l.released, key)
	}
	return nil
}

func newTestScheduler(t *testing.T, svc enrollmentdomain.Service, cfg Config, locker JobLocker) (*Scheduler, *observer.ObservedLogs, *prometheus.Registry) {
	t.Helper()

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	core, logs := observer.New(zap.DebugLevel)
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	p := Params{
		Log:           zap.New(core),
		GenID:         node,
		Clock:         clock.NewFakeClock(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)),
		EnrollmentSvc: svc,
		Config:        cfg,
		Metrics:       m,
		Locker:        locker,
	}
	s, err := New(p)
	require.NoError(t, err)
	return s, logs, reg
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceBackfillsWithConfiguredBatch(t *testing.T) {
	svc := &fakeEnrollments{result: enrollmentdomain.BackfillResult{Scanned: 2, Repaired: 2, Inserted: 6}}
	s, logs, reg := newTestScheduler(t, svc, Config{BatchSize: 25}, nil)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, []int{25}, svc.batches)
	assert.Equal(t, 1, logs.FilterMessage("scheduler.job.start").Len())
	finish := logs.FilterMessage("scheduler.job.finish").All()
	require.Len(t, finish, 1)
	assert.Equal(t, int64(2), finish[0].ContextMap()["processed_count"])
	assert.Equal(t, 1, logs.FilterMessage("scheduler.backfill.result").Len())
	series, err := promtestutil.GatherAndCount(reg, "certihub_scheduler_job_runs_total")
	require.NoError(t, err)
	assert.Equal(t, 1, series)
}

func TestRunOnceReturnsJobError(t *testing.T) {
	svc := &fakeEnrollments{err: errors.New("database unavailable")}
	s, logs, _ := newTestScheduler(t, svc, Config{}, nil)

	err := s.RunOnce(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), jobModuleBackfill)
	assert.Equal(t, 1, logs.FilterMessage("module backfill failed").Len())
	assert.Equal(t, 1, logs.FilterMessage("scheduler.job.finish").FilterLevelExact(zap.WarnLevel).Len())
}

func TestRunJobTimeoutIsSoft(t *testing.T) {
	svc := &fakeEnrollments{block: true}
	s, logs, _ := newTestScheduler(t, svc, Config{JobTimeout: 5 * time.Millisecond}, nil)

	err := s.RunOnce(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 1, logs.FilterMessage("job timed out").Len())
}

func TestFailedEnrollmentsCountAsErrors(t *testing.T) {
	svc := &fakeEnrollments{result: enrollmentdomain.BackfillResult{Scanned: 3, Repaired: 1, Failed: 2}}
	s, logs, _ := newTestScheduler(t, svc, Config{}, nil)

	require.NoError(t, s.RunOnce(context.Background()))

	finish := logs.FilterMessage("scheduler.job.finish").All()
	require.Len(t, finish, 1)
	assert.Equal(t, zap.WarnLevel, finish[0].Level)
	assert.Equal(t, int64(2), finish[0].ContextMap()["error_count"])
}

func TestLockedJobIsSkipped(t *testing.T) {
	svc := &fakeEnrollments{}
	locker := &fakeLocker{held: map[string]string{jobModuleBackfill: "other-replica"}}
	s, _, _ := newTestScheduler(t, svc, Config{}, locker)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, 0, svc.calls())
}

func TestLockIsReleasedAfterRun(t *testing.T) {
	svc := &fakeEnrollments{}
	locker := &fakeLocker{}
	s, _, _ := newTestScheduler(t, svc, Config{}, locker)

	require.NoError(t, s.RunOnce(context.Background()))
	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, 2, svc.calls())
	assert.Equal(t, []string{jobModuleBackfill, jobModuleBackfill}, locker.released)
}

func TestLockErrorSkipsRun(t *testing.T) {
	svc := &fakeEnrollments{}
	s, logs, _ := newTestScheduler(t, svc, Config{}, &fakeLocker{err: errors.New("dial tcp: refused")})

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, 0, svc.calls())
	assert.Equal(t, 1, logs.FilterMessage("job lock unavailable").Len())
}

func TestDisabledJobDoesNotRun(t *testing.T) {
	svc := &fakeEnrollments{}
	s, _, _ := newTestScheduler(t, svc, Config{EnabledJobs: []string{"something_else"}}, nil)

	require.NoError(t, s.RunOnce(context.Background()))

	assert.Equal(t, 0, svc.calls())
}

func TestRunForeverStopsOnCancel(t *testing.T) {
	svc := &fakeEnrollments{}
	s, _, _ := newTestScheduler(t, svc, Config{RunInterval: time.Hour}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.RunForever(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool { return svc.calls() == 1 }, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunForever did not return after cancel")
	}
}

func TestConfigDefaults(t *testing.T) {
	cfg := Config{}.withDefaults()

	assert.Equal(t, DefaultConfig(), cfg)
}
