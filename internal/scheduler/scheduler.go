// Package scheduler runs periodic maintenance jobs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bluerally/buooy-backend/pkg/metrics"
)

const (
	DeactivateExpiredJob = "deactivate_expired_parties"

	jobTimeout = 5 * time.Minute
)

// JobFunc runs one job and reports how many rows it changed.
type JobFunc func(ctx context.Context) (int64, error)

type Scheduler struct {
	cron    *cron.Cron
	log     *zap.Logger
	metrics *metrics.Metrics

	mu   sync.Mutex
	jobs map[string]JobFunc
}

// New creates a scheduler evaluating cron specs in loc. m may be nil.
func New(loc *time.Location, log *zap.Logger, m *metrics.Metrics) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:    cron.New(cron.WithLocation(loc)),
		log:     log.Named("scheduler"),
		metrics: m,
		jobs:    make(map[string]JobFunc),
	}
}

// Register schedules fn under name. Overlapping runs of the same job are
// skipped.
func (s *Scheduler) Register(name, spec string, fn JobFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.jobs[name]; ok {
		return fmt.Errorf("job %q already registered", name)
	}
	job := cron.NewChain(cron.SkipIfStillRunning(cron.DiscardLogger)).Then(cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		defer cancel()
		_, _ = s.run(ctx, name, fn)
	}))
	if _, err := s.cron.AddJob(spec, job); err != nil {
		return fmt.Errorf("invalid cron spec %q for %s: %w", spec, name, err)
	}
	s.jobs[name] = fn
	s.log.Info("job registered", zap.String("job", name), zap.String("spec", spec))
	return nil
}

// RunNow executes a registered job immediately in the caller's goroutine.
func (s *Scheduler) RunNow(ctx context.Context, name string) (int64, error) {
	s.mu.Lock()
	fn, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return 0, fmt.Errorf("unknown job %q", name)
	}
	return s.run(ctx, name, fn)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info("scheduler started", zap.Int("jobs", len(s.cron.Entries())))
}

// Stop waits for running jobs or until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler stopped")
	case <-ctx.Done():
		s.log.Warn("scheduler stop timed out")
	}
}

func (s *Scheduler) run(ctx context.Context, name string, fn JobFunc) (int64, error) {
	start := time.Now()
	affected, err := fn(ctx)
	elapsed := time.Since(start)

	if s.metrics != nil {
		s.metrics.RecordJob(name, elapsed, affected, err == nil)
	}
	if err != nil {
		s.log.Error("job failed", zap.String("job", name), zap.Duration("elapsed", elapsed), zap.Error(err))
		return affected, err
	}
	s.log.Info("job finished", zap.String("job", name), zap.Int64("affected", affected), zap.Duration("elapsed", elapsed))
	return affected, nil
}
