// internal/pkg/scheduler/scheduler.go
package scheduler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Job is one recurring task.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error

	running sync.Mutex
}

// Scheduler runs registered jobs on fixed intervals until its context is
// cancelled. A tick that arrives while the previous run of the same job is
// still in flight is skipped rather than stacked.
type Scheduler struct {
	jobs   []*Job
	logger *zap.Logger
	wg     sync.WaitGroup
}

func New(logger *zap.Logger) *Scheduler {
	return &Scheduler{logger: logger}
}

// Add registers a job. Must be called before Start.
func (s *Scheduler) Add(name string, interval time.Duration, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, &Job{Name: name, Interval: interval, Run: run})
}

// Start launches one goroutine per job and returns immediately.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(ctx, job)
	}
}

// Wait blocks until every job loop has exited after context cancellation.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func (s *Scheduler) loop(ctx context.Context, job *Job) {
	defer s.wg.Done()

	s.logger.Info("scheduler job registered",
		zap.String("job", job.Name),
		zap.Duration("interval", job.Interval),
	)

	for {
		select {
		case <-time.After(job.Interval):
			s.runOnce(ctx, job)
		case <-ctx.Done():
			s.logger.Info("scheduler job stopped", zap.String("job", job.Name))
			return
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context, job *Job) {
	if !job.running.TryLock() {
		s.logger.Warn("previous run still in flight, skipping tick", zap.String("job", job.Name))
		return
	}
	defer job.running.Unlock()

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Error("scheduler job failed",
			zap.String("job", job.Name),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("scheduler job finished",
		zap.String("job", job.Name),
		zap.Duration("duration", time.Since(start)),
	)
}
