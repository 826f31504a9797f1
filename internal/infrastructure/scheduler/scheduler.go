// Package scheduler runs periodic maintenance jobs such as the expiry sweep
// on cron schedules.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus represents the outcome of a job run
type JobStatus string

const (
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is a unit of periodic work
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

// JobRun describes the latest run of a job
type JobRun struct {
	Job         string
	Status      JobStatus
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

func (r *JobRun) complete(err error) {
	now := time.Now()
	r.CompletedAt = &now
	if err != nil {
		r.Status = JobStatusFailed
		r.Error = err.Error()
		return
	}
	r.Status = JobStatusSuccess
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled    bool
	JobTimeout time.Duration
	Location   *time.Location
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:    true,
		JobTimeout: 10 * time.Minute,
		Location:   time.UTC,
	}
}

type entry struct {
	job     Job
	spec    string
	id      cron.EntryID
	running atomic.Bool

	mu   sync.Mutex
	last *JobRun
}

// Scheduler triggers registered jobs on their cron specs. A job never
// overlaps with itself, whether triggered by cron or by RunNow.
type Scheduler struct {
	config SchedulerConfig
	logger *zap.Logger
	cron   *cron.Cron

	mu        sync.Mutex
	entries   map[string]*entry
	isRunning bool
	baseCtx   context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewScheduler creates a new scheduler instance
func NewScheduler(config SchedulerConfig, logger *zap.Logger) *Scheduler {
	if config.Location == nil {
		config.Location = time.UTC
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = DefaultSchedulerConfig().JobTimeout
	}
	logger = logger.Named("scheduler")
	cronLog := cronLogger{logger.Sugar()}
	return &Scheduler{
		config: config,
		logger: logger,
		cron: cron.New(
			cron.WithLocation(config.Location),
			cron.WithLogger(cronLog),
			cron.WithChain(cron.Recover(cronLog)),
		),
		entries: make(map[string]*entry),
		baseCtx: context.Background(),
	}
}

// Register adds job under a standard five-field cron spec or a descriptor
// such as "@daily" or "@every 1h"
func (s *Scheduler) Register(spec string, job Job) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("%w: job %s: %v", ErrInvalidConfig, job.Name(), err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[job.Name()]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, job.Name())
	}
	e := &entry{job: job, spec: spec}
	id, err := s.cron.AddFunc(spec, func() { _ = s.run(e) })
	if err != nil {
		return fmt.Errorf("%w: job %s: %v", ErrInvalidConfig, job.Name(), err)
	}
	e.id = id
	s.entries[job.Name()] = e

	s.logger.Info("Job registered",
		zap.String("job", job.Name()),
		zap.String("spec", spec),
	)
	return nil
}

// Start starts triggering jobs. It is a no-op when the scheduler is disabled.
func (s *Scheduler) Start(ctx context.Context) error {
	if !s.config.Enabled {
		s.logger.Info("Scheduler disabled")
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.isRunning {
		return nil
	}
	s.isRunning = true
	s.baseCtx, s.cancel = context.WithCancel(context.WithoutCancel(ctx))
	s.cron.Start()

	s.logger.Info("Scheduler started",
		zap.Int("jobs", len(s.entries)),
		zap.Duration("job_timeout", s.config.JobTimeout),
		zap.String("location", s.config.Location.String()),
	)
	return nil
}

// Stop stops triggering jobs and waits for running ones until ctx is done,
// after which their contexts are cancelled
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	cancel := s.cancel
	s.mu.Unlock()

	cronDone := s.cron.Stop()
	done := make(chan struct{})
	go func() {
		<-cronDone.Done()
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		s.logger.Info("Scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		cancel()
		s.logger.Warn("Scheduler stop timed out, running jobs cancelled")
		return ctx.Err()
	}
}

// RunNow runs the named job synchronously
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	e, ok := s.entries[name]
	running := s.isRunning
	s.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if !running {
		return ErrSchedulerNotRunning
	}
	return s.run(e)
}

// LastRun returns the latest run of the named job, or nil if it never ran
func (s *Scheduler) LastRun(name string) *JobRun {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.last == nil {
		return nil
	}
	run := *e.last
	return &run
}

// NextRun returns when the named job fires next, or the zero time when the
// scheduler is not running
func (s *Scheduler) NextRun(name string) time.Time {
	s.mu.Lock()
	e, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}
	}
	return s.cron.Entry(e.id).Next
}

func (s *Scheduler) run(e *entry) error {
	if !e.running.CompareAndSwap(false, true) {
		s.logger.Warn("Job still running, skipping trigger", zap.String("job", e.job.Name()))
		return ErrJobAlreadyRunning
	}
	defer e.running.Store(false)

	s.mu.Lock()
	base := s.baseCtx
	s.wg.Add(1)
	s.mu.Unlock()
	defer s.wg.Done()

	run := &JobRun{Job: e.job.Name(), Status: JobStatusRunning, StartedAt: time.Now()}
	e.mu.Lock()
	e.last = run
	e.mu.Unlock()

	s.logger.Info("Job started", zap.String("job", e.job.Name()))

	ctx, cancel := context.WithTimeout(base, s.config.JobTimeout)
	defer cancel()
	err := e.job.Run(ctx)

	e.mu.Lock()
	run.complete(err)
	e.mu.Unlock()

	if err != nil {
		s.logger.Error("Job failed",
			zap.String("job", e.job.Name()),
			zap.Duration("duration", time.Since(run.StartedAt)),
			zap.Error(err),
		)
		return err
	}
	s.logger.Info("Job completed successfully",
		zap.String("job", e.job.Name()),
		zap.Duration("duration", time.Since(run.StartedAt)),
	)
	return nil
}

// cronLogger adapts zap to the logger interface of robfig/cron
type cronLogger struct {
	s *zap.SugaredLogger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.s.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.s.Errorw(msg, append(keysAndValues, "error", err)...)
}
