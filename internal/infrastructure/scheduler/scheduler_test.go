package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type funcJob struct {
	name string
	fn   func(ctx context.Context) error
}

func (j funcJob) Name() string                  { return j.name }
func (j funcJob) Run(ctx context.Context) error { return j.fn(ctx) }

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := NewScheduler(SchedulerConfig{Enabled: true, JobTimeout: time.Second}, zap.NewNop())
	t.Cleanup(func() { _ = s.Stop(context.Background()) })
	return s
}

func TestScheduler_Register(t *testing.T) {
	tests := []struct {
		name    string
		spec    string
		wantErr error
	}{
		{name: "standard spec", spec: "0 1 * * *"},
		{name: "descriptor", spec: "@daily"},
		{name: "every", spec: "@every 1h"},
		{name: "garbage", spec: "not a cron", wantErr: ErrInvalidConfig},
		{name: "seconds field rejected", spec: "0 0 1 * * *", wantErr: ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScheduler(t)
			err := s.Register(tt.spec, funcJob{name: "job", fn: func(context.Context) error { return nil }})
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	t.Run("duplicate name", func(t *testing.T) {
		s := newTestScheduler(t)
		job := funcJob{name: "job", fn: func(context.Context) error { return nil }}
		require.NoError(t, s.Register("@daily", job))
		assert.ErrorIs(t, s.Register("@hourly", job), ErrDuplicateJob)
	})
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler(t)

	var calls atomic.Int32
	require.NoError(t, s.Register("@daily", funcJob{name: "ok", fn: func(ctx context.Context) error {
		calls.Add(1)
		_, hasDeadline := ctx.Deadline()
		assert.True(t, hasDeadline, "job context carries the job timeout")
		return nil
	}}))
	require.NoError(t, s.Register("@daily", funcJob{name: "broken", fn: func(context.Context) error {
		return errors.New("database unavailable")
	}}))

	assert.ErrorIs(t, s.RunNow("ok"), ErrSchedulerNotRunning)
	require.NoError(t, s.Start(context.Background()))

	require.NoError(t, s.RunNow("ok"))
	assert.Equal(t, int32(1), calls.Load())
	run := s.LastRun("ok")
	require.NotNil(t, run)
	assert.Equal(t, JobStatusSuccess, run.Status)
	assert.NotNil(t, run.CompletedAt)

	require.EqualError(t, s.RunNow("broken"), "database unavailable")
	run = s.LastRun("broken")
	require.NotNil(t, run)
	assert.Equal(t, JobStatusFailed, run.Status)
	assert.Equal(t, "database unavailable", run.Error)

	assert.ErrorIs(t, s.RunNow("missing"), ErrJobNotFound)
	assert.Nil(t, s.LastRun("missing"))
}

func TestScheduler_NoOverlap(t *testing.T) {
	s := newTestScheduler(t)
	release := make(chan struct{})
	started := make(chan struct{})
	require.NoError(t, s.Register("@daily", funcJob{name: "slow", fn: func(context.Context) error {
		close(started)
		<-release
		return nil
	}}))
	require.NoError(t, s.Start(context.Background()))

	done := make(chan error, 1)
	go func() { done <- s.RunNow("slow") }()
	<-started

	assert.ErrorIs(t, s.RunNow("slow"), ErrJobAlreadyRunning)
	close(release)
	require.NoError(t, <-done)
}

func TestScheduler_JobTimeout(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Enabled: true, JobTimeout: 20 * time.Millisecond}, zap.NewNop())
	require.NoError(t, s.Register("@daily", funcJob{name: "stuck", fn: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}}))
	require.NoError(t, s.Start(context.Background()))
	defer s.Stop(context.Background())

	assert.ErrorIs(t, s.RunNow("stuck"), context.DeadlineExceeded)
}

func TestScheduler_CronTrigger(t *testing.T) {
	s := newTestScheduler(t)
	var calls atomic.Int32
	require.NoError(t, s.Register("@every 1s", funcJob{name: "tick", fn: func(context.Context) error {
		calls.Add(1)
		return nil
	}}))
	require.NoError(t, s.Start(context.Background()))
	assert.False(t, s.NextRun("tick").IsZero())

	assert.Eventually(t, func() bool { return calls.Load() >= 1 }, 3*time.Second, 50*time.Millisecond)
}

func TestScheduler_Disabled(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, s.Register("@daily", funcJob{name: "job", fn: func(context.Context) error { return nil }}))
	require.NoError(t, s.Start(context.Background()))

	assert.ErrorIs(t, s.RunNow("job"), ErrSchedulerNotRunning)
	assert.NoError(t, s.Stop(context.Background()))
}

func TestScheduler_StopWaitsForRunningJob(t *testing.T) {
	s := NewScheduler(SchedulerConfig{Enabled: true, JobTimeout: time.Second}, zap.NewNop())
	started := make(chan struct{})
	var finished atomic.Bool
	require.NoError(t, s.Register("@daily", funcJob{name: "work", fn: func(context.Context) error {
		close(started)
		time.Sleep(50 * time.Millisecond)
		finished.Store(true)
		return nil
	}}))
	require.NoError(t, s.Start(context.Background()))

	go func() { _ = s.RunNow("work") }()
	<-started

	require.NoError(t, s.Stop(context.Background()))
	assert.True(t, finished.Load())
	assert.NoError(t, s.Stop(context.Background()), "stop is idempotent")
}
