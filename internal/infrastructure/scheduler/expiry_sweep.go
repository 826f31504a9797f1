package scheduler

import (
	"context"
	"time"

	appinv "github.com/erp/warehouse/internal/application/inventory"
	"go.uber.org/zap"
)

// ExpirySweepJobName is the registered name of the expiry sweep
const ExpirySweepJobName = "expiry_sweep"

// ExpirySweeper retires expired batches as of a point in time
type ExpirySweeper interface {
	WriteOffExpired(ctx context.Context, asOf time.Time) (*appinv.WriteOffResponse, error)
}

// ExpirySweepJob writes off batches whose expiry date has passed
type ExpirySweepJob struct {
	sweeper ExpirySweeper
	now     func() time.Time
	logger  *zap.Logger
}

// NewExpirySweepJob creates the sweep job. now may be nil to use the wall clock.
func NewExpirySweepJob(sweeper ExpirySweeper, now func() time.Time, logger *zap.Logger) *ExpirySweepJob {
	if now == nil {
		now = time.Now
	}
	return &ExpirySweepJob{sweeper: sweeper, now: now, logger: logger}
}

// Name implements Job
func (j *ExpirySweepJob) Name() string {
	return ExpirySweepJobName
}

// Run sweeps once as of the current time
func (j *ExpirySweepJob) Run(ctx context.Context) error {
	resp, err := j.sweeper.WriteOffExpired(ctx, j.now())
	if err != nil {
		return err
	}
	if resp.BatchCount == 0 {
		j.logger.Debug("No expired batches")
		return nil
	}
	j.logger.Info("Expired batches written off",
		zap.Int("batch_count", resp.BatchCount),
		zap.String("total_quantity", resp.TotalQuantity.String()),
		zap.Time("as_of", resp.AsOf),
	)
	return nil
}
