package cleanup

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Job removes pending purchase rows whose checkout marker expired long
// ago and was never confirmed by the payment provider.
type Job struct {
	purchases stalePurchaseStore
	retention time.Duration
	now       func() time.Time
	logger    *zap.Logger
}

type stalePurchaseStore interface {
	DeleteStalePending(ctx context.Context, cutoff time.Time) (int64, error)
}

func NewPendingPurchaseJob(purchases stalePurchaseStore, retention time.Duration, logger *zap.Logger) *Job {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Job{
		purchases: purchases,
		retention: retention,
		now:       time.Now,
		logger:    logger,
	}
}

func (j *Job) Run(ctx context.Context) error {
	if j.purchases == nil {
		return nil
	}

	cutoff := j.now().Add(-j.retention)
	rows, err := j.purchases.DeleteStalePending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("delete stale pending purchases: %w", err)
	}
	if rows > 0 {
		j.logger.Info("cleanup stale pending purchases completed", zap.Int64("deleted", rows))
	}
	return nil
}

// RunPeriodic runs once immediately and then on every tick until the
// context is cancelled. Sweep failures are logged and do not stop the
// loop.
func (j *Job) RunPeriodic(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Hour
	}

	if err := j.Run(ctx); err != nil {
		j.logger.Warn("cleanup sweep failed", zap.Error(err))
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := j.Run(ctx); err != nil {
				j.logger.Warn("cleanup sweep failed", zap.Error(err))
			}
		}
	}
}
