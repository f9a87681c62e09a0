package helper

import (
	"context"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

// StartPurgeScheduler runs purge on the given cron expression until the scheduler is shut down.
func StartPurgeScheduler(expr string, purge func(ctx context.Context) (int64, error), logger *zap.Logger) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler(gocron.WithLocation(time.Local))
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if _, err := purge(ctx); err != nil {
				logger.Error("notification purge failed", zap.Error(err))
			}
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = s.Shutdown()
		return nil, err
	}

	s.Start()
	return s, nil
}
