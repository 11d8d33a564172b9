package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Schedule runs the pipeline on a standard five-field cron expression until
// ctx is cancelled. A run still in progress when the next one is due makes
// the scheduler skip that tick.
func (p *Pipeline) Schedule(ctx context.Context, cronExpr string) error {
	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}

	_, err = scheduler.NewJob(
		gocron.CronJob(cronExpr, false),
		gocron.NewTask(func() {
			if _, err := p.Run(ctx); err != nil && ctx.Err() == nil {
				p.logger.Error("scheduled run failed", slog.String("error", err.Error()))
			}
		}),
		gocron.WithName("ingest"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		_ = scheduler.Shutdown()
		return fmt.Errorf("failed to create job: %w", err)
	}

	scheduler.Start()
	p.logger.Info("pipeline scheduled", slog.String("cron", cronExpr))

	<-ctx.Done()
	p.logger.Info("stopping scheduler")
	return scheduler.Shutdown()
}
