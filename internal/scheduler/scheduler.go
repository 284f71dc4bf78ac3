// Package scheduler runs background jobs on a cron schedule, currently just
// the periodic price refresh that keeps unrealised PnL up to date between
// manual refreshes.
package scheduler

import (
	"context"

	"github.com/robfig/cron/v3"

	"tradetracker/internal/app"
	"tradetracker/internal/ports"
)

// Scheduler manages background jobs.
type Scheduler struct {
	cron   *cron.Cron
	logger ports.Logger
}

// New creates a new scheduler.
func New(logger ports.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(),
		logger: logger,
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info(context.Background(), "Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info(context.Background(), "Scheduler stopped")
}

// AddPriceRefresh registers the periodic refresh of every trade's current
// price. Schedule accepts standard cron expressions or @every syntax.
func (s *Scheduler) AddPriceRefresh(schedule string, service *app.TradeService) error {
	_, err := s.cron.AddFunc(schedule, func() {
		ctx := context.Background()
		updated, err := service.RefreshAllPrices(ctx)
		if err != nil {
			s.logger.Error(ctx, err, "Scheduled price refresh failed")
			return
		}
		s.logger.Info(ctx, "Scheduled price refresh completed", map[string]interface{}{"updated": updated})
	})
	if err != nil {
		return err
	}

	s.logger.Info(context.Background(), "Price refresh job registered", map[string]interface{}{"schedule": schedule})
	return nil
}
