package app

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Jobs is the maintenance work the scheduler runs.
type Jobs interface {
	SeedSlots(ctx context.Context) (int, error)
	FinishPastAppointments(ctx context.Context) (int64, error)
}

// Scheduler runs slot seeding and appointment finishing on cron specs.
type Scheduler struct {
	cron   *cron.Cron
	jobs   Jobs
	logger *zap.Logger
	ctx    context.Context
}

func NewScheduler(jobs Jobs, location *time.Location, logger *zap.Logger) *Scheduler {
	if location == nil {
		location = time.Local
	}
	return &Scheduler{
		cron:   cron.New(cron.WithLocation(location), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		jobs:   jobs,
		logger: logger,
	}
}

// Start seeds slots once, registers both jobs and starts the cron loop.
func (s *Scheduler) Start(ctx context.Context, seedSpec, finishSpec string) error {
	s.ctx = ctx
	s.logger.Info("Starting background scheduler", zap.String("seed", seedSpec), zap.String("finish", finishSpec))

	if _, err := s.cron.AddFunc(seedSpec, s.seed); err != nil {
		return fmt.Errorf("schedule seed job: %w", err)
	}
	if _, err := s.cron.AddFunc(finishSpec, s.finish); err != nil {
		return fmt.Errorf("schedule finish job: %w", err)
	}

	s.seed()
	s.finish()
	s.cron.Start()
	return nil
}

// Stop stops scheduling and waits for running jobs.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) seed() {
	if _, err := s.jobs.SeedSlots(s.ctx); err != nil {
		s.logger.Error("Failed to seed slots", zap.Error(err))
	}
}

func (s *Scheduler) finish() {
	if _, err := s.jobs.FinishPastAppointments(s.ctx); err != nil {
		s.logger.Error("Failed to finish past appointments", zap.Error(err))
	}
}
