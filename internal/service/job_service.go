package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"salonbooking/internal/db"
	"salonbooking/internal/repository"
)

type SeedSettings struct {
	Times    []string
	Weekdays []time.Weekday
	Days     int
}

type JobService struct {
	repo   repository.JobStore
	slots  repository.AvailabilityStore
	clock  Clock
	seed   SeedSettings
	logger *zap.Logger
}

func NewJobService(repo repository.JobStore, slots repository.AvailabilityStore, clock Clock, seed SeedSettings, logger *zap.Logger) *JobService {
	return &JobService{repo: repo, slots: slots, clock: clock, seed: seed, logger: logger}
}

// FinishPastAppointments marks confirmed appointments from previous days as
// completed.
func (s *JobService) FinishPastAppointments(ctx context.Context) (int64, error) {
	today := s.clock.Now().Format(db.DateLayout)

	ids, err := s.repo.GetConfirmedAppointmentIDsBefore(ctx, today)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to get past appointments: %w", err)
	}
	if len(ids) == 0 {
		s.logger.Debug("Cron job: no past appointments to finish")
		return 0, nil
	}

	n, err := s.repo.UpdateAppointmentStatuses(ctx, ids, db.AppointmentStatusCompleted)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to update appointment statuses: %w", err)
	}
	s.logger.Info("Cron job: finished past appointments", zap.Int64("count", n))
	return n, nil
}

// SeedSlots opens the configured times on working weekdays from today for
// the configured number of days. Existing slots are left alone.
func (s *JobService) SeedSlots(ctx context.Context) (int, error) {
	workday := make(map[time.Weekday]bool, len(s.seed.Weekdays))
	for _, d := range s.seed.Weekdays {
		workday[d] = true
	}

	start := s.clock.Now()
	var refs []db.SlotRef
	for i := 0; i < s.seed.Days; i++ {
		day := start.AddDate(0, 0, i)
		if !workday[day.Weekday()] {
			continue
		}
		for _, label := range s.seed.Times {
			refs = append(refs, db.SlotRef{Date: day.Format(db.DateLayout), Time: label})
		}
	}

	n, err := s.slots.OpenSlots(ctx, refs)
	if err != nil {
		return 0, fmt.Errorf("cron job: failed to seed slots: %w", err)
	}
	s.logger.Info("Cron job: seeded slots", zap.Int("candidates", len(refs)), zap.Int("opened", n))
	return n, nil
}
