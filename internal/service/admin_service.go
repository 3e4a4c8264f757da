package service

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"salonbooking/internal/db"
	"salonbooking/internal/entities"
	apperr "salonbooking/internal/errors"
	"salonbooking/internal/repository"
	"salonbooking/internal/utils"
)

type AdminService struct {
	slots        repository.AvailabilityStore
	appointments repository.AppointmentStore
	coupons      *CouponLedger
	logger       *zap.Logger
}

func NewAdminService(slots repository.AvailabilityStore, appointments repository.AppointmentStore, coupons *CouponLedger, logger *zap.Logger) *AdminService {
	return &AdminService{slots: slots, appointments: appointments, coupons: coupons, logger: logger}
}

func (s *AdminService) ListAppointments(ctx context.Context, rng db.DateRange) ([]db.Appointment, error) {
	return s.appointments.List(ctx, rng)
}

func (s *AdminService) ListSlots(ctx context.Context, rng db.DateRange) ([]db.Slot, error) {
	return repository.Collect(s.slots.ListSlots(ctx, rng))
}

func (s *AdminService) OpenSlots(ctx context.Context, refs []db.SlotRef) (int, error) {
	n, err := s.slots.OpenSlots(ctx, refs)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Opened slots", zap.Int("requested", len(refs)), zap.Int("opened", n))
	return n, nil
}

func (s *AdminService) CloseSlot(ctx context.Context, ref db.SlotRef) error {
	return s.slots.CloseSlot(ctx, ref)
}

// Calendar counts open and booked slots and appointments per day of month
// ("2006-01"). Days with nothing scheduled are omitted.
func (s *AdminService) Calendar(ctx context.Context, month string) (*entities.Calendar, error) {
	from, to, err := utils.MonthRange(month)
	if err != nil {
		return nil, apperr.Validation("month", "must be formatted YYYY-MM")
	}
	rng := db.DateRange{From: from, To: to}

	var (
		slots        []db.Slot
		appointments []db.Appointment
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		slots, err = repository.Collect(s.slots.ListSlots(gctx, rng))
		return err
	})
	g.Go(func() error {
		var err error
		appointments, err = s.appointments.List(gctx, rng)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build calendar: %w", err)
	}

	days := make(map[string]*entities.CalendarDay)
	var order []string
	day := func(date string) *entities.CalendarDay {
		d, ok := days[date]
		if !ok {
			d = &entities.CalendarDay{Date: date}
			days[date] = d
			order = append(order, date)
		}
		return d
	}
	for _, slot := range slots {
		if slot.Status == db.SlotStatusBooked {
			day(slot.Date).Booked++
		} else {
			day(slot.Date).Open++
		}
	}
	for _, a := range appointments {
		if a.Status != db.AppointmentStatusCanceled {
			day(a.Date).Appointments++
		}
	}

	cal := &entities.Calendar{Month: month, Days: make([]entities.CalendarDay, 0, len(order))}
	slices.Sort(order)
	for _, date := range order {
		cal.Days = append(cal.Days, *days[date])
	}
	return cal, nil
}

// CancelAppointment marks a confirmed appointment canceled, frees its slot
// and withdraws the reward coupon it was given if nobody used it yet.
func (s *AdminService) CancelAppointment(ctx context.Context, id string) (*db.Appointment, error) {
	a, err := s.appointments.Transition(ctx, id, db.AppointmentStatusConfirmed, db.AppointmentStatusCanceled, decimal.NullDecimal{})
	if err != nil {
		return nil, err
	}
	log := s.logger.With(zap.String("appointment_id", id))

	if err := s.slots.Release(ctx, a.Slot()); err != nil {
		log.Error("Canceled appointment but slot was not released", zap.String("slot", a.Slot().Key()), zap.Error(err))
		return nil, apperr.Consistency("release slot "+a.Slot().Key(), err)
	}
	if a.IssuedCouponCode != "" {
		err := s.coupons.Invalidate(ctx, a.IssuedCouponCode)
		switch {
		case err == nil:
			log.Info("Invalidated coupon issued for canceled appointment", zap.String("coupon", a.IssuedCouponCode))
		case errors.Is(err, apperr.ErrCouponAlreadyRedeemed), errors.Is(err, apperr.ErrCouponNotFound):
		default:
			log.Warn("Could not invalidate issued coupon", zap.String("coupon", a.IssuedCouponCode), zap.Error(err))
		}
	}
	log.Info("Appointment canceled")
	return a, nil
}

func (s *AdminService) CompleteAppointment(ctx context.Context, id string, finalPrice decimal.Decimal) (*db.Appointment, error) {
	a, err := s.appointments.Transition(ctx, id, db.AppointmentStatusConfirmed, db.AppointmentStatusCompleted,
		decimal.NullDecimal{Decimal: finalPrice, Valid: true})
	if err != nil {
		return nil, err
	}
	s.logger.Info("Appointment completed", zap.String("appointment_id", id), zap.String("final_price", finalPrice.StringFixed(2)))
	return a, nil
}

func (s *AdminService) ListCoupons(ctx context.Context) ([]db.Coupon, error) {
	return s.coupons.List(ctx)
}

func (s *AdminService) InvalidateCoupon(ctx context.Context, code string) error {
	if err := s.coupons.Invalidate(ctx, code); err != nil {
		return err
	}
	s.logger.Info("Coupon invalidated", zap.String("coupon", code))
	return nil
}
