package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"salonbooking/internal/config"
	"salonbooking/internal/db"
	"salonbooking/internal/entities"
	apperr "salonbooking/internal/errors"
	"salonbooking/internal/repository"
)

const compensationTimeout = 5 * time.Second

// Notifier is told about every confirmed booking. Implementations must not
// block the caller.
type Notifier interface {
	AppointmentConfirmed(a db.Appointment)
}

type noopNotifier struct{}

func (noopNotifier) AppointmentConfirmed(db.Appointment) {}

type BookingSettings struct {
	IssuePolicy config.IssuePolicy
	Timeout     time.Duration
}

// BookingService turns a booking request into a confirmed appointment. It
// owns the ordering of slot, coupon and appointment writes and undoes the
// earlier ones when a later one fails.
type BookingService struct {
	slots        repository.AvailabilityStore
	coupons      *CouponLedger
	appointments repository.AppointmentStore
	ids          IDGenerator
	notifier     Notifier
	settings     BookingSettings
	logger       *zap.Logger

	inflight singleflight.Group
}

func NewBookingService(
	slots repository.AvailabilityStore,
	coupons *CouponLedger,
	appointments repository.AppointmentStore,
	ids IDGenerator,
	notifier Notifier,
	settings BookingSettings,
	logger *zap.Logger,
) *BookingService {
	if notifier == nil {
		notifier = noopNotifier{}
	}
	if settings.Timeout <= 0 {
		settings.Timeout = 5 * time.Second
	}
	if settings.IssuePolicy == "" {
		settings.IssuePolicy = config.IssueAlways
	}
	return &BookingService{
		slots:        slots,
		coupons:      coupons,
		appointments: appointments,
		ids:          ids,
		notifier:     notifier,
		settings:     settings,
		logger:       logger,
	}
}

// ListOpenSlots returns bookable slots in rng ordered by date and time.
func (s *BookingService) ListOpenSlots(ctx context.Context, rng db.DateRange) ([]db.Slot, error) {
	return repository.Collect(s.slots.ListOpenSlots(ctx, rng))
}

// CheckCoupon reports whether code could be redeemed right now.
func (s *BookingService) CheckCoupon(ctx context.Context, code string) (db.Coupon, error) {
	return s.coupons.Validate(ctx, code)
}

// Book validates req and books it. Requests carrying a request id are
// idempotent: a retry gets the confirmation of the original booking.
func (s *BookingService) Book(ctx context.Context, req entities.AppointmentRequest) (*entities.AppointmentConfirmation, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if req.RequestID == "" {
		return s.book(ctx, req)
	}

	v, err, shared := s.inflight.Do(req.RequestID, func() (interface{}, error) {
		existing, err := s.appointments.GetByRequestID(ctx, req.RequestID)
		if err != nil {
			return nil, fmt.Errorf("lookup request id: %w", err)
		}
		if existing != nil {
			s.logger.Info("Replaying booking", zap.String("request_id", req.RequestID), zap.String("appointment_id", existing.ID))
			return confirmationFor(*existing), nil
		}
		return s.book(ctx, req)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		s.logger.Debug("Collapsed duplicate booking request", zap.String("request_id", req.RequestID))
	}
	return v.(*entities.AppointmentConfirmation), nil
}

func (s *BookingService) book(ctx context.Context, req entities.AppointmentRequest) (*entities.AppointmentConfirmation, error) {
	ctx, cancel := context.WithTimeout(ctx, s.settings.Timeout)
	defer cancel()

	appointmentID := s.ids.NewID()
	ref := req.Slot()
	log := s.logger.With(zap.String("appointment_id", appointmentID), zap.String("slot", ref.Key()))

	if req.CouponCode != "" {
		if _, err := s.coupons.Validate(ctx, req.CouponCode); err != nil {
			return nil, err
		}
	}

	if _, err := s.slots.Reserve(ctx, ref); err != nil {
		return nil, err
	}

	var discount *db.DiscountSpec
	if req.CouponCode != "" {
		spec, err := s.coupons.Redeem(ctx, req.CouponCode, appointmentID)
		if err != nil {
			if cerr := s.compensate(ctx, ref, "", appointmentID); cerr != nil {
				return nil, cerr
			}
			return nil, err
		}
		discount = &spec
	}

	appt := &db.Appointment{
		ID:                appointmentID,
		RequestID:         req.RequestID,
		Date:              ref.Date,
		Time:              ref.Time,
		CustomerName:      req.CustomerName,
		CustomerPhone:     req.CustomerPhone,
		AppliedCouponCode: req.CouponCode,
		Status:            db.AppointmentStatusConfirmed,
	}
	if discount != nil {
		appt.DiscountApplied = true
		appt.DiscountType = discount.Type
		appt.DiscountValue = discount.Value
	}

	if err := s.appointments.Create(ctx, appt); err != nil {
		if cerr := s.compensate(ctx, ref, req.CouponCode, appointmentID); cerr != nil {
			return nil, cerr
		}
		if errors.Is(err, repository.ErrDuplicateRequest) && req.RequestID != "" {
			if existing, lerr := s.appointments.GetByRequestID(ctx, req.RequestID); lerr == nil && existing != nil {
				return confirmationFor(*existing), nil
			}
		}
		return nil, fmt.Errorf("create appointment: %w", err)
	}

	if s.shouldIssue(discount != nil) {
		coupon, err := s.coupons.Issue(ctx, appointmentID)
		if err != nil {
			log.Warn("Booking confirmed without a reward coupon", zap.Error(err))
		} else {
			appt.IssuedCouponCode = coupon.Code
			err := s.appointments.SetIssuedCoupon(ctx, appointmentID, coupon.Code)
			switch {
			case err == nil:
			case errors.Is(err, repository.ErrNotConfirmed):
				// Canceled before the reward was attached; cancel could not see it.
				appt.IssuedCouponCode = ""
				if ierr := s.coupons.Invalidate(ctx, coupon.Code); ierr != nil {
					log.Error("Failed to withdraw coupon of canceled appointment", zap.String("coupon", coupon.Code), zap.Error(ierr))
				} else {
					log.Info("Withdrew coupon of appointment canceled during booking", zap.String("coupon", coupon.Code))
				}
			default:
				log.Error("Failed to attach issued coupon to appointment", zap.String("coupon", coupon.Code), zap.Error(err))
			}
		}
	}

	log.Info("Appointment booked",
		zap.Bool("discount_applied", appt.DiscountApplied),
		zap.String("issued_coupon", appt.IssuedCouponCode))
	s.notifier.AppointmentConfirmed(*appt)

	return confirmationFor(*appt), nil
}

func (s *BookingService) shouldIssue(redeemed bool) bool {
	if s.settings.IssuePolicy == config.IssueUnredeemed {
		return !redeemed
	}
	return true
}

// compensate restores couponCode (when set) and releases ref. It runs even
// if ctx was cancelled. A failure here leaves state that needs an operator.
func (s *BookingService) compensate(ctx context.Context, ref db.SlotRef, couponCode, appointmentID string) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
	defer cancel()

	if couponCode != "" {
		if err := s.coupons.Restore(ctx, couponCode, appointmentID); err != nil {
			s.logger.Error("Compensation failed: coupon not restored",
				zap.String("coupon", couponCode), zap.String("appointment_id", appointmentID), zap.Error(err))
			return apperr.Consistency("restore coupon "+couponCode, err)
		}
	}
	if err := s.slots.Release(ctx, ref); err != nil {
		s.logger.Error("Compensation failed: slot not released",
			zap.String("slot", ref.Key()), zap.String("appointment_id", appointmentID), zap.Error(err))
		return apperr.Consistency("release slot "+ref.Key(), err)
	}
	return nil
}

func confirmationFor(a db.Appointment) *entities.AppointmentConfirmation {
	conf := &entities.AppointmentConfirmation{
		AppointmentID:    a.ID,
		DiscountApplied:  a.DiscountApplied,
		IssuedCouponCode: a.IssuedCouponCode,
	}
	if a.DiscountApplied {
		conf.Discount = &db.DiscountSpec{Type: a.DiscountType, Value: a.DiscountValue}
	}
	return conf
}
