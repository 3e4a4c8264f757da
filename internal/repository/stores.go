package repository

import (
	"context"
	"errors"
	"iter"

	"github.com/shopspring/decimal"

	"salonbooking/internal/db"
)

var (
	// ErrDuplicateCode is returned by CouponStore.Insert when the code is taken.
	ErrDuplicateCode = errors.New("coupon code already exists")
	// ErrDuplicateRequest is returned by AppointmentStore.Create when another
	// appointment already carries the same client request id.
	ErrDuplicateRequest = errors.New("appointment request id already used")
	// ErrNotConfirmed is returned by AppointmentStore.SetIssuedCoupon when the
	// appointment left the confirmed state.
	ErrNotConfirmed = errors.New("appointment is no longer confirmed")
)

// AvailabilityStore holds bookable slots and their occupancy. Reserve is the
// only Open -> Booked transition and must let at most one caller win per slot.
type AvailabilityStore interface {
	ListOpenSlots(ctx context.Context, rng db.DateRange) iter.Seq2[db.Slot, error]
	ListSlots(ctx context.Context, rng db.DateRange) iter.Seq2[db.Slot, error]
	Reserve(ctx context.Context, ref db.SlotRef) (db.Reservation, error)
	Release(ctx context.Context, ref db.SlotRef) error
	OpenSlots(ctx context.Context, refs []db.SlotRef) (int, error)
	CloseSlot(ctx context.Context, ref db.SlotRef) error
}

// CouponStore persists coupons. Redeem, Restore and Invalidate are
// compare-and-set transitions on a single code.
type CouponStore interface {
	Insert(ctx context.Context, c db.Coupon) error
	Get(ctx context.Context, code string) (*db.Coupon, error)
	Redeem(ctx context.Context, code, byAppointmentID string) (*db.Coupon, error)
	Restore(ctx context.Context, code, byAppointmentID string) error
	Invalidate(ctx context.Context, code string) error
	List(ctx context.Context) ([]db.Coupon, error)
}

type AppointmentStore interface {
	Create(ctx context.Context, a *db.Appointment) error
	Get(ctx context.Context, id string) (*db.Appointment, error)
	GetByRequestID(ctx context.Context, requestID string) (*db.Appointment, error)
	List(ctx context.Context, rng db.DateRange) ([]db.Appointment, error)
	SetIssuedCoupon(ctx context.Context, id, code string) error
	Transition(ctx context.Context, id string, from, to db.AppointmentStatus, finalPrice decimal.NullDecimal) (*db.Appointment, error)
}

// JobStore backs the periodic maintenance jobs.
type JobStore interface {
	GetConfirmedAppointmentIDsBefore(ctx context.Context, date string) ([]string, error)
	UpdateAppointmentStatuses(ctx context.Context, ids []string, status db.AppointmentStatus) (int64, error)
}

// Collect drains a slot sequence into a slice.
func Collect(seq iter.Seq2[db.Slot, error]) ([]db.Slot, error) {
	var slots []db.Slot
	for s, err := range seq {
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, nil
}
