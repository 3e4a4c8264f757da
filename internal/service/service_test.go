package service

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salonbooking/internal/config"
	"salonbooking/internal/db"
	"salonbooking/internal/entities"
	"salonbooking/internal/repository"
)

const day1 = "2025-03-03"

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var testClock = fixedClock{now: time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)}

type seqIDs struct{ n atomic.Int64 }

func (g *seqIDs) NewID() string {
	return fmt.Sprintf("appt-%d", g.n.Add(1))
}

type recordingNotifier struct {
	confirmed []db.Appointment
}

func (r *recordingNotifier) AppointmentConfirmed(a db.Appointment) {
	r.confirmed = append(r.confirmed, a)
}

type fixture struct {
	slots        *repository.MemoryAvailabilityStore
	coupons      *repository.MemoryCouponStore
	appointments *repository.MemoryAppointmentStore
	ledger       *CouponLedger
	booking      *BookingService
	admin        *AdminService
	notifier     *recordingNotifier
	ids          *seqIDs
}

var tenPercent = db.DiscountSpec{Type: db.DiscountTypePercentage, Value: decimal.NewFromInt(10)}

func newFixture(t *testing.T, policy config.IssuePolicy) *fixture {
	t.Helper()
	f := &fixture{
		slots:        repository.NewMemoryAvailabilityStore(testClock.Now),
		coupons:      repository.NewMemoryCouponStore(testClock.Now),
		appointments: repository.NewMemoryAppointmentStore(testClock.Now),
		notifier:     &recordingNotifier{},
		ids:          &seqIDs{},
	}
	f.ledger = NewCouponLedger(f.coupons, tenPercent, 8, 5, zap.NewNop())
	f.booking = NewBookingService(f.slots, f.ledger, f.appointments, f.ids, f.notifier,
		BookingSettings{IssuePolicy: policy, Timeout: time.Second}, zap.NewNop())
	f.admin = NewAdminService(f.slots, f.appointments, f.ledger, zap.NewNop())

	var refs []db.SlotRef
	for _, label := range []string{"09:00", "10:00", "11:00", "14:00"} {
		refs = append(refs, db.SlotRef{Date: day1, Time: label})
	}
	_, err := f.slots.OpenSlots(context.Background(), refs)
	require.NoError(t, err)
	return f
}

func request(slotTime, coupon string) entities.AppointmentRequest {
	return entities.AppointmentRequest{
		Date:          day1,
		Time:          slotTime,
		CustomerName:  "Test User",
		CustomerPhone: "1234567890",
		CouponCode:    coupon,
	}
}

func (f *fixture) slotStatus(t *testing.T, slotTime string) db.SlotStatus {
	t.Helper()
	slots, err := repository.Collect(f.slots.ListSlots(context.Background(), db.DateRange{From: day1, To: day1}))
	require.NoError(t, err)
	for _, s := range slots {
		if s.Time == slotTime {
			return s.Status
		}
	}
	t.Fatalf("slot %s not found", slotTime)
	return ""
}

// failingSlots wraps a store and makes Release fail.
type failingSlots struct {
	repository.AvailabilityStore
}

func (failingSlots) Release(context.Context, db.SlotRef) error {
	return errors.New("disk on fire")
}

// failingAppointments makes Create fail.
type failingAppointments struct {
	repository.AppointmentStore
}

func (failingAppointments) Create(context.Context, *db.Appointment) error {
	return errors.New("insert failed")
}

// cancelOnAttach cancels the appointment right before the reward code is
// attached to it.
type cancelOnAttach struct {
	repository.AppointmentStore
	admin *AdminService
}

func (c cancelOnAttach) SetIssuedCoupon(ctx context.Context, id, code string) error {
	if _, err := c.admin.CancelAppointment(ctx, id); err != nil {
		return err
	}
	return c.AppointmentStore.SetIssuedCoupon(ctx, id, code)
}
