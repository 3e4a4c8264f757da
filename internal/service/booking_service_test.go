package service

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"salonbooking/internal/config"
	"salonbooking/internal/db"
	"salonbooking/internal/entities"
	apperr "salonbooking/internal/errors"
)

func TestBook_ScenariosAtoC(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.IssueAlways)

	// A: plain booking earns a coupon.
	a, err := f.booking.Book(ctx, request("10:00", ""))
	require.NoError(t, err)
	require.NotEmpty(t, a.IssuedCouponCode)
	assert.False(t, a.DiscountApplied)
	assert.Nil(t, a.Discount)
	assert.Equal(t, db.SlotStatusBooked, f.slotStatus(t, "10:00"))

	// B: the coupon is worth the configured discount.
	b, err := f.booking.Book(ctx, request("11:00", a.IssuedCouponCode))
	require.NoError(t, err)
	assert.True(t, b.DiscountApplied)
	require.NotNil(t, b.Discount)
	assert.Equal(t, tenPercent.Type, b.Discount.Type)
	assert.True(t, tenPercent.Value.Equal(b.Discount.Value))
	assert.NotEmpty(t, b.IssuedCouponCode, "chained reward under the always policy")
	assert.NotEqual(t, a.IssuedCouponCode, b.IssuedCouponCode)

	// C: the same coupon again is rejected before the slot is looked at.
	_, err = f.booking.Book(ctx, request("11:00", a.IssuedCouponCode))
	assert.ErrorIs(t, err, apperr.ErrCouponAlreadyRedeemed)

	stored, err := f.appointments.Get(ctx, b.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, a.IssuedCouponCode, stored.AppliedCouponCode)
	assert.Equal(t, b.IssuedCouponCode, stored.IssuedCouponCode)
	assert.Len(t, f.notifier.confirmed, 2)
}

func TestBook_ScenarioD_ConcurrentSameSlot(t *testing.T) {
	f := newFixture(t, config.IssueAlways)

	const n = 2
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.booking.Book(context.Background(), request("14:00", ""))
		}(i)
	}
	wg.Wait()

	var ok, unavailable int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, apperr.ErrSlotUnavailable):
			unavailable++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, unavailable)
}

func TestBook_ConcurrentSameCouponReleasesLosersSlots(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.IssueAlways)
	first, err := f.booking.Book(ctx, request("09:00", ""))
	require.NoError(t, err)

	slots := []string{"10:00", "11:00", "14:00"}
	errs := make([]error, len(slots))
	var wg sync.WaitGroup
	for i, label := range slots {
		wg.Add(1)
		go func(i int, label string) {
			defer wg.Done()
			_, errs[i] = f.booking.Book(ctx, request(label, first.IssuedCouponCode))
		}(i, label)
	}
	wg.Wait()

	winners := 0
	for i, err := range errs {
		if err == nil {
			winners++
			assert.Equal(t, db.SlotStatusBooked, f.slotStatus(t, slots[i]))
			continue
		}
		assert.ErrorIs(t, err, apperr.ErrCouponAlreadyRedeemed)
		assert.Equal(t, db.SlotStatusOpen, f.slotStatus(t, slots[i]), "loser's slot is released")
	}
	assert.Equal(t, 1, winners)
}

func TestBook_UnredeemedPolicySkipsRewardOnDiscountedBooking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.IssueUnredeemed)

	a, err := f.booking.Book(ctx, request("10:00", ""))
	require.NoError(t, err)
	require.NotEmpty(t, a.IssuedCouponCode)

	b, err := f.booking.Book(ctx, request("11:00", a.IssuedCouponCode))
	require.NoError(t, err)
	assert.True(t, b.DiscountApplied)
	assert.Empty(t, b.IssuedCouponCode)
}

func TestBook_EmptyNameLeavesSlotOpen(t *testing.T) {
	f := newFixture(t, config.IssueAlways)
	req := request("10:00", "")
	req.CustomerName = ""

	_, err := f.booking.Book(context.Background(), req)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrValidation)
	assert.Equal(t, "customerName", apperr.FieldOf(err))
	assert.Equal(t, db.SlotStatusOpen, f.slotStatus(t, "10:00"))
}

func TestBook_UnknownCouponTouchesNothing(t *testing.T) {
	f := newFixture(t, config.IssueAlways)

	_, err := f.booking.Book(context.Background(), request("10:00", "NOPE2345"))
	assert.ErrorIs(t, err, apperr.ErrCouponNotFound)
	assert.Equal(t, db.SlotStatusOpen, f.slotStatus(t, "10:00"))
}

func TestBook_UnknownSlot(t *testing.T) {
	f := newFixture(t, config.IssueAlways)

	_, err := f.booking.Book(context.Background(), request("16:00", ""))
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)
}

func TestBook_CreateFailureCompensates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.IssueAlways)
	a, err := f.booking.Book(ctx, request("09:00", ""))
	require.NoError(t, err)

	broken := NewBookingService(f.slots, f.ledger, failingAppointments{f.appointments}, f.ids, nil,
		BookingSettings{Timeout: time.Second}, zap.NewNop())
	_, err = broken.Book(ctx, request("10:00", a.IssuedCouponCode))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInternal, apperr.KindOf(err))

	assert.Equal(t, db.SlotStatusOpen, f.slotStatus(t, "10:00"))
	c, err := f.ledger.Validate(ctx, a.IssuedCouponCode)
	require.NoError(t, err)
	assert.Equal(t, db.CouponStatusActive, c.Status)
}

func TestBook_FailedCompensationIsConsistencyError(t *testing.T) {
	f := newFixture(t, config.IssueAlways)
	broken := NewBookingService(failingSlots{f.slots}, f.ledger, failingAppointments{f.appointments}, f.ids, nil,
		BookingSettings{Timeout: time.Second}, zap.NewNop())

	_, err := broken.Book(context.Background(), request("11:00", ""))
	require.Error(t, err)
	assert.ErrorIs(t, err, apperr.ErrConsistency)
	assert.Equal(t, http.StatusInternalServerError, apperr.StatusFor(err))
}

func TestBook_CancelBeforeRewardAttachedWithdrawsReward(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.IssueAlways)
	booking := NewBookingService(f.slots, f.ledger, cancelOnAttach{AppointmentStore: f.appointments, admin: f.admin},
		f.ids, f.notifier, BookingSettings{Timeout: time.Second}, zap.NewNop())

	conf, err := booking.Book(ctx, request("10:00", ""))
	require.NoError(t, err)
	assert.Empty(t, conf.IssuedCouponCode)

	a, err := f.appointments.Get(ctx, conf.AppointmentID)
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentStatusCanceled, a.Status)
	assert.Empty(t, a.IssuedCouponCode)
	assert.Equal(t, db.SlotStatusOpen, f.slotStatus(t, "10:00"))

	coupons, err := f.ledger.List(ctx)
	require.NoError(t, err)
	require.Len(t, coupons, 1)
	assert.Equal(t, db.CouponStatusInvalid, coupons[0].Status)
}

func TestBook_RequestIDIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.IssueAlways)
	req := request("10:00", "")
	req.RequestID = "retry-me"

	first, err := f.booking.Book(ctx, req)
	require.NoError(t, err)
	second, err := f.booking.Book(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	list, err := f.appointments.List(ctx, db.DateRange{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestBook_ConcurrentRetriesCollapse(t *testing.T) {
	f := newFixture(t, config.IssueAlways)
	req := request("14:00", "")
	req.RequestID = "double-click"

	results := make([]*entities.AppointmentConfirmation, 8)
	errs := make([]error, len(results))
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = f.booking.Book(context.Background(), req)
		}(i)
	}
	wg.Wait()

	for i := range results {
		require.NoError(t, errs[i])
		assert.Equal(t, results[0].AppointmentID, results[i].AppointmentID)
	}
}

func TestListOpenSlotsHidesBooked(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, config.IssueAlways)
	_, err := f.booking.Book(ctx, request("10:00", ""))
	require.NoError(t, err)

	open, err := f.booking.ListOpenSlots(ctx, db.DateRange{From: day1, To: day1})
	require.NoError(t, err)
	var labels []string
	for _, s := range open {
		labels = append(labels, s.Time)
	}
	assert.Equal(t, []string{"09:00", "11:00", "14:00"}, labels)
}
