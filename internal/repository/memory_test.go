package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
)

var fixedNow = func() time.Time { return time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC) }

func openSlots(t *testing.T, s AvailabilityStore, refs ...db.SlotRef) {
	t.Helper()
	_, err := s.OpenSlots(context.Background(), refs)
	require.NoError(t, err)
}

func TestMemoryAvailability_ListOpenSlotsOrderedAndFiltered(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAvailabilityStore(fixedNow)
	openSlots(t, s,
		db.SlotRef{Date: "2025-03-03", Time: "10:00"},
		db.SlotRef{Date: "2025-03-02", Time: "14:00"},
		db.SlotRef{Date: "2025-03-02", Time: "09:00"},
		db.SlotRef{Date: "2025-03-10", Time: "09:00"},
	)
	_, err := s.Reserve(ctx, db.SlotRef{Date: "2025-03-02", Time: "14:00"})
	require.NoError(t, err)

	slots, err := Collect(s.ListOpenSlots(ctx, db.DateRange{From: "2025-03-01", To: "2025-03-05"}))
	require.NoError(t, err)
	require.Len(t, slots, 2)
	assert.Equal(t, db.SlotRef{Date: "2025-03-02", Time: "09:00"}, slots[0].Ref())
	assert.Equal(t, db.SlotRef{Date: "2025-03-03", Time: "10:00"}, slots[1].Ref())

	all, err := Collect(s.ListSlots(ctx, db.DateRange{}))
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestMemoryAvailability_ListIsRestartable(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAvailabilityStore(fixedNow)
	openSlots(t, s, db.SlotRef{Date: "2025-03-02", Time: "09:00"}, db.SlotRef{Date: "2025-03-02", Time: "10:00"})

	seq := s.ListOpenSlots(ctx, db.DateRange{})
	for range seq {
		break
	}
	slots, err := Collect(seq)
	require.NoError(t, err)
	assert.Len(t, slots, 2)
}

func TestMemoryAvailability_ReserveAndRelease(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAvailabilityStore(fixedNow)
	ref := db.SlotRef{Date: "2025-03-02", Time: "09:00"}
	openSlots(t, s, ref)

	res, err := s.Reserve(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, ref, res.Slot)

	_, err = s.Reserve(ctx, ref)
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)

	require.NoError(t, s.Release(ctx, ref))
	require.NoError(t, s.Release(ctx, ref))
	_, err = s.Reserve(ctx, ref)
	assert.NoError(t, err)

	_, err = s.Reserve(ctx, db.SlotRef{Date: "2025-03-02", Time: "23:00"})
	assert.ErrorIs(t, err, apperr.ErrSlotUnavailable)
}

func TestMemoryAvailability_ConcurrentReserveHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAvailabilityStore(fixedNow)
	ref := db.SlotRef{Date: "2025-03-02", Time: "09:00"}
	openSlots(t, s, ref)

	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Reserve(ctx, ref); err == nil {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

func TestMemoryAvailability_OpenAndClose(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAvailabilityStore(fixedNow)
	open := db.SlotRef{Date: "2025-03-02", Time: "09:00"}
	booked := db.SlotRef{Date: "2025-03-02", Time: "10:00"}

	n, err := s.OpenSlots(ctx, []db.SlotRef{open, booked, open})
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	_, err = s.Reserve(ctx, booked)
	require.NoError(t, err)

	n, err = s.OpenSlots(ctx, []db.SlotRef{booked})
	require.NoError(t, err)
	assert.Zero(t, n)

	assert.ErrorIs(t, s.CloseSlot(ctx, booked), apperr.ErrSlotUnavailable)
	assert.NoError(t, s.CloseSlot(ctx, open))
	assert.ErrorIs(t, s.CloseSlot(ctx, open), apperr.ErrNotFound)
}

func TestMemoryCoupon_Lifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCouponStore(fixedNow)
	require.NoError(t, s.Insert(ctx, db.Coupon{Code: "ABCD2345", Status: db.CouponStatusActive, IssuedForAppointmentID: "a1"}))
	assert.ErrorIs(t, s.Insert(ctx, db.Coupon{Code: "ABCD2345", Status: db.CouponStatusActive}), ErrDuplicateCode)

	_, err := s.Redeem(ctx, "ABCD2345", "a1")
	assert.ErrorIs(t, err, apperr.ErrCouponNotFound, "issuer cannot redeem its own coupon")

	c, err := s.Redeem(ctx, "ABCD2345", "a2")
	require.NoError(t, err)
	assert.Equal(t, db.CouponStatusRedeemed, c.Status)
	assert.Equal(t, "a2", c.RedeemedByAppointmentID)
	require.NotNil(t, c.RedeemedAt)

	_, err = s.Redeem(ctx, "ABCD2345", "a3")
	assert.ErrorIs(t, err, apperr.ErrCouponAlreadyRedeemed)

	require.NoError(t, s.Restore(ctx, "ABCD2345", "a3"))
	c, err = s.Get(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, db.CouponStatusRedeemed, c.Status, "restore by another appointment is ignored")

	require.NoError(t, s.Restore(ctx, "ABCD2345", "a2"))
	c, err = s.Get(ctx, "ABCD2345")
	require.NoError(t, err)
	assert.Equal(t, db.CouponStatusActive, c.Status)
	assert.Empty(t, c.RedeemedByAppointmentID)

	require.NoError(t, s.Invalidate(ctx, "ABCD2345"))
	_, err = s.Redeem(ctx, "ABCD2345", "a4")
	assert.ErrorIs(t, err, apperr.ErrCouponNotFound)

	_, err = s.Get(ctx, "ZZZZ9999")
	assert.ErrorIs(t, err, apperr.ErrCouponNotFound)
}

func TestMemoryCoupon_ConcurrentRedeemHasOneWinner(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryCouponStore(fixedNow)
	require.NoError(t, s.Insert(ctx, db.Coupon{Code: "RACE2345", Status: db.CouponStatusActive, IssuedForAppointmentID: "issuer"}))

	var (
		wg       sync.WaitGroup
		wins     atomic.Int32
		redeemed atomic.Int32
	)
	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := s.Redeem(ctx, "RACE2345", fmt.Sprintf("appt-%d", i))
			switch {
			case err == nil:
				wins.Add(1)
			case errors.Is(err, apperr.ErrCouponAlreadyRedeemed):
				redeemed.Add(1)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(63), redeemed.Load())
}

func TestMemoryAppointment_CreateAndTransition(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAppointmentStore(fixedNow)
	a := &db.Appointment{ID: "a1", RequestID: "req-1", Date: "2025-03-02", Time: "09:00", CustomerName: "Ana", CustomerPhone: "+15550001111"}
	require.NoError(t, s.Create(ctx, a))
	assert.Equal(t, db.AppointmentStatusConfirmed, a.Status)

	assert.ErrorIs(t, s.Create(ctx, &db.Appointment{ID: "a2", RequestID: "req-1"}), ErrDuplicateRequest)

	got, err := s.GetByRequestID(ctx, "req-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "a1", got.ID)

	missing, err := s.GetByRequestID(ctx, "req-2")
	require.NoError(t, err)
	assert.Nil(t, missing)

	price := decimal.NullDecimal{Decimal: decimal.RequireFromString("45.50"), Valid: true}
	done, err := s.Transition(ctx, "a1", db.AppointmentStatusConfirmed, db.AppointmentStatusCompleted, price)
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentStatusCompleted, done.Status)
	assert.True(t, done.FinalPrice.Decimal.Equal(decimal.RequireFromString("45.5")))

	_, err = s.Transition(ctx, "a1", db.AppointmentStatusConfirmed, db.AppointmentStatusCanceled, decimal.NullDecimal{})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = s.Get(ctx, "nope")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestMemoryAppointment_ListAndJobs(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryAppointmentStore(fixedNow)
	for _, a := range []*db.Appointment{
		{ID: "late", Date: "2025-03-05", Time: "09:00"},
		{ID: "early", Date: "2025-02-27", Time: "15:00"},
		{ID: "mid", Date: "2025-03-01", Time: "10:00"},
	} {
		require.NoError(t, s.Create(ctx, a))
	}

	list, err := s.List(ctx, db.DateRange{From: "2025-02-28"})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "mid", list[0].ID)
	assert.Equal(t, "late", list[1].ID)

	ids, err := s.GetConfirmedAppointmentIDsBefore(ctx, "2025-03-02")
	require.NoError(t, err)
	assert.Equal(t, []string{"early", "mid"}, ids)

	n, err := s.UpdateAppointmentStatuses(ctx, ids, db.AppointmentStatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	ids, err = s.GetConfirmedAppointmentIDsBefore(ctx, "2025-03-02")
	require.NoError(t, err)
	assert.Empty(t, ids)
	n, err = s.UpdateAppointmentStatuses(ctx, []string{"early", "late"}, db.AppointmentStatusCanceled)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	early, err := s.Get(ctx, "early")
	require.NoError(t, err)
	assert.Equal(t, db.AppointmentStatusCompleted, early.Status)

	assert.ErrorIs(t, s.SetIssuedCoupon(ctx, "late", "ABCD2345"), ErrNotConfirmed)
	require.NoError(t, s.Create(ctx, &db.Appointment{ID: "fresh", Date: "2025-03-06", Time: "09:00"}))
	require.NoError(t, s.SetIssuedCoupon(ctx, "fresh", "ABCD2345"))
}

func TestMemoryAdminAuth(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryAdminAuthRepository()
	require.NoError(t, r.CreateNewUser(ctx, "admin", "admin123"))
	require.NoError(t, r.CreateNewUser(ctx, "admin", "other"))

	admin, err := r.GetByUsername(ctx, "admin")
	require.NoError(t, err)
	require.NotNil(t, admin)
	assert.NotEqual(t, "admin123", admin.PasswordHash)

	missing, err := r.GetByUsername(ctx, "ghost")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
