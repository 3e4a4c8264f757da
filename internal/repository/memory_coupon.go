package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
)

type memoryCoupon struct {
	mu sync.Mutex
	c  db.Coupon
}

// MemoryCouponStore guards each coupon with its own mutex; the map lock is
// only held to find or insert an entry.
type MemoryCouponStore struct {
	mu      sync.RWMutex
	coupons map[string]*memoryCoupon
	now     func() time.Time
}

func NewMemoryCouponStore(now func() time.Time) *MemoryCouponStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryCouponStore{coupons: make(map[string]*memoryCoupon), now: now}
}

func (s *MemoryCouponStore) entry(code string) (*memoryCoupon, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.coupons[code]
	return e, ok
}

func (s *MemoryCouponStore) Insert(_ context.Context, c db.Coupon) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.coupons[c.Code]; ok {
		return ErrDuplicateCode
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	s.coupons[c.Code] = &memoryCoupon{c: c}
	return nil
}

func (s *MemoryCouponStore) Get(_ context.Context, code string) (*db.Coupon, error) {
	e, ok := s.entry(code)
	if !ok {
		return nil, apperr.ErrCouponNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	c := e.c
	return &c, nil
}

func (s *MemoryCouponStore) Redeem(_ context.Context, code, byAppointmentID string) (*db.Coupon, error) {
	e, ok := s.entry(code)
	if !ok {
		return nil, apperr.ErrCouponNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := redeemable(&e.c, byAppointmentID); err != nil {
		return nil, err
	}
	now := s.now()
	e.c.Status = db.CouponStatusRedeemed
	e.c.RedeemedByAppointmentID = byAppointmentID
	e.c.RedeemedAt = &now
	c := e.c
	return &c, nil
}

// Restore undoes a redemption made by byAppointmentID. Anything else is left
// untouched.
func (s *MemoryCouponStore) Restore(_ context.Context, code, byAppointmentID string) error {
	e, ok := s.entry(code)
	if !ok {
		return apperr.ErrCouponNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.c.Status == db.CouponStatusRedeemed && e.c.RedeemedByAppointmentID == byAppointmentID {
		e.c.Status = db.CouponStatusActive
		e.c.RedeemedByAppointmentID = ""
		e.c.RedeemedAt = nil
	}
	return nil
}

func (s *MemoryCouponStore) Invalidate(_ context.Context, code string) error {
	e, ok := s.entry(code)
	if !ok {
		return apperr.ErrCouponNotFound
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	switch e.c.Status {
	case db.CouponStatusActive:
		e.c.Status = db.CouponStatusInvalid
		return nil
	case db.CouponStatusRedeemed:
		return apperr.ErrCouponAlreadyRedeemed
	default:
		return apperr.ErrCouponNotFound
	}
}

func (s *MemoryCouponStore) List(_ context.Context) ([]db.Coupon, error) {
	s.mu.RLock()
	entries := make([]*memoryCoupon, 0, len(s.coupons))
	for _, e := range s.coupons {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	coupons := make([]db.Coupon, 0, len(entries))
	for _, e := range entries {
		e.mu.Lock()
		coupons = append(coupons, e.c)
		e.mu.Unlock()
	}
	slices.SortFunc(coupons, func(a, b db.Coupon) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.Code, b.Code)
	})
	return coupons, nil
}

// redeemable reports why c cannot be redeemed by appointmentID, if it cannot.
// Invalidated coupons and a coupon presented by the appointment it was issued
// for are both reported as unknown codes.
func redeemable(c *db.Coupon, appointmentID string) error {
	switch c.Status {
	case db.CouponStatusRedeemed:
		return apperr.ErrCouponAlreadyRedeemed
	case db.CouponStatusInvalid:
		return apperr.ErrCouponNotFound
	}
	if c.IssuedForAppointmentID == appointmentID {
		return apperr.ErrCouponNotFound
	}
	return nil
}
