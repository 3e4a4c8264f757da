package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
	"salonbooking/internal/repository"
)

// Codes skip 0/O and 1/I/L so they can be read back over the phone.
const couponAlphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

var ErrCodeSpaceExhausted = errors.New("could not generate a unique coupon code")

type CouponLedger struct {
	store       repository.CouponStore
	discount    db.DiscountSpec
	codeLength  int
	maxAttempts int
	logger      *zap.Logger

	// newCode is swapped in tests to force collisions.
	newCode func(length int) (string, error)
}

func NewCouponLedger(store repository.CouponStore, discount db.DiscountSpec, codeLength, maxAttempts int, logger *zap.Logger) *CouponLedger {
	return &CouponLedger{
		store:       store,
		discount:    discount,
		codeLength:  codeLength,
		maxAttempts: maxAttempts,
		logger:      logger,
		newCode:     randomCode,
	}
}

func (l *CouponLedger) Discount() db.DiscountSpec {
	return l.discount
}

// Issue creates an active coupon owned by forAppointmentID.
func (l *CouponLedger) Issue(ctx context.Context, forAppointmentID string) (db.Coupon, error) {
	for attempt := 1; attempt <= l.maxAttempts; attempt++ {
		code, err := l.newCode(l.codeLength)
		if err != nil {
			return db.Coupon{}, fmt.Errorf("generate coupon code: %w", err)
		}
		coupon := db.Coupon{Code: code, Status: db.CouponStatusActive, IssuedForAppointmentID: forAppointmentID}
		err = l.store.Insert(ctx, coupon)
		if err == nil {
			return coupon, nil
		}
		if !errors.Is(err, repository.ErrDuplicateCode) {
			return db.Coupon{}, err
		}
		l.logger.Warn("Coupon code collision", zap.Int("attempt", attempt))
	}
	return db.Coupon{}, ErrCodeSpaceExhausted
}

// Validate looks a code up without changing it. Only active coupons pass.
func (l *CouponLedger) Validate(ctx context.Context, code string) (db.Coupon, error) {
	c, err := l.store.Get(ctx, code)
	if err != nil {
		return db.Coupon{}, err
	}
	switch c.Status {
	case db.CouponStatusRedeemed:
		return *c, apperr.ErrCouponAlreadyRedeemed
	case db.CouponStatusInvalid:
		return *c, apperr.ErrCouponNotFound
	}
	return *c, nil
}

func (l *CouponLedger) Redeem(ctx context.Context, code, byAppointmentID string) (db.DiscountSpec, error) {
	if _, err := l.store.Redeem(ctx, code, byAppointmentID); err != nil {
		return db.DiscountSpec{}, err
	}
	return l.discount, nil
}

func (l *CouponLedger) Restore(ctx context.Context, code, byAppointmentID string) error {
	return l.store.Restore(ctx, code, byAppointmentID)
}

func (l *CouponLedger) Invalidate(ctx context.Context, code string) error {
	return l.store.Invalidate(ctx, code)
}

func (l *CouponLedger) List(ctx context.Context) ([]db.Coupon, error) {
	return l.store.List(ctx)
}

func randomCode(length int) (string, error) {
	base := big.NewInt(int64(len(couponAlphabet)))
	buf := make([]byte, length)
	for i := range buf {
		n, err := rand.Int(rand.Reader, base)
		if err != nil {
			return "", err
		}
		buf[i] = couponAlphabet[n.Int64()]
	}
	return string(buf), nil
}
