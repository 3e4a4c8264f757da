package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
)

const uniqueViolation = "23505"

type CouponRepository struct {
	DB *sql.DB
}

func NewCouponRepository(db *sql.DB) *CouponRepository {
	return &CouponRepository{DB: db}
}

const couponColumns = `code, status, issued_for_appointment_id, redeemed_by_appointment_id, created_at, redeemed_at`

func scanCoupon(row interface{ Scan(...any) error }) (*db.Coupon, error) {
	var (
		c          db.Coupon
		redeemedBy sql.NullString
		redeemedAt sql.NullTime
	)
	if err := row.Scan(&c.Code, &c.Status, &c.IssuedForAppointmentID, &redeemedBy, &c.CreatedAt, &redeemedAt); err != nil {
		return nil, err
	}
	c.RedeemedByAppointmentID = redeemedBy.String
	if redeemedAt.Valid {
		c.RedeemedAt = &redeemedAt.Time
	}
	return &c, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}

func (r *CouponRepository) Insert(ctx context.Context, c db.Coupon) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO coupons (code, status, issued_for_appointment_id) VALUES ($1, $2, $3)`,
		c.Code, string(c.Status), c.IssuedForAppointmentID)
	if isUniqueViolation(err) {
		return ErrDuplicateCode
	}
	if err != nil {
		return fmt.Errorf("error inserting coupon: %w", err)
	}
	return nil
}

func (r *CouponRepository) Get(ctx context.Context, code string) (*db.Coupon, error) {
	c, err := scanCoupon(r.DB.QueryRowContext(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code = $1`, code))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.ErrCouponNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("error fetching coupon: %w", err)
	}
	return c, nil
}

func (r *CouponRepository) Redeem(ctx context.Context, code, byAppointmentID string) (*db.Coupon, error) {
	c, err := scanCoupon(r.DB.QueryRowContext(ctx, `
		UPDATE coupons SET status = 'redeemed', redeemed_by_appointment_id = $2, redeemed_at = NOW()
		WHERE code = $1 AND status = 'active' AND issued_for_appointment_id <> $2
		RETURNING `+couponColumns, code, byAppointmentID))
	if err == nil {
		return c, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error redeeming coupon: %w", err)
	}

	current, err := r.Get(ctx, code)
	if err != nil {
		return nil, err
	}
	if err := redeemable(current, byAppointmentID); err != nil {
		return nil, err
	}
	// Active again by the time we looked; a concurrent restore won the race.
	return nil, apperr.ErrCouponAlreadyRedeemed
}

func (r *CouponRepository) Restore(ctx context.Context, code, byAppointmentID string) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE coupons SET status = 'active', redeemed_by_appointment_id = NULL, redeemed_at = NULL
		WHERE code = $1 AND status = 'redeemed' AND redeemed_by_appointment_id = $2`, code, byAppointmentID)
	if err != nil {
		return fmt.Errorf("error restoring coupon: %w", err)
	}
	return nil
}

func (r *CouponRepository) Invalidate(ctx context.Context, code string) error {
	result, err := r.DB.ExecContext(ctx, `UPDATE coupons SET status = 'invalid' WHERE code = $1 AND status = 'active'`, code)
	if err != nil {
		return fmt.Errorf("error invalidating coupon: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil || n > 0 {
		return err
	}
	current, err := r.Get(ctx, code)
	if err != nil {
		return err
	}
	if current.Status == db.CouponStatusRedeemed {
		return apperr.ErrCouponAlreadyRedeemed
	}
	return apperr.ErrCouponNotFound
}

func (r *CouponRepository) List(ctx context.Context) ([]db.Coupon, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT `+couponColumns+` FROM coupons ORDER BY created_at, code`)
	if err != nil {
		return nil, fmt.Errorf("error querying coupons: %w", err)
	}
	defer rows.Close()

	var coupons []db.Coupon
	for rows.Next() {
		c, err := scanCoupon(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning coupon: %w", err)
		}
		coupons = append(coupons, *c)
	}
	return coupons, rows.Err()
}
