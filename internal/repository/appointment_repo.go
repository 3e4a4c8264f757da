package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/shopspring/decimal"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
)

type AppointmentRepository struct {
	DB *sql.DB
}

func NewAppointmentRepository(db *sql.DB) *AppointmentRepository {
	return &AppointmentRepository{DB: db}
}

const appointmentColumns = `
	id, request_id, to_char(slot_date, 'YYYY-MM-DD'), slot_time, customer_name, customer_phone,
	applied_coupon_code, discount_applied, discount_type, discount_value, issued_coupon_code,
	status, final_price, created_at, updated_at`

func scanAppointment(row interface{ Scan(...any) error }) (*db.Appointment, error) {
	var (
		a             db.Appointment
		requestID     sql.NullString
		appliedCoupon sql.NullString
		discountType  sql.NullString
		discountValue decimal.NullDecimal
		issuedCoupon  sql.NullString
	)
	err := row.Scan(
		&a.ID, &requestID, &a.Date, &a.Time, &a.CustomerName, &a.CustomerPhone,
		&appliedCoupon, &a.DiscountApplied, &discountType, &discountValue, &issuedCoupon,
		&a.Status, &a.FinalPrice, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.RequestID = requestID.String
	a.AppliedCouponCode = appliedCoupon.String
	a.DiscountType = db.DiscountType(discountType.String)
	a.DiscountValue = discountValue.Decimal
	a.IssuedCouponCode = issuedCoupon.String
	return &a, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func (r *AppointmentRepository) Create(ctx context.Context, a *db.Appointment) error {
	if a.Status == "" {
		a.Status = db.AppointmentStatusConfirmed
	}
	query := `
		INSERT INTO appointments
		(id, request_id, slot_date, slot_time, customer_name, customer_phone, applied_coupon_code, discount_applied, discount_type, discount_value, issued_coupon_code, status)
		VALUES ($1, $2, $3::date, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`
	err := r.DB.QueryRowContext(ctx, query,
		a.ID,
		nullString(a.RequestID),
		a.Date,
		a.Time,
		a.CustomerName,
		a.CustomerPhone,
		nullString(a.AppliedCouponCode),
		a.DiscountApplied,
		nullString(string(a.DiscountType)),
		decimal.NullDecimal{Decimal: a.DiscountValue, Valid: a.DiscountApplied},
		nullString(a.IssuedCouponCode),
		string(a.Status),
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrDuplicateRequest
	}
	if err != nil {
		return fmt.Errorf("error inserting appointment: %w", err)
	}
	return nil
}

func (r *AppointmentRepository) Get(ctx context.Context, id string) (*db.Appointment, error) {
	a, err := scanAppointment(r.DB.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperr.NotFound("appointment %s", id)
	}
	if err != nil {
		return nil, fmt.Errorf("error querying appointment: %w", err)
	}
	return a, nil
}

func (r *AppointmentRepository) GetByRequestID(ctx context.Context, requestID string) (*db.Appointment, error) {
	a, err := scanAppointment(r.DB.QueryRowContext(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE request_id = $1`, requestID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error querying appointment by request id: %w", err)
	}
	return a, nil
}

func (r *AppointmentRepository) List(ctx context.Context, rng db.DateRange) ([]db.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []interface{}{}
	idx := 1

	if rng.From != "" {
		query += " AND slot_date >= $" + strconv.Itoa(idx) + "::date"
		args = append(args, rng.From)
		idx++
	}
	if rng.To != "" {
		query += " AND slot_date <= $" + strconv.Itoa(idx) + "::date"
		args = append(args, rng.To)
	}
	query += " ORDER BY slot_date, slot_time, created_at"

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error querying appointments: %w", err)
	}
	defer rows.Close()

	var list []db.Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning appointment: %w", err)
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

func (r *AppointmentRepository) SetIssuedCoupon(ctx context.Context, id, code string) error {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE appointments SET issued_coupon_code = $2, updated_at = NOW() WHERE id = $1 AND status = $3`,
		id, code, string(db.AppointmentStatusConfirmed))
	if err != nil {
		return fmt.Errorf("error attaching issued coupon: %w", err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return ErrNotConfirmed
	}
	return nil
}

func (r *AppointmentRepository) Transition(ctx context.Context, id string, from, to db.AppointmentStatus, finalPrice decimal.NullDecimal) (*db.Appointment, error) {
	a, err := scanAppointment(r.DB.QueryRowContext(ctx, `
		UPDATE appointments
		SET status = $3, final_price = COALESCE($4, final_price), updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING `+appointmentColumns, id, string(from), string(to), finalPrice))
	if err == nil {
		return a, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("error updating appointment status: %w", err)
	}
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, apperr.Validation("status", "appointment is "+string(current.Status))
}
