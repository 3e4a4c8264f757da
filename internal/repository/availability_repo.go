package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strconv"

	"github.com/lib/pq"

	"salonbooking/internal/db"
	apperr "salonbooking/internal/errors"
)

// AvailabilityRepository is the postgres AvailabilityStore. Reserve relies on
// a conditional UPDATE so the database arbitrates concurrent bookings.
type AvailabilityRepository struct {
	DB *sql.DB
}

func NewAvailabilityRepository(db *sql.DB) *AvailabilityRepository {
	return &AvailabilityRepository{DB: db}
}

func (r *AvailabilityRepository) ListOpenSlots(ctx context.Context, rng db.DateRange) iter.Seq2[db.Slot, error] {
	return r.list(ctx, rng, true)
}

func (r *AvailabilityRepository) ListSlots(ctx context.Context, rng db.DateRange) iter.Seq2[db.Slot, error] {
	return r.list(ctx, rng, false)
}

func (r *AvailabilityRepository) list(ctx context.Context, rng db.DateRange, openOnly bool) iter.Seq2[db.Slot, error] {
	query := `
	SELECT to_char(slot_date, 'YYYY-MM-DD'), slot_time, status, updated_at
	FROM slots
	WHERE 1=1`
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
		idx++
	}
	if openOnly {
		query += " AND status = $" + strconv.Itoa(idx)
		args = append(args, string(db.SlotStatusOpen))
	}
	query += " ORDER BY slot_date, slot_time"

	return func(yield func(db.Slot, error) bool) {
		rows, err := r.DB.QueryContext(ctx, query, args...)
		if err != nil {
			yield(db.Slot{}, fmt.Errorf("error querying slots: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var s db.Slot
			if err := rows.Scan(&s.Date, &s.Time, &s.Status, &s.UpdatedAt); err != nil {
				yield(db.Slot{}, fmt.Errorf("error scanning slot: %w", err))
				return
			}
			if !yield(s, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(db.Slot{}, fmt.Errorf("error after iterating slots: %w", err))
		}
	}
}

func (r *AvailabilityRepository) Reserve(ctx context.Context, ref db.SlotRef) (db.Reservation, error) {
	res := db.Reservation{Slot: ref}
	err := r.DB.QueryRowContext(ctx, `
		UPDATE slots SET status = 'booked', updated_at = NOW()
		WHERE slot_date = $1::date AND slot_time = $2 AND status = 'open'
		RETURNING updated_at`, ref.Date, ref.Time).Scan(&res.ReservedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return db.Reservation{}, &apperr.BookingError{Kind: apperr.KindSlotUnavailable, Message: ref.Key()}
	}
	if err != nil {
		return db.Reservation{}, fmt.Errorf("error reserving slot %s: %w", ref.Key(), err)
	}
	return res, nil
}

func (r *AvailabilityRepository) Release(ctx context.Context, ref db.SlotRef) error {
	_, err := r.DB.ExecContext(ctx, `
		UPDATE slots SET status = 'open', updated_at = NOW()
		WHERE slot_date = $1::date AND slot_time = $2 AND status = 'booked'`, ref.Date, ref.Time)
	if err != nil {
		return fmt.Errorf("error releasing slot %s: %w", ref.Key(), err)
	}
	return nil
}

func (r *AvailabilityRepository) OpenSlots(ctx context.Context, refs []db.SlotRef) (int, error) {
	if len(refs) == 0 {
		return 0, nil
	}
	dates := make([]string, len(refs))
	times := make([]string, len(refs))
	for i, ref := range refs {
		dates[i], times[i] = ref.Date, ref.Time
	}
	result, err := r.DB.ExecContext(ctx, `
		INSERT INTO slots (slot_date, slot_time, status)
		SELECT d::date, t, 'open' FROM unnest($1::text[], $2::text[]) AS u(d, t)
		ON CONFLICT (slot_date, slot_time) DO NOTHING`, pq.Array(dates), pq.Array(times))
	if err != nil {
		return 0, fmt.Errorf("error opening slots: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

func (r *AvailabilityRepository) CloseSlot(ctx context.Context, ref db.SlotRef) error {
	result, err := r.DB.ExecContext(ctx, `
		DELETE FROM slots WHERE slot_date = $1::date AND slot_time = $2 AND status = 'open'`, ref.Date, ref.Time)
	if err != nil {
		return fmt.Errorf("error closing slot %s: %w", ref.Key(), err)
	}
	if n, err := result.RowsAffected(); err != nil || n > 0 {
		return err
	}

	var status string
	err = r.DB.QueryRowContext(ctx, `SELECT status FROM slots WHERE slot_date = $1::date AND slot_time = $2`, ref.Date, ref.Time).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return apperr.NotFound("slot %s", ref.Key())
	}
	if err != nil {
		return err
	}
	return &apperr.BookingError{Kind: apperr.KindSlotUnavailable, Message: ref.Key() + " is booked"}
}
