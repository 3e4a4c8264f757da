package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"salonbooking/internal/db"
)

type JobRepository struct {
	DB *sql.DB
}

func NewJobRepository(db *sql.DB) *JobRepository {
	return &JobRepository{DB: db}
}

// GetConfirmedAppointmentIDsBefore returns confirmed appointments whose day
// is strictly before date.
func (r *JobRepository) GetConfirmedAppointmentIDsBefore(ctx context.Context, date string) ([]string, error) {
	query := `SELECT id FROM appointments WHERE status = 'confirmed' AND slot_date < $1::date ORDER BY id`
	rows, err := r.DB.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("error querying confirmed appointments before %s: %w", date, err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("error scanning appointment ID: %w", err)
		}
		ids = append(ids, id)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error after iterating rows: %w", err)
	}
	return ids, nil
}

func (r *JobRepository) UpdateAppointmentStatuses(ctx context.Context, ids []string, status db.AppointmentStatus) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	query := `UPDATE appointments SET status = $1, updated_at = NOW() WHERE id = ANY($2) AND status = $3`
	result, err := r.DB.ExecContext(ctx, query, string(status), pq.Array(ids), string(db.AppointmentStatusConfirmed))
	if err != nil {
		return 0, fmt.Errorf("error updating appointment statuses: %w", err)
	}
	return result.RowsAffected()
}
