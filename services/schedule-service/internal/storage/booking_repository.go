package storage

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicgrid/libs/db"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/model"
)

// BookingRepository reads and maintains the local projection of the booking service's appointments.
type BookingRepository struct {
	db db.Querier
}

func NewBookingRepository(q db.Querier) *BookingRepository {
	return &BookingRepository{db: q}
}

// ListForDoctor returns bookings dated within [from, to], ordered by creation so that the
// first-match rule stays stable across requests.
func (r *BookingRepository) ListForDoctor(ctx context.Context, doctorID string, from, to civil.Date) ([]model.BookingRecord, error) {
	rows, err := r.db.Query(ctx, `
		SELECT booking_code,
			doctor_id,
			to_char(booking_date, 'YYYY-MM-DD'),
			COALESCE(to_char(start_time, 'HH24:MI'), ''),
			COALESCE(duration_minutes, 0),
			status,
			customer_name,
			service_name,
			notes,
			updated_at
		FROM doctor_bookings
		WHERE doctor_id = $1
			AND booking_date BETWEEN $2::date AND $3::date
		ORDER BY created_at, booking_code
	`, doctorID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("storage: list bookings: %w", err)
	}
	defer rows.Close()

	var out []model.BookingRecord
	for rows.Next() {
		var rec model.BookingRecord
		if err := rows.Scan(
			&rec.Code,
			&rec.DoctorID,
			&rec.BookingDate,
			&rec.StartTime,
			&rec.DurationMinutes,
			&rec.Status,
			&rec.CustomerName,
			&rec.ServiceName,
			&rec.Notes,
			&rec.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan booking: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("storage: list bookings: %w", err)
	}
	return out, nil
}

// Upsert applies a booking snapshot. Older snapshots than the stored one are ignored, so
// out-of-order redelivery cannot roll a booking back.
func (r *BookingRepository) Upsert(ctx context.Context, tx pgx.Tx, rec model.BookingRecord) (bool, error) {
	tag, err := tx.Exec(ctx, `
		INSERT INTO doctor_bookings
			(booking_code, doctor_id, booking_date, start_time, duration_minutes, status, customer_name, service_name, notes, updated_at)
		VALUES ($1, $2, $3::date, NULLIF($4, '')::time, NULLIF($5, 0), $6, $7, $8, $9, $10)
		ON CONFLICT (booking_code) DO UPDATE SET
			doctor_id = EXCLUDED.doctor_id,
			booking_date = EXCLUDED.booking_date,
			start_time = EXCLUDED.start_time,
			duration_minutes = EXCLUDED.duration_minutes,
			status = EXCLUDED.status,
			customer_name = EXCLUDED.customer_name,
			service_name = EXCLUDED.service_name,
			notes = EXCLUDED.notes,
			updated_at = EXCLUDED.updated_at
		WHERE doctor_bookings.updated_at <= EXCLUDED.updated_at
	`, rec.Code, rec.DoctorID, rec.BookingDate, rec.StartTime, rec.DurationMinutes, rec.Status,
		rec.CustomerName, rec.ServiceName, rec.Notes, rec.UpdatedAt)
	if err != nil {
		return false, fmt.Errorf("storage: upsert booking: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// Cancel marks a projected booking cancelled. Unknown codes and newer stored states
// return ErrNotFound.
func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, code string, at time.Time) error {
	tag, err := tx.Exec(ctx, `
		UPDATE doctor_bookings
		SET status = 'cancelled', updated_at = $2
		WHERE booking_code = $1 AND updated_at <= $2
	`, code, at)
	if err != nil {
		return fmt.Errorf("storage: cancel booking: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
