package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicgrid/libs/db"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/model"
)

type AvailabilityRepository struct {
	db db.Querier
}

func NewAvailabilityRepository(q db.Querier) *AvailabilityRepository {
	return &AvailabilityRepository{db: q}
}

func (r *AvailabilityRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// Get returns ErrNotFound when the doctor has never saved a schedule.
func (r *AvailabilityRepository) Get(ctx context.Context, doctorID string) (model.AvailabilityRecord, error) {
	var rec model.AvailabilityRecord
	err := r.db.QueryRow(ctx, `
		SELECT doctor_id,
			working_days,
			COALESCE(to_char(daily_start, 'HH24:MI'), ''),
			COALESCE(to_char(daily_end, 'HH24:MI'), ''),
			COALESCE(to_char(valid_from, 'YYYY-MM-DD'), ''),
			COALESCE(to_char(valid_to, 'YYYY-MM-DD'), ''),
			updated_at
		FROM doctor_availability
		WHERE doctor_id = $1
	`, doctorID).Scan(
		&rec.DoctorID,
		&rec.WorkingDays,
		&rec.DailyStart,
		&rec.DailyEnd,
		&rec.ValidFrom,
		&rec.ValidTo,
		&rec.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return model.AvailabilityRecord{}, ErrNotFound
	}
	if err != nil {
		return model.AvailabilityRecord{}, fmt.Errorf("storage: get availability: %w", err)
	}
	return rec, nil
}

// Upsert replaces the doctor's schedule inside tx. Blank fields are stored as NULL.
func (r *AvailabilityRepository) Upsert(ctx context.Context, tx pgx.Tx, rec model.AvailabilityRecord) error {
	days := rec.WorkingDays
	if days == nil {
		days = []string{}
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO doctor_availability (doctor_id, working_days, daily_start, daily_end, valid_from, valid_to, updated_at)
		VALUES ($1, $2, NULLIF($3, '')::time, NULLIF($4, '')::time, NULLIF($5, '')::date, NULLIF($6, '')::date, now())
		ON CONFLICT (doctor_id) DO UPDATE SET
			working_days = EXCLUDED.working_days,
			daily_start = EXCLUDED.daily_start,
			daily_end = EXCLUDED.daily_end,
			valid_from = EXCLUDED.valid_from,
			valid_to = EXCLUDED.valid_to,
			updated_at = now()
	`, rec.DoctorID, days, rec.DailyStart, rec.DailyEnd, rec.ValidFrom, rec.ValidTo)
	if err != nil {
		return fmt.Errorf("storage: upsert availability: %w", err)
	}
	return nil
}
