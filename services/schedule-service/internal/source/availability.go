package source

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/model"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/outbox"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/schedule"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/storage"
)

type AvailabilityStore interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Get(ctx context.Context, doctorID string) (model.AvailabilityRecord, error)
	Upsert(ctx context.Context, tx pgx.Tx, rec model.AvailabilityRecord) error
}

type AvailabilityCache interface {
	Get(ctx context.Context, doctorID string) (model.AvailabilityRecord, bool, error)
	Set(ctx context.Context, rec model.AvailabilityRecord) error
	Invalidate(ctx context.Context, doctorID string) error
}

type OutboxWriter interface {
	Insert(ctx context.Context, tx pgx.Tx, evt outbox.Event) (string, error)
}

// AvailabilityService reads schedules through the cache and writes them with an outbox event.
type AvailabilityService struct {
	store  AvailabilityStore
	cache  AvailabilityCache
	outbox OutboxWriter
	logger *slog.Logger
}

// NewAvailabilityService accepts a nil cache.
func NewAvailabilityService(store AvailabilityStore, cache AvailabilityCache, outboxRepo OutboxWriter, logger *slog.Logger) *AvailabilityService {
	return &AvailabilityService{store: store, cache: cache, outbox: outboxRepo, logger: logger}
}

// GetDoctorAvailability returns nil without error when the doctor has no schedule.
func (s *AvailabilityService) GetDoctorAvailability(ctx context.Context, doctorID string) (*schedule.Availability, error) {
	rec, err := s.record(ctx, doctorID)
	if storage.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a, problems := model.NormalizeAvailability(rec)
	if len(problems) > 0 {
		s.logger.Warn("availability normalized with problems", "doctor_id", doctorID, "problems", problems)
	}
	return &a, nil
}

func (s *AvailabilityService) record(ctx context.Context, doctorID string) (model.AvailabilityRecord, error) {
	if s.cache != nil {
		rec, ok, err := s.cache.Get(ctx, doctorID)
		if err != nil {
			s.logger.Warn("availability cache read failed", "doctor_id", doctorID, "err", err)
		} else if ok {
			return rec, nil
		}
	}
	rec, err := s.store.Get(ctx, doctorID)
	if err != nil {
		return model.AvailabilityRecord{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, rec); err != nil {
			s.logger.Warn("availability cache write failed", "doctor_id", doctorID, "err", err)
		}
	}
	return rec, nil
}

type availabilityUpdatedEvent struct {
	DoctorID    string   `json:"doctor_id"`
	WorkingDays []string `json:"working_days"`
	DailyStart  string   `json:"daily_start,omitempty"`
	DailyEnd    string   `json:"daily_end,omitempty"`
	ValidFrom   string   `json:"valid_from,omitempty"`
	ValidTo     string   `json:"valid_to,omitempty"`
	UpdatedAt   string   `json:"updated_at"`
}

// UpdateDoctorAvailability replaces the schedule and records the change for publication.
// The cache entry is dropped after commit; a failed drop only delays freshness until TTL.
func (s *AvailabilityService) UpdateDoctorAvailability(ctx context.Context, doctorID string, a schedule.Availability) (model.AvailabilityRecord, error) {
	if a.DailyStart != nil && a.DailyEnd != nil && a.DailyEnd.Before(*a.DailyStart) {
		return model.AvailabilityRecord{}, ErrInvalidWindow
	}
	if a.ValidFrom != nil && a.ValidTo != nil && a.ValidTo.Before(*a.ValidFrom) {
		return model.AvailabilityRecord{}, ErrInvalidValidity
	}

	rec := model.RecordOf(doctorID, a)
	rec.UpdatedAt = time.Now().UTC()

	tx, err := s.store.Begin(ctx)
	if err != nil {
		return model.AvailabilityRecord{}, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := s.store.Upsert(ctx, tx, rec); err != nil {
		return model.AvailabilityRecord{}, err
	}
	payload, err := json.Marshal(availabilityUpdatedEvent{
		DoctorID:    rec.DoctorID,
		WorkingDays: rec.WorkingDays,
		DailyStart:  rec.DailyStart,
		DailyEnd:    rec.DailyEnd,
		ValidFrom:   rec.ValidFrom,
		ValidTo:     rec.ValidTo,
		UpdatedAt:   rec.UpdatedAt.Format(time.RFC3339),
	})
	if err != nil {
		return model.AvailabilityRecord{}, err
	}
	if _, err := s.outbox.Insert(ctx, tx, outbox.Event{
		AggregateType: outbox.AggregateDoctorSchedule,
		AggregateID:   doctorID,
		EventType:     outbox.EventAvailabilityUpdated,
		Payload:       payload,
	}); err != nil {
		return model.AvailabilityRecord{}, fmt.Errorf("outbox insert: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return model.AvailabilityRecord{}, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, doctorID); err != nil {
			s.logger.Warn("availability cache invalidation failed", "doctor_id", doctorID, "err", err)
		}
	}
	return rec, nil
}

var (
	ErrInvalidWindow   = errors.New("daily_end must not be before daily_start")
	ErrInvalidValidity = errors.New("valid_to must not be before valid_from")
)
