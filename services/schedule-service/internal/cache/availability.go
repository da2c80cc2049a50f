package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/model"
	"github.com/redis/go-redis/v9"
)

const defaultTTL = 5 * time.Minute

// AvailabilityCache keeps raw availability records in Redis as JSON.
type AvailabilityCache struct {
	rdb    redis.Cmdable
	ttl    time.Duration
	prefix string
}

func NewAvailabilityCache(rdb redis.Cmdable, ttl time.Duration) *AvailabilityCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &AvailabilityCache{rdb: rdb, ttl: ttl, prefix: "schedule:availability:"}
}

type cachedAvailability struct {
	DoctorID    string    `json:"doctor_id"`
	WorkingDays []string  `json:"working_days"`
	DailyStart  string    `json:"daily_start,omitempty"`
	DailyEnd    string    `json:"daily_end,omitempty"`
	ValidFrom   string    `json:"valid_from,omitempty"`
	ValidTo     string    `json:"valid_to,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (c *AvailabilityCache) key(doctorID string) string {
	return c.prefix + doctorID
}

// Get reports a miss with ok=false and a nil error.
func (c *AvailabilityCache) Get(ctx context.Context, doctorID string) (model.AvailabilityRecord, bool, error) {
	data, err := c.rdb.Get(ctx, c.key(doctorID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return model.AvailabilityRecord{}, false, nil
	}
	if err != nil {
		return model.AvailabilityRecord{}, false, fmt.Errorf("cache: get availability: %w", err)
	}
	var v cachedAvailability
	if err := json.Unmarshal(data, &v); err != nil {
		// A corrupt entry behaves like a miss and is overwritten on the next Set.
		return model.AvailabilityRecord{}, false, nil
	}
	return model.AvailabilityRecord{
		DoctorID:    v.DoctorID,
		WorkingDays: v.WorkingDays,
		DailyStart:  v.DailyStart,
		DailyEnd:    v.DailyEnd,
		ValidFrom:   v.ValidFrom,
		ValidTo:     v.ValidTo,
		UpdatedAt:   v.UpdatedAt,
	}, true, nil
}

func (c *AvailabilityCache) Set(ctx context.Context, rec model.AvailabilityRecord) error {
	data, err := json.Marshal(cachedAvailability{
		DoctorID:    rec.DoctorID,
		WorkingDays: rec.WorkingDays,
		DailyStart:  rec.DailyStart,
		DailyEnd:    rec.DailyEnd,
		ValidFrom:   rec.ValidFrom,
		ValidTo:     rec.ValidTo,
		UpdatedAt:   rec.UpdatedAt,
	})
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, c.key(rec.DoctorID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("cache: set availability: %w", err)
	}
	return nil
}

func (c *AvailabilityCache) Invalidate(ctx context.Context, doctorID string) error {
	if err := c.rdb.Del(ctx, c.key(doctorID)).Err(); err != nil {
		return fmt.Errorf("cache: invalidate availability: %w", err)
	}
	return nil
}

// ReadyCheck pings Redis for /readyz.
func ReadyCheck(rdb redis.Cmdable) func(context.Context) error {
	return func(ctx context.Context) error {
		return rdb.Ping(ctx).Err()
	}
}
