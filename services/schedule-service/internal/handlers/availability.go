package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/clinicgrid/libs/auth"
	"github.com/md-rashed-zaman/clinicgrid/libs/httpx"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/model"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/schedule"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/source"
)

type AvailabilityService interface {
	GetDoctorAvailability(ctx context.Context, doctorID string) (*schedule.Availability, error)
	UpdateDoctorAvailability(ctx context.Context, doctorID string, a schedule.Availability) (model.AvailabilityRecord, error)
}

type AvailabilityHandler struct {
	svc    AvailabilityService
	logger *slog.Logger
}

func NewAvailabilityHandler(svc AvailabilityService, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{svc: svc, logger: logger}
}

type availabilityResponse struct {
	DoctorID    string   `json:"doctor_id"`
	Configured  bool     `json:"configured"`
	WorkingDays []string `json:"working_days"`
	DailyStart  string   `json:"daily_start,omitempty"`
	DailyEnd    string   `json:"daily_end,omitempty"`
	ValidFrom   string   `json:"valid_from,omitempty"`
	ValidTo     string   `json:"valid_to,omitempty"`
}

type updateAvailabilityRequest struct {
	WorkingDays []string `json:"working_days"`
	DailyStart  string   `json:"daily_start"`
	DailyEnd    string   `json:"daily_end"`
	ValidFrom   string   `json:"valid_from"`
	ValidTo     string   `json:"valid_to"`
}

type slotsResponse struct {
	DoctorID   string   `json:"doctor_id"`
	Configured bool     `json:"configured"`
	Slots      []string `json:"slots"`
	Warnings   []string `json:"warnings"`
}

// Availability serves GET (read) and PUT (replace) on one doctor's schedule.
func (h *AvailabilityHandler) Availability(w http.ResponseWriter, r *http.Request) {
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	switch r.Method {
	case http.MethodGet:
		if doctorID == "" {
			http.Error(w, "missing doctor_id", http.StatusBadRequest)
			return
		}
		a, err := h.svc.GetDoctorAvailability(r.Context(), doctorID)
		if err != nil {
			h.logger.Error("availability lookup failed", "doctor_id", doctorID, "err", err)
			http.Error(w, "availability unavailable", http.StatusServiceUnavailable)
			return
		}
		httpx.WriteJSON(w, http.StatusOK, toAvailabilityResponse(doctorID, a))
	case http.MethodPut:
		h.update(w, r, doctorID)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *AvailabilityHandler) update(w http.ResponseWriter, r *http.Request, doctorID string) {
	if doctorID == "" {
		http.Error(w, "missing doctor_id", http.StatusBadRequest)
		return
	}
	if claims, ok := auth.ClaimsFromContext(r.Context()); ok {
		switch claims.Role {
		case auth.RoleAdmin:
		case auth.RoleDoctor:
			if claims.Sub != doctorID {
				http.Error(w, "doctors may only edit their own schedule", http.StatusForbidden)
				return
			}
		default:
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	var req updateAvailabilityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	a, err := parseAvailability(req)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	rec, err := h.svc.UpdateDoctorAvailability(r.Context(), doctorID, a)
	if errors.Is(err, source.ErrInvalidWindow) || errors.Is(err, source.ErrInvalidValidity) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err != nil {
		h.logger.Error("availability update failed", "doctor_id", doctorID, "err", err)
		http.Error(w, "failed to update availability", http.StatusInternalServerError)
		return
	}
	h.logger.Info("availability updated", "doctor_id", doctorID, "working_days", rec.WorkingDays)

	normalized, _ := model.NormalizeAvailability(rec)
	httpx.WriteJSON(w, http.StatusOK, toAvailabilityResponse(doctorID, &normalized))
}

// Slots lists the slot labels of the doctor's daily window.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	doctorID := strings.TrimSpace(r.URL.Query().Get("doctor_id"))
	if doctorID == "" {
		http.Error(w, "missing doctor_id", http.StatusBadRequest)
		return
	}
	resp := slotsResponse{DoctorID: doctorID, Slots: []string{}, Warnings: []string{}}
	a, err := h.svc.GetDoctorAvailability(r.Context(), doctorID)
	if err != nil {
		h.logger.Warn("availability lookup failed", "doctor_id", doctorID, "err", err)
		resp.Warnings = append(resp.Warnings, source.WarnAvailability)
		httpx.WriteJSON(w, http.StatusOK, resp)
		return
	}
	resp.Slots = schedule.SlotLabels(a.Slots())
	resp.Configured = len(resp.Slots) > 0
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func parseAvailability(req updateAvailabilityRequest) (schedule.Availability, error) {
	var a schedule.Availability
	days, invalid := schedule.ParseWeekdaySet(req.WorkingDays)
	if len(invalid) > 0 {
		return a, errors.New("unknown weekday: " + strings.Join(invalid, ", "))
	}
	a.WorkingDays = days

	if (strings.TrimSpace(req.DailyStart) == "") != (strings.TrimSpace(req.DailyEnd) == "") {
		return a, errors.New("daily_start and daily_end must be set together")
	}
	if strings.TrimSpace(req.DailyStart) != "" {
		start, err := minuteClock(req.DailyStart)
		if err != nil {
			return a, errors.New("invalid daily_start")
		}
		end, err := minuteClock(req.DailyEnd)
		if err != nil {
			return a, errors.New("invalid daily_end")
		}
		a.DailyStart, a.DailyEnd = &start, &end
	}

	var err error
	if a.ValidFrom, err = optionalDate(req.ValidFrom); err != nil {
		return a, errors.New("invalid valid_from")
	}
	if a.ValidTo, err = optionalDate(req.ValidTo); err != nil {
		return a, errors.New("invalid valid_to")
	}
	return a, nil
}

// minuteClock accepts HH:MM or HH:MM:00; working hours are stored at minute precision.
func minuteClock(raw string) (civil.Time, error) {
	t, err := schedule.ParseClock(raw)
	if err != nil {
		return t, err
	}
	if t.Second != 0 || t.Nanosecond != 0 {
		return t, errors.New("seconds are not supported")
	}
	return t, nil
}

func optionalDate(raw string) (*civil.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	d, err := civil.ParseDate(raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func toAvailabilityResponse(doctorID string, a *schedule.Availability) availabilityResponse {
	resp := availabilityResponse{DoctorID: doctorID, WorkingDays: []string{}}
	if a == nil {
		return resp
	}
	rec := model.RecordOf(doctorID, *a)
	resp.Configured = a.Configured()
	resp.WorkingDays = rec.WorkingDays
	resp.DailyStart = rec.DailyStart
	resp.DailyEnd = rec.DailyEnd
	resp.ValidFrom = rec.ValidFrom
	resp.ValidTo = rec.ValidTo
	return resp
}
