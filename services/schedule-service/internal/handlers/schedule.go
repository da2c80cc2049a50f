package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/md-rashed-zaman/clinicgrid/libs/httpx"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/metrics"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/schedule"
	"github.com/md-rashed-zaman/clinicgrid/services/schedule-service/internal/source"
)

type SnapshotLoader interface {
	Load(ctx context.Context, doctorID string, week [7]civil.Date) source.Snapshot
}

type ScheduleHandler struct {
	loader  SnapshotLoader
	metrics *metrics.GridMetrics
	logger  *slog.Logger
	loc     *time.Location
	now     func() time.Time
}

// NewScheduleHandler renders grids in loc; "today" and past cells follow that zone's calendar.
func NewScheduleHandler(loader SnapshotLoader, m *metrics.GridMetrics, logger *slog.Logger, loc *time.Location) *ScheduleHandler {
	if loc == nil {
		loc = time.Local
	}
	return &ScheduleHandler{loader: loader, metrics: m, logger: logger, loc: loc, now: time.Now}
}

type bookingSummary struct {
	BookingCode  string `json:"booking_code"`
	CustomerName string `json:"customer_name"`
	ServiceName  string `json:"service_name"`
	Status       string `json:"status"`
}

type cellItem struct {
	Date     string          `json:"date"`
	State    string          `json:"state"`
	Tone     string          `json:"tone,omitempty"`
	Icon     string          `json:"icon,omitempty"`
	Overlaps int             `json:"overlaps,omitempty"`
	Booking  *bookingSummary `json:"booking,omitempty"`
}

type rowItem struct {
	Slot  string     `json:"slot"`
	Cells []cellItem `json:"cells"`
}

type weekResponse struct {
	DoctorID      string         `json:"doctor_id"`
	ReferenceDate string         `json:"reference_date"`
	Today         string         `json:"today"`
	Week          []string       `json:"week"`
	PreviousWeek  string         `json:"previous_week"`
	NextWeek      string         `json:"next_week"`
	Configured    bool           `json:"configured"`
	Message       string         `json:"message,omitempty"`
	Slots         []string       `json:"slots"`
	Rows          []rowItem      `json:"rows"`
	Counts        map[string]int `json:"counts"`
	Warnings      []string       `json:"warnings"`
}

type slotDetailResponse struct {
	BookingCode      string   `json:"booking_code"`
	CustomerName     string   `json:"customer_name"`
	ServiceName      string   `json:"service_name"`
	BookingDate      string   `json:"booking_date"`
	StartTime        string   `json:"start_time"`
	Status           string   `json:"status"`
	Notes            string   `json:"notes"`
	Tone             string   `json:"tone"`
	Icon             string   `json:"icon"`
	OverlappingCodes []string `json:"overlapping_codes,omitempty"`
}

const noWorkingHours = "No working hours configured"

// Week renders the grid for the week holding date (default today), optionally shifted by nav.
func (h *ScheduleHandler) Week(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	doctorID := strings.TrimSpace(q.Get("doctor_id"))
	if doctorID == "" {
		http.Error(w, "missing doctor_id", http.StatusBadRequest)
		return
	}

	now := h.now().In(h.loc)
	view := schedule.NewView(doctorID, now)
	if d, err := civil.ParseDate(strings.TrimSpace(q.Get("date"))); err == nil {
		view = view.JumpTo(d)
	}
	switch nav := strings.TrimSpace(q.Get("nav")); {
	case strings.EqualFold(nav, "today"):
		view = view.Today(now)
	case nav != "":
		if dir, ok := schedule.ParseDirection(nav); ok {
			view = view.Navigate(dir)
		}
	}

	started := time.Now()
	week := view.Week()
	snap := h.loader.Load(r.Context(), doctorID, week)
	grid := schedule.BuildGrid(snap.Availability, snap.Bookings, view.Reference, civil.DateOf(now))

	counts := make(map[string]int, 4)
	for state, n := range grid.Counts() {
		counts[string(state)] = n
	}
	h.metrics.ObserveGrid(grid.Configured, counts, time.Since(started))

	resp := weekResponse{
		DoctorID:      doctorID,
		ReferenceDate: view.Reference.String(),
		Today:         civil.DateOf(now).String(),
		Week:          make([]string, 0, len(week)),
		PreviousWeek:  view.Navigate(schedule.Previous).Reference.String(),
		NextWeek:      view.Navigate(schedule.Next).Reference.String(),
		Configured:    grid.Configured,
		Slots:         schedule.SlotLabels(grid.Slots),
		Rows:          make([]rowItem, 0, len(grid.Rows)),
		Counts:        counts,
		Warnings:      append([]string{}, snap.Warnings...),
	}
	for _, d := range week {
		resp.Week = append(resp.Week, d.String())
	}
	if !grid.Configured {
		resp.Message = noWorkingHours
	}
	for i, row := range grid.Rows {
		item := rowItem{Slot: schedule.SlotLabel(grid.Slots[i]), Cells: make([]cellItem, 0, len(row))}
		for _, c := range row {
			item.Cells = append(item.Cells, toCellItem(c))
		}
		resp.Rows = append(resp.Rows, item)
	}

	httpx.WriteJSON(w, http.StatusOK, resp)
}

// Slot returns the read-only detail of the booking occupying one cell.
func (h *ScheduleHandler) Slot(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	doctorID := strings.TrimSpace(q.Get("doctor_id"))
	if doctorID == "" {
		http.Error(w, "missing doctor_id", http.StatusBadRequest)
		return
	}
	date, err := civil.ParseDate(strings.TrimSpace(q.Get("date")))
	if err != nil {
		http.Error(w, "invalid date", http.StatusBadRequest)
		return
	}
	slot, err := schedule.ParseClock(q.Get("slot"))
	if err != nil {
		http.Error(w, "invalid slot", http.StatusBadRequest)
		return
	}

	now := h.now().In(h.loc)
	snap := h.loader.Load(r.Context(), doctorID, schedule.WeekDatesContaining(date))
	grid := schedule.BuildGrid(snap.Availability, snap.Bookings, date, civil.DateOf(now))

	detail, ok := grid.Select(date, slot)
	if !ok {
		http.Error(w, "no booking in slot", http.StatusNotFound)
		return
	}
	style := schedule.StyleFor(detail.Status)
	resp := slotDetailResponse{
		BookingCode:  detail.BookingCode,
		CustomerName: detail.CustomerName,
		ServiceName:  detail.ServiceName,
		BookingDate:  detail.BookingDate.String(),
		StartTime:    schedule.SlotLabel(detail.StartTime),
		Status:       string(detail.Status),
		Notes:        detail.Notes,
		Tone:         style.Tone,
		Icon:         style.Icon,
	}
	if matches := schedule.BookingsForSlot(snap.Bookings, date, slot); len(matches) > 1 {
		for _, b := range matches[1:] {
			resp.OverlappingCodes = append(resp.OverlappingCodes, b.Code)
		}
	}
	httpx.WriteJSON(w, http.StatusOK, resp)
}

func toCellItem(c schedule.Cell) cellItem {
	item := cellItem{Date: c.Date.String(), State: string(c.State)}
	if style, ok := c.Style(); ok {
		item.Tone = style.Tone
		item.Icon = style.Icon
		item.Overlaps = c.Overlaps
		item.Booking = &bookingSummary{
			BookingCode:  c.Booking.Code,
			CustomerName: c.Booking.CustomerName,
			ServiceName:  c.Booking.ServiceName,
			Status:       string(c.Booking.Status),
		}
	}
	return item
}
