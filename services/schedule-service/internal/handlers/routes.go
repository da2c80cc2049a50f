package handlers

import (
	"net/http"

	"github.com/md-rashed-zaman/clinicgrid/libs/auth"
)

// ScheduleRoles may read grids and schedules. Writes are further limited to admins and the
// doctor who owns the schedule.
var ScheduleRoles = []string{auth.RoleAdmin, auth.RoleDoctor, auth.RoleStaff}

// Register mounts the schedule API. A nil verifier leaves the routes open, for local runs.
func Register(mux *http.ServeMux, sh *ScheduleHandler, ah *AvailabilityHandler, verifier *auth.Verifier) {
	protect := func(h http.HandlerFunc) http.Handler {
		if verifier == nil {
			return h
		}
		return auth.RequireAuth(auth.RequireRole(h, ScheduleRoles...), *verifier)
	}

	mux.Handle("/api/v1/schedule/week", protect(sh.Week))
	mux.Handle("/api/v1/schedule/slot", protect(sh.Slot))
	mux.Handle("/api/v1/schedule/slots", protect(ah.Slots))
	mux.Handle("/api/v1/schedule/availability", protect(ah.Availability))
}
