// Package handlers exposes the scheduling HTTP API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/slotline/scheduling/internal/booking"
	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/internal/queue"
	"github.com/slotline/scheduling/internal/schedule"
	"github.com/slotline/scheduling/internal/waitlist"
)

type API struct {
	booking   *booking.Service
	schedules *schedule.Service
	queue     *queue.Service
	waitlist  *waitlist.Service
	logger    *slog.Logger
	jwtSecret string
}

func NewAPI(bookingSvc *booking.Service, scheduleSvc *schedule.Service, queueSvc *queue.Service, waitlistSvc *waitlist.Service, logger *slog.Logger, jwtSecret string) *API {
	return &API{
		booking:   bookingSvc,
		schedules: scheduleSvc,
		queue:     queueSvc,
		waitlist:  waitlistSvc,
		logger:    logger,
		jwtSecret: jwtSecret,
	}
}

// Register wires the routes onto the mux. Public routes need no token; the
// rest require a staff token, and the admin routes an admin one.
func (a *API) Register(mux *http.ServeMux) {
	staff := a.requireRole("staff", "admin")
	admin := a.requireRole("admin")

	mux.HandleFunc("/api/v1/public/slots", a.Slots)
	mux.HandleFunc("/api/v1/public/book", a.Book)

	mux.Handle("/api/v1/appointments", staff(http.HandlerFunc(a.Appointments)))
	mux.Handle("/api/v1/appointments/cancel", staff(http.HandlerFunc(a.CancelAppointment)))
	mux.Handle("/api/v1/appointments/status", staff(http.HandlerFunc(a.AppointmentStatus)))

	mux.Handle("/api/v1/admin/blocks", admin(http.HandlerFunc(a.BlockRange)))
	mux.Handle("/api/v1/admin/blocks/release", admin(http.HandlerFunc(a.ReleaseBlocks)))
	mux.Handle("/api/v1/admin/day-close", admin(http.HandlerFunc(a.CloseDay)))
	mux.Handle("/api/v1/admin/schedule", admin(http.HandlerFunc(a.Schedule)))

	mux.Handle("/api/v1/queue", staff(http.HandlerFunc(a.Queue)))
	mux.Handle("/api/v1/queue/status", staff(http.HandlerFunc(a.QueueStatus)))
	mux.Handle("/api/v1/queue/purge", staff(http.HandlerFunc(a.QueuePurge)))

	mux.Handle("/api/v1/waitlist", staff(http.HandlerFunc(a.Waitlist)))
	mux.Handle("/api/v1/waitlist/notify", staff(http.HandlerFunc(a.WaitlistNotify)))
	mux.Handle("/api/v1/waitlist/matches", staff(http.HandlerFunc(a.WaitlistMatches)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// writeDomainError maps the model error kinds onto HTTP statuses. Anything
// unrecognized is a 500 with a generic body; the real error goes to the log.
func (a *API) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, model.ErrValidation):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, model.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, model.ErrConflict):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, model.ErrInvalidTransition):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		a.logger.Error("request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	return true
}

func queryParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.URL.Query().Get(key))
}
