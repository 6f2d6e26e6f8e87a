package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/slotline/scheduling/internal/booking"
	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/internal/slots"
)

// Slots is the public availability endpoint. Times come back as HH:MM
// strings grouped by day part.
func (a *API) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	providerID := queryParam(r, "provider_id")
	locationID := queryParam(r, "location_id")
	date := queryParam(r, "date")
	if providerID == "" || locationID == "" || date == "" {
		http.Error(w, "provider_id, location_id and date are required", http.StatusBadRequest)
		return
	}
	duration := model.SlotStepMinutes
	if raw := queryParam(r, "duration_minutes"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 || n > 8*60 {
			http.Error(w, "invalid duration_minutes", http.StatusBadRequest)
			return
		}
		duration = n
	}

	starts, err := a.booking.ListAvailableSlots(r.Context(), providerID, date, duration, locationID)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, slots.Group(starts))
}

type bookRequest struct {
	ClientID   string  `json:"client_id"`
	ProviderID string  `json:"provider_id"`
	LocationID string  `json:"location_id"`
	ServiceID  string  `json:"service_id"`
	Date       string  `json:"date"`
	Time       string  `json:"time"`
	Price      float64 `json:"price"`
	SqueezeIn  bool    `json:"squeeze_in"`
	Notes      string  `json:"notes"`
}

type appointmentResponse struct {
	AppointmentID string  `json:"appointment_id"`
	ClientID      string  `json:"client_id,omitempty"`
	ProviderID    string  `json:"provider_id"`
	LocationID    string  `json:"location_id,omitempty"`
	ServiceID     string  `json:"service_id,omitempty"`
	Date          string  `json:"date"`
	Time          string  `json:"time"`
	Duration      int     `json:"duration_minutes"`
	Status        string  `json:"status"`
	Price         float64 `json:"price,omitempty"`
	SqueezeIn     bool    `json:"squeeze_in,omitempty"`
	Kind          string  `json:"kind"`
}

func toAppointmentResponse(appt model.Appointment) appointmentResponse {
	return appointmentResponse{
		AppointmentID: appt.ID,
		ClientID:      appt.ClientID,
		ProviderID:    appt.ProviderID,
		LocationID:    appt.LocationID,
		ServiceID:     appt.ServiceID,
		Date:          appt.Date,
		Time:          model.FormatClock(appt.StartMinute),
		Duration:      appt.DurationMinutes,
		Status:        string(appt.Status),
		Price:         appt.Price,
		SqueezeIn:     appt.SqueezeIn,
		Kind:          string(appt.Kind),
	}
}

// Book creates an appointment. Retries with the same Idempotency-Key return
// the original appointment instead of double booking.
func (a *API) Book(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bookRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	start, err := model.ParseClock(strings.TrimSpace(req.Time))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	appt, err := a.booking.Create(r.Context(), booking.CreateInput{
		ClientID:       strings.TrimSpace(req.ClientID),
		ProviderID:     strings.TrimSpace(req.ProviderID),
		LocationID:     strings.TrimSpace(req.LocationID),
		ServiceID:      strings.TrimSpace(req.ServiceID),
		Date:           strings.TrimSpace(req.Date),
		StartMinute:    start,
		Price:          req.Price,
		SqueezeIn:      req.SqueezeIn,
		Notes:          req.Notes,
		IdempotencyKey: strings.TrimSpace(r.Header.Get("Idempotency-Key")),
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toAppointmentResponse(appt))
}

// Appointments lists a provider's day, bookings and blocks alike.
func (a *API) Appointments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	providerID := queryParam(r, "provider_id")
	date := queryParam(r, "date")
	if providerID == "" || date == "" {
		http.Error(w, "provider_id and date are required", http.StatusBadRequest)
		return
	}

	appts, err := a.booking.ListDay(r.Context(), providerID, date)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	items := make([]appointmentResponse, 0, len(appts))
	for _, appt := range appts {
		items = append(items, toAppointmentResponse(appt))
	}
	writeJSON(w, http.StatusOK, items)
}

type cancelRequest struct {
	AppointmentID string `json:"appointment_id"`
	Reason        string `json:"reason"`
}

func (a *API) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	if req.AppointmentID == "" {
		http.Error(w, "appointment_id required", http.StatusBadRequest)
		return
	}

	if err := a.booking.Cancel(r.Context(), req.AppointmentID, strings.TrimSpace(req.Reason), actorID(r)); err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"appointment_id": req.AppointmentID,
		"status":         string(model.StatusCancelled),
	})
}

type statusRequest struct {
	AppointmentID string `json:"appointment_id"`
	Status        string `json:"status"`
}

func (a *API) AppointmentStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AppointmentID = strings.TrimSpace(req.AppointmentID)
	to := model.AppointmentStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if req.AppointmentID == "" || to == "" {
		http.Error(w, "appointment_id and status required", http.StatusBadRequest)
		return
	}
	switch to {
	case model.StatusPending, model.StatusConfirmed, model.StatusCompleted, model.StatusCancelled, model.StatusBlocked:
	default:
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	if err := a.booking.UpdateStatus(r.Context(), req.AppointmentID, to, actorID(r)); err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"appointment_id": req.AppointmentID,
		"status":         string(to),
	})
}
