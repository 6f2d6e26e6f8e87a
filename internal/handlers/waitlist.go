package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/internal/waitlist"
)

type waitlistAddRequest struct {
	ClientID   string `json:"client_id"`
	ServiceID  string `json:"service_id"`
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	Notes      string `json:"notes"`
}

type waitlistEntryResponse struct {
	EntryID    string `json:"entry_id"`
	ClientID   string `json:"client_id"`
	ServiceID  string `json:"service_id,omitempty"`
	ProviderID string `json:"provider_id,omitempty"`
	Date       string `json:"date"`
	Notes      string `json:"notes,omitempty"`
	Notified   bool   `json:"notified"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
}

func toWaitlistEntryResponse(entry model.WaitingListEntry) waitlistEntryResponse {
	return waitlistEntryResponse{
		EntryID:    entry.ID,
		ClientID:   entry.ClientID,
		ServiceID:  entry.ServiceID,
		ProviderID: entry.ProviderID,
		Date:       entry.Date,
		Notes:      entry.Notes,
		Notified:   entry.Notified,
		Status:     string(entry.Status),
		CreatedAt:  entry.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Waitlist adds an entry or lists the WAITING entries of a day.
func (a *API) Waitlist(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.waitlistAdd(w, r)
	case http.MethodGet:
		a.waitlistList(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) waitlistAdd(w http.ResponseWriter, r *http.Request) {
	var req waitlistAddRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := a.waitlist.Add(r.Context(), waitlist.AddInput{
		ClientID:   strings.TrimSpace(req.ClientID),
		ServiceID:  strings.TrimSpace(req.ServiceID),
		ProviderID: strings.TrimSpace(req.ProviderID),
		Date:       strings.TrimSpace(req.Date),
		Notes:      req.Notes,
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWaitlistEntryResponse(entry))
}

func (a *API) waitlistList(w http.ResponseWriter, r *http.Request) {
	date := queryParam(r, "date")
	if date == "" {
		http.Error(w, "date required", http.StatusBadRequest)
		return
	}
	entries, err := a.waitlist.ListForDate(r.Context(), date)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	items := make([]waitlistEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toWaitlistEntryResponse(entry))
	}
	writeJSON(w, http.StatusOK, items)
}

type waitlistNotifyRequest struct {
	EntryID string `json:"entry_id"`
}

func (a *API) WaitlistNotify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req waitlistNotifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EntryID = strings.TrimSpace(req.EntryID)
	if req.EntryID == "" {
		http.Error(w, "entry_id required", http.StatusBadRequest)
		return
	}

	if err := a.waitlist.MarkNotified(r.Context(), req.EntryID); err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"entry_id": req.EntryID,
		"status":   string(model.WaitlistNotified),
	})
}

func (a *API) WaitlistMatches(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	date := queryParam(r, "date")
	if date == "" {
		http.Error(w, "date required", http.StatusBadRequest)
		return
	}
	matches, err := a.waitlist.ListMatches(r.Context(), date)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	type matchItem struct {
		MatchID       string `json:"match_id"`
		EntryID       string `json:"entry_id"`
		AppointmentID string `json:"appointment_id"`
		Date          string `json:"date"`
		FreedTime     string `json:"freed_time"`
		CreatedAt     string `json:"created_at"`
	}
	items := make([]matchItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, matchItem{
			MatchID:       m.ID,
			EntryID:       m.EntryID,
			AppointmentID: m.AppointmentID,
			Date:          m.Date,
			FreedTime:     model.FormatClock(m.FreedStartMinute),
			CreatedAt:     m.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, items)
}
