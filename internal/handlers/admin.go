package handlers

import (
	"net/http"
	"strings"

	"github.com/slotline/scheduling/internal/model"
)

type blockRequest struct {
	ProviderID string `json:"provider_id"`
	LocationID string `json:"location_id"`
	Date       string `json:"date"`
	From       string `json:"from"`
	To         string `json:"to"`
	Reason     string `json:"reason"`
}

func (a *API) BlockRange(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req blockRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.ProviderID == "" {
		http.Error(w, "provider_id required", http.StatusBadRequest)
		return
	}
	from, err := model.ParseClock(strings.TrimSpace(req.From))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	to, err := model.ParseClock(strings.TrimSpace(req.To))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	err = a.booking.BlockRange(r.Context(), req.ProviderID, strings.TrimSpace(req.LocationID),
		strings.TrimSpace(req.Date), from, to, strings.TrimSpace(req.Reason), actorID(r))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"provider_id": req.ProviderID,
		"date":        req.Date,
		"from":        req.From,
		"to":          req.To,
		"status":      string(model.StatusBlocked),
	})
}

type releaseRequest struct {
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
	From       string `json:"from"`
	To         string `json:"to"`
}

func (a *API) ReleaseBlocks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req releaseRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.ProviderID == "" {
		http.Error(w, "provider_id required", http.StatusBadRequest)
		return
	}
	from, err := model.ParseClock(strings.TrimSpace(req.From))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	to, err := model.ParseClock(strings.TrimSpace(req.To))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}

	if err := a.booking.ReleaseBlockRange(r.Context(), req.ProviderID, strings.TrimSpace(req.Date), from, to, actorID(r)); err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"provider_id": req.ProviderID,
		"date":        req.Date,
		"from":        req.From,
		"to":          req.To,
		"status":      "released",
	})
}

type closeDayRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

func (a *API) CloseDay(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req closeDayRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := a.booking.CloseDay(r.Context(), strings.TrimSpace(req.Date), strings.TrimSpace(req.Reason), actorID(r)); err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{
		"date":   req.Date,
		"status": "closed",
	})
}

type scheduleDay struct {
	Weekday    int    `json:"weekday"`
	IsActive   bool   `json:"is_active"`
	Start      string `json:"start,omitempty"`
	End        string `json:"end,omitempty"`
	BreakStart string `json:"break_start,omitempty"`
	BreakEnd   string `json:"break_end,omitempty"`
	LocationID string `json:"location_id,omitempty"`
}

func toScheduleDay(day model.DayAvailability) scheduleDay {
	out := scheduleDay{
		Weekday:    day.Weekday,
		IsActive:   day.IsActive,
		LocationID: day.LocationID,
	}
	if day.IsActive {
		out.Start = model.FormatClock(day.StartMinute)
		out.End = model.FormatClock(day.EndMinute)
	}
	if day.BreakStart != nil {
		out.BreakStart = model.FormatClock(*day.BreakStart)
	}
	if day.BreakEnd != nil {
		out.BreakEnd = model.FormatClock(*day.BreakEnd)
	}
	return out
}

// Schedule gets or edits the weekly template of a provider.
func (a *API) Schedule(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		a.scheduleWeek(w, r)
	case http.MethodPut:
		a.scheduleEdit(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) scheduleWeek(w http.ResponseWriter, r *http.Request) {
	providerID := queryParam(r, "provider_id")
	if providerID == "" {
		http.Error(w, "provider_id required", http.StatusBadRequest)
		return
	}
	week, err := a.schedules.Week(r.Context(), providerID)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	items := make([]scheduleDay, 0, len(week))
	for _, day := range week {
		items = append(items, toScheduleDay(day))
	}
	writeJSON(w, http.StatusOK, items)
}

type scheduleEditRequest struct {
	ProviderID string `json:"provider_id"`
	Weekday    int    `json:"weekday"`
	IsActive   bool   `json:"is_active"`
	Start      string `json:"start"`
	End        string `json:"end"`
	BreakStart string `json:"break_start"`
	BreakEnd   string `json:"break_end"`
	LocationID string `json:"location_id"`
}

func (a *API) scheduleEdit(w http.ResponseWriter, r *http.Request) {
	var req scheduleEditRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ProviderID = strings.TrimSpace(req.ProviderID)
	if req.ProviderID == "" {
		http.Error(w, "provider_id required", http.StatusBadRequest)
		return
	}

	day := model.DayAvailability{
		Weekday:    req.Weekday,
		IsActive:   req.IsActive,
		LocationID: strings.TrimSpace(req.LocationID),
	}
	if req.IsActive {
		start, err := model.ParseClock(strings.TrimSpace(req.Start))
		if err != nil {
			a.writeDomainError(w, err)
			return
		}
		end, err := model.ParseClock(strings.TrimSpace(req.End))
		if err != nil {
			a.writeDomainError(w, err)
			return
		}
		day.StartMinute = start
		day.EndMinute = end
		if req.BreakStart != "" {
			bs, err := model.ParseClock(strings.TrimSpace(req.BreakStart))
			if err != nil {
				a.writeDomainError(w, err)
				return
			}
			day.BreakStart = &bs
		}
		if req.BreakEnd != "" {
			be, err := model.ParseClock(strings.TrimSpace(req.BreakEnd))
			if err != nil {
				a.writeDomainError(w, err)
				return
			}
			day.BreakEnd = &be
		}
	}

	saved, err := a.schedules.EditDay(r.Context(), req.ProviderID, day)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toScheduleDay(saved))
}
