package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/slotline/scheduling/internal/model"
	"github.com/slotline/scheduling/internal/queue"
)

type enqueueRequest struct {
	ClientID   string `json:"client_id"`
	ServiceID  string `json:"service_id"`
	ProviderID string `json:"provider_id"`
	Date       string `json:"date"`
}

type queueEntryResponse struct {
	EntryID     string `json:"entry_id"`
	ClientID    string `json:"client_id"`
	ServiceID   string `json:"service_id"`
	ProviderID  string `json:"provider_id,omitempty"`
	Date        string `json:"date"`
	Status      string `json:"status"`
	ArrivalTime string `json:"arrival_time"`
	QueueNumber int    `json:"queue_number"`
}

func toQueueEntryResponse(entry model.QueueEntry) queueEntryResponse {
	return queueEntryResponse{
		EntryID:     entry.ID,
		ClientID:    entry.ClientID,
		ServiceID:   entry.ServiceID,
		ProviderID:  entry.ProviderID,
		Date:        entry.Date,
		Status:      string(entry.Status),
		ArrivalTime: entry.ArrivalTime.UTC().Format(time.RFC3339),
		QueueNumber: entry.QueueNumber,
	}
}

// Queue enqueues a walk-in, lists a day's queue, or deletes one entry.
func (a *API) Queue(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.queueEnqueue(w, r)
	case http.MethodGet:
		a.queueList(w, r)
	case http.MethodDelete:
		a.queueDelete(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (a *API) queueEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	entry, err := a.queue.Enqueue(r.Context(), queue.EnqueueInput{
		ClientID:   strings.TrimSpace(req.ClientID),
		ServiceID:  strings.TrimSpace(req.ServiceID),
		ProviderID: strings.TrimSpace(req.ProviderID),
		Date:       strings.TrimSpace(req.Date),
	})
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toQueueEntryResponse(entry))
}

func (a *API) queueList(w http.ResponseWriter, r *http.Request) {
	date := queryParam(r, "date")
	if date == "" {
		http.Error(w, "date required", http.StatusBadRequest)
		return
	}
	entries, err := a.queue.ListDate(r.Context(), date)
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	items := make([]queueEntryResponse, 0, len(entries))
	for _, entry := range entries {
		items = append(items, toQueueEntryResponse(entry))
	}
	writeJSON(w, http.StatusOK, items)
}

func (a *API) queueDelete(w http.ResponseWriter, r *http.Request) {
	id := queryParam(r, "entry_id")
	if id == "" {
		http.Error(w, "entry_id required", http.StatusBadRequest)
		return
	}
	if err := a.queue.Remove(r.Context(), id); err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"entry_id": id, "status": "deleted"})
}

type queueStatusRequest struct {
	EntryID string `json:"entry_id"`
	Status  string `json:"status"`
}

func (a *API) QueueStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queueStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.EntryID = strings.TrimSpace(req.EntryID)
	to := model.QueueStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if req.EntryID == "" || to == "" {
		http.Error(w, "entry_id and status required", http.StatusBadRequest)
		return
	}
	switch to {
	case model.QueueWaiting, model.QueueInService, model.QueueDone, model.QueueCancelled:
	default:
		http.Error(w, "unknown status", http.StatusBadRequest)
		return
	}

	if err := a.queue.AdvanceStatus(r.Context(), req.EntryID, to); err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"entry_id": req.EntryID, "status": string(to)})
}

type queuePurgeRequest struct {
	Date string `json:"date"`
}

func (a *API) QueuePurge(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req queuePurgeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	n, err := a.queue.PurgeFinished(r.Context(), strings.TrimSpace(req.Date))
	if err != nil {
		a.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"date": req.Date, "removed": n})
}
