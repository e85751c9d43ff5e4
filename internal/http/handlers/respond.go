// Package handlers exposes the booking engine over HTTP.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HELLO-50/Sahatak-sub003/internal/appointment"
)

// errorResponse is the uniform error payload.
type errorResponse struct {
	Error         string `json:"error"`
	Field         string `json:"field,omitempty"`
	Reason        string `json:"reason,omitempty"`
	CurrentStatus string `json:"current_status,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		_ = json.NewEncoder(w).Encode(payload)
	}
}

// writeError maps the booking error taxonomy onto HTTP statuses.
// Transient lock contention answers 503 with a Retry-After hint so
// clients back off instead of hammering the slot.
func writeError(w http.ResponseWriter, err error) {
	var verr *appointment.ValidationError
	if errors.As(err, &verr) {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: verr.Message, Field: verr.Field})
		return
	}
	var perr *appointment.PermissionError
	if errors.As(err, &perr) {
		writeJSON(w, http.StatusForbidden, errorResponse{Error: perr.Message})
		return
	}
	var conflict *appointment.ConflictError
	if errors.As(err, &conflict) {
		writeJSON(w, http.StatusConflict, errorResponse{
			Error:         conflict.Error(),
			Reason:        string(conflict.Reason),
			CurrentStatus: string(conflict.CurrentStatus),
		})
		return
	}
	if errors.Is(err, appointment.ErrSlotBusy) {
		w.Header().Set("Retry-After", "1")
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "slot is busy, retry shortly"})
		return
	}
	if errors.Is(err, appointment.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "appointment not found"})
		return
	}
	writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
}
