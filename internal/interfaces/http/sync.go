// Package http holds the transport-layer handlers.
package http

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"finsync/internal/domain/simplefin"
)

// SyncRunner is what the trigger endpoint needs from the sync engine.
type SyncRunner interface {
	SyncAll(ctx context.Context) (*simplefin.Stats, error)
}

// SyncHandler exposes the manual reconciliation trigger.
type SyncHandler struct {
	syncService SyncRunner
}

func NewSyncHandler(syncService SyncRunner) *SyncHandler {
	return &SyncHandler{syncService: syncService}
}

type syncResponse struct {
	Success bool             `json:"success"`
	Data    *simplefin.Stats `json:"data,omitempty"`
	Error   string           `json:"error,omitempty"`
}

// HandleTriggerSync runs a reconciliation pass now and returns its summary.
// A failed pass surfaces as one failure signal; there is no partial-result
// reporting.
func (h *SyncHandler) HandleTriggerSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := h.syncService.SyncAll(r.Context())
	if err != nil {
		log.Printf("Manual sync failed: %v", err)
		writeJSON(w, http.StatusInternalServerError, syncResponse{Success: false, Error: "sync failed"})
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{Success: true, Data: stats})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
