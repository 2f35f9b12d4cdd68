package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"finsync/internal/domain/simplefin"
)

type mockSyncRunner struct {
	SyncAllFunc func(ctx context.Context) (*simplefin.Stats, error)
}

func (m *mockSyncRunner) SyncAll(ctx context.Context) (*simplefin.Stats, error) {
	return m.SyncAllFunc(ctx)
}

func TestHandleTriggerSync(t *testing.T) {
	runner := &mockSyncRunner{
		SyncAllFunc: func(ctx context.Context) (*simplefin.Stats, error) {
			return &simplefin.Stats{
				AccountsCreated:       1,
				AccountsUpdated:       2,
				TransactionsCreated:   5,
				BalanceRecordsCreated: 3,
				SyncDurationMS:        120,
			}, nil
		},
	}
	handler := NewSyncHandler(runner)

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	w := httptest.NewRecorder()
	handler.HandleTriggerSync(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if got := w.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}

	var resp syncResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.Success {
		t.Error("success = false, want true")
	}
	if resp.Data == nil || resp.Data.TransactionsCreated != 5 {
		t.Errorf("data = %+v, want 5 transactions created", resp.Data)
	}
}

func TestHandleTriggerSyncMethodNotAllowed(t *testing.T) {
	handler := NewSyncHandler(&mockSyncRunner{
		SyncAllFunc: func(ctx context.Context) (*simplefin.Stats, error) {
			t.Fatal("sync should not run on GET")
			return nil, nil
		},
	})

	req := httptest.NewRequest(http.MethodGet, "/api/sync", nil)
	w := httptest.NewRecorder()
	handler.HandleTriggerSync(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", w.Code)
	}
}

func TestHandleTriggerSyncFailure(t *testing.T) {
	handler := NewSyncHandler(&mockSyncRunner{
		SyncAllFunc: func(ctx context.Context) (*simplefin.Stats, error) {
			return nil, errors.New("bridge unreachable")
		},
	})

	req := httptest.NewRequest(http.MethodPost, "/api/sync", nil)
	w := httptest.NewRecorder()
	handler.HandleTriggerSync(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}

	var resp syncResponse
	if err := json.NewDecoder(w.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Success {
		t.Error("success = true on failure")
	}
	if resp.Error == "" {
		t.Error("error message missing")
	}
}
