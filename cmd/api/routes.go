package main

import (
	"net/http"

	httphandlers "finsync/internal/interfaces/http"
	"finsync/internal/shared/middleware"
	"finsync/internal/shared/telemetry"
)

// SetupRoutes configures all HTTP routes and returns the final handler.
func SetupRoutes(deps *Dependencies) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", httphandlers.HandleHealth)
	mux.Handle("/metrics", telemetry.Handler())

	// Reconciliation trigger
	mux.HandleFunc("/api/sync", deps.SyncHandler.HandleTriggerSync)

	// Read-only account views
	mux.HandleFunc("/api/accounts", deps.AccountHandler.HandleListAccounts)
	mux.HandleFunc("/api/accounts/{id}", deps.AccountHandler.HandleAccountByID)
	mux.HandleFunc("/api/accounts/{id}/transactions", deps.AccountHandler.HandleAccountTransactions)
	mux.HandleFunc("/api/accounts/{id}/balances", deps.AccountHandler.HandleAccountBalances)

	return middleware.Logging(middleware.CORS(mux))
}
