package http

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"finsync/internal/domain/account"
	"finsync/internal/domain/balance"
	"finsync/internal/domain/transaction"
)

const (
	defaultTransactionLimit = 100
	defaultBalanceLimit     = 90
)

// AccountHandler serves the read-only account views. Writes go through
// reconciliation only.
type AccountHandler struct {
	accountRepo     account.Repository
	transactionRepo transaction.Repository
	balanceRepo     balance.Repository
}

func NewAccountHandler(accountRepo account.Repository, transactionRepo transaction.Repository, balanceRepo balance.Repository) *AccountHandler {
	return &AccountHandler{
		accountRepo:     accountRepo,
		transactionRepo: transactionRepo,
		balanceRepo:     balanceRepo,
	}
}

// HandleListAccounts returns all accounts.
func (h *AccountHandler) HandleListAccounts(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accounts, err := h.accountRepo.List(r.Context())
	if err != nil {
		log.Printf("Error listing accounts: %v", err)
		http.Error(w, "Failed to list accounts", http.StatusInternalServerError)
		return
	}
	if accounts == nil {
		accounts = []*account.Account{}
	}

	writeJSON(w, http.StatusOK, accounts)
}

// HandleAccountByID returns a single account.
func (h *AccountHandler) HandleAccountByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := r.PathValue("id")
	if accountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	acc, err := h.accountRepo.GetByID(r.Context(), accountID)
	if errors.Is(err, account.ErrAccountNotFound) {
		http.Error(w, "Account not found", http.StatusNotFound)
		return
	}
	if err != nil {
		log.Printf("Error getting account %s: %v", accountID, err)
		http.Error(w, "Failed to get account", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, acc)
}

// HandleAccountTransactions returns an account's transactions, newest first.
func (h *AccountHandler) HandleAccountTransactions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := r.PathValue("id")
	if accountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	limit := queryInt(r, "limit", defaultTransactionLimit)
	offset := queryInt(r, "offset", 0)

	transactions, err := h.transactionRepo.ListByAccountID(r.Context(), accountID, limit, offset)
	if err != nil {
		log.Printf("Error listing transactions for account %s: %v", accountID, err)
		http.Error(w, "Failed to list transactions", http.StatusInternalServerError)
		return
	}
	if transactions == nil {
		transactions = []*transaction.Transaction{}
	}

	writeJSON(w, http.StatusOK, transactions)
}

// HandleAccountBalances returns an account's balance history, newest first.
func (h *AccountHandler) HandleAccountBalances(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	accountID := r.PathValue("id")
	if accountID == "" {
		http.Error(w, "Account ID is required", http.StatusBadRequest)
		return
	}

	limit := queryInt(r, "limit", defaultBalanceLimit)

	records, err := h.balanceRepo.ListByAccountID(r.Context(), accountID, limit)
	if err != nil {
		log.Printf("Error listing balance history for account %s: %v", accountID, err)
		http.Error(w, "Failed to list balance history", http.StatusInternalServerError)
		return
	}
	if records == nil {
		records = []*balance.Record{}
	}

	writeJSON(w, http.StatusOK, records)
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}
