package handler

import (
	"context"
	"log/slog"
	"net/http"
)

// VaultService defines the account-ledger operations the handler requires.
type VaultService interface {
	Deposit(ctx context.Context, account string, amount uint64) error
	Balance(ctx context.Context, account string) (uint64, error)
}

// VaultHandler serves account funding and balance HTTP endpoints.
type VaultHandler struct {
	vault  VaultService
	logger *slog.Logger
}

// NewVaultHandler creates a VaultHandler.
func NewVaultHandler(vault VaultService, logger *slog.Logger) *VaultHandler {
	return &VaultHandler{
		vault:  vault,
		logger: logger,
	}
}

type depositRequest struct {
	Account string `json:"account"`
	Amount  uint64 `json:"amount"`
}

// Deposit credits an account, creating it on first use. Every wager and
// liquidity deposit draws on a balance funded here.
// POST /api/vault/deposit
func (h *VaultHandler) Deposit(w http.ResponseWriter, r *http.Request) {
	var req depositRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Account == "" {
		writeError(w, http.StatusBadRequest, "account is required")
		return
	}

	if err := h.vault.Deposit(r.Context(), req.Account, req.Amount); err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: vault deposit failed",
				slog.String("account", req.Account),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	balance, err := h.vault.Balance(r.Context(), req.Account)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: vault balance failed",
				slog.String("account", req.Account),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account": req.Account,
		"balance": balance,
	})
}

// GetBalance returns an account's balance; an unknown account reads as zero.
// GET /api/vault/{account}
func (h *VaultHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	account := pathParam(r, "account")

	balance, err := h.vault.Balance(r.Context(), account)
	if err != nil {
		if writeDomainError(w, err) == http.StatusInternalServerError {
			h.logger.ErrorContext(r.Context(), "handler: vault balance failed",
				slog.String("account", account),
				slog.String("error", err.Error()),
			)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"account": account,
		"balance": balance,
	})
}
