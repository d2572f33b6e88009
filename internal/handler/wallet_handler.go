package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/shopspring/decimal"
)

type amountRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type balanceResponse struct {
	Balance decimal.Decimal `json:"balance"`
}

func (h *Handler) GetBalance(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	balance, err := h.walletService.GetBalance(r.Context(), userID)
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (h *Handler) Deposit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	balance, err := h.walletService.Deposit(r.Context(), userID, req.Amount)
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (h *Handler) Withdraw(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req amountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	balance, err := h.walletService.Withdraw(r.Context(), userID, req.Amount)
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, balanceResponse{Balance: balance})
}

func (h *Handler) WalletHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	entries, err := h.walletService.History(r.Context(), userID)
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, entries)
}
