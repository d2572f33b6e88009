package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mkarpov/adboard-backend/internal/models"
	service "github.com/mkarpov/adboard-backend/internal/services"
)

type confirmPaymentRequest struct {
	TransactionID uuid.UUID `json:"transaction_id"`
	Status        string    `json:"status"`
}

// CreatePromotion opens a Pending transaction for the advertisement at the
// fixed promotion price.
func (h *Handler) CreatePromotion(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	adID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid advertisement id"))
		return
	}

	tx, err := h.promotions.Create(r.Context(), adID, userID, service.PromotionPrice, "Manual")
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusCreated, tx)
}

// ConfirmPayment settles a transaction; called by payment webhooks or
// admins, so the caller must carry the admin role.
func (h *Handler) ConfirmPayment(w http.ResponseWriter, r *http.Request) {
	if userRoleFromContext(r) != models.RoleAdmin {
		h.writeError(w, http.StatusForbidden, errors.New("admin role required"))
		return
	}

	var req confirmPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}

	tx, err := h.promotions.Confirm(r.Context(), req.TransactionID, models.TransactionStatus(req.Status))
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, tx)
}

func (h *Handler) PaymentHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	transactions, err := h.promotions.ListForUser(r.Context(), userID)
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, transactions)
}
