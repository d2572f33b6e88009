package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/auth"
	service "github.com/mkarpov/adboard-backend/internal/services"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
)

type Handler struct {
	authService    service.AuthService
	walletService  service.WalletService
	promotions     service.PromotionService
	advertisements service.AdvertisementService
}

func NewHandler(
	authService service.AuthService,
	walletService service.WalletService,
	promotions service.PromotionService,
	advertisements service.AdvertisementService,
) *Handler {
	return &Handler{
		authService:    authService,
		walletService:  walletService,
		promotions:     promotions,
		advertisements: advertisements,
	}
}

func (h *Handler) RegisterPublicRoutes(r *mux.Router) {
	r.HandleFunc("/auth/register", h.Register).Methods("POST")
	r.HandleFunc("/auth/login", h.Login).Methods("POST")
	r.HandleFunc("/auth/refresh", h.Refresh).Methods("POST")
	r.HandleFunc("/auth/logout", h.Logout).Methods("POST")
	r.HandleFunc("/ads", h.ListAdvertisements).Methods("GET")
	r.HandleFunc("/ads/{id}", h.GetAdvertisement).Methods("GET")
}

func (h *Handler) RegisterProtectedRoutes(r *mux.Router) {
	r.HandleFunc("/ads", h.CreateAdvertisement).Methods("POST")
	r.HandleFunc("/ads/{id}", h.DeleteAdvertisement).Methods("DELETE")
	r.HandleFunc("/ads/{id}/images", h.UploadImage).Methods("POST")
	r.HandleFunc("/payments/promote/{id}", h.CreatePromotion).Methods("POST")
	r.HandleFunc("/payments/confirm", h.ConfirmPayment).Methods("POST")
	r.HandleFunc("/payments/history", h.PaymentHistory).Methods("GET")
	r.HandleFunc("/wallet", h.GetBalance).Methods("GET")
	r.HandleFunc("/wallet/deposit", h.Deposit).Methods("POST")
	r.HandleFunc("/wallet/withdraw", h.Withdraw).Methods("POST")
	r.HandleFunc("/wallet/history", h.WalletHistory).Methods("GET")
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: err.Error()})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFromError maps the service error taxonomy to HTTP status codes.
func statusFromError(err error) int {
	switch {
	case errors.Is(err, pkgerrors.ErrUserNotFound),
		errors.Is(err, pkgerrors.ErrAdvertisementNotFound),
		errors.Is(err, pkgerrors.ErrTransactionNotFound):
		return http.StatusNotFound
	case errors.Is(err, pkgerrors.ErrInvalidAmount),
		errors.Is(err, pkgerrors.ErrInvalidStatus),
		errors.Is(err, pkgerrors.ErrInvalidInput),
		errors.Is(err, pkgerrors.ErrInsufficientFunds):
		return http.StatusBadRequest
	case errors.Is(err, pkgerrors.ErrTransactionSettled),
		errors.Is(err, pkgerrors.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, pkgerrors.ErrInvalidCredentials),
		errors.Is(err, pkgerrors.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, pkgerrors.ErrNotOwner):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func userIDFromContext(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(auth.UserIDKey).(uuid.UUID)
	return userID, ok
}

func userRoleFromContext(r *http.Request) string {
	role, _ := r.Context().Value(auth.UserRoleKey).(string)
	return role
}
