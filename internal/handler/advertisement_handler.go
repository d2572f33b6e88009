package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
)

const maxImageSize = 10 << 20 // 10 MiB

type createAdvertisementRequest struct {
	Title       string            `json:"title"`
	Price       decimal.Decimal   `json:"price"`
	Description string            `json:"description"`
	Features    map[string]string `json:"features"`
}

func (h *Handler) CreateAdvertisement(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	var req createAdvertisementRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Title == "" {
		h.writeError(w, http.StatusBadRequest, errors.New("title is required"))
		return
	}

	ad, err := h.advertisements.Create(r.Context(), userID, req.Title, req.Price, req.Description, req.Features)
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusCreated, ad)
}

func (h *Handler) GetAdvertisement(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid advertisement id"))
		return
	}

	ad, err := h.advertisements.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, ad)
}

func (h *Handler) ListAdvertisements(w http.ResponseWriter, r *http.Request) {
	ads, err := h.advertisements.List(r.Context())
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, ads)
}

func (h *Handler) DeleteAdvertisement(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid advertisement id"))
		return
	}

	if err := h.advertisements.Delete(r.Context(), userID, id); err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *Handler) UploadImage(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r)
	if !ok {
		h.writeError(w, http.StatusUnauthorized, errors.New("user not authenticated"))
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("invalid advertisement id"))
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		h.writeError(w, http.StatusBadRequest, err)
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		h.writeError(w, http.StatusBadRequest, errors.New("image file is required"))
		return
	}
	defer file.Close()

	url, err := h.advertisements.AttachImage(r.Context(), userID, id, header.Filename, file, header.Size, header.Header.Get("Content-Type"))
	if err != nil {
		h.writeError(w, statusFromError(err), err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"url": url})
}
