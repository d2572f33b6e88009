package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/auth"
	"github.com/mkarpov/adboard-backend/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

type stubPromotionService struct {
	confirmed    *models.PromotionTransaction
	confirmCalls int
}

func (s *stubPromotionService) Create(ctx context.Context, advertisementID, userID uuid.UUID, amount decimal.Decimal, paymentSystem string) (*models.PromotionTransaction, error) {
	return nil, nil
}

func (s *stubPromotionService) Confirm(ctx context.Context, transactionID uuid.UUID, status models.TransactionStatus) (*models.PromotionTransaction, error) {
	s.confirmCalls++
	return s.confirmed, nil
}

func (s *stubPromotionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PromotionTransaction, error) {
	return nil, nil
}

func confirmRequest(t *testing.T, role string) *http.Request {
	t.Helper()
	body, err := json.Marshal(confirmPaymentRequest{
		TransactionID: uuid.New(),
		Status:        string(models.StatusCompleted),
	})
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/payments/confirm", bytes.NewReader(body))
	ctx := context.WithValue(req.Context(), auth.UserIDKey, uuid.New())
	ctx = context.WithValue(ctx, auth.UserRoleKey, role)
	return req.WithContext(ctx)
}

func TestConfirmPaymentRequiresAdmin(t *testing.T) {
	t.Run("regular user is rejected", func(t *testing.T) {
		promotions := &stubPromotionService{}
		h := NewHandler(nil, nil, promotions, nil)

		rec := httptest.NewRecorder()
		h.ConfirmPayment(rec, confirmRequest(t, models.RoleUser))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, 0, promotions.confirmCalls)
	})

	t.Run("missing role is rejected", func(t *testing.T) {
		promotions := &stubPromotionService{}
		h := NewHandler(nil, nil, promotions, nil)

		rec := httptest.NewRecorder()
		h.ConfirmPayment(rec, confirmRequest(t, ""))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, 0, promotions.confirmCalls)
	})

	t.Run("admin settles", func(t *testing.T) {
		promotions := &stubPromotionService{
			confirmed: &models.PromotionTransaction{ID: uuid.New(), Status: models.StatusCompleted},
		}
		h := NewHandler(nil, nil, promotions, nil)

		rec := httptest.NewRecorder()
		h.ConfirmPayment(rec, confirmRequest(t, models.RoleAdmin))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, promotions.confirmCalls)
	})
}
