package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/models"
)

type TransactionRepository interface {
	Create(ctx context.Context, tx *models.PromotionTransaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PromotionTransaction, error)
	// Settle moves a Pending transaction to the given terminal status.
	// It must be atomic per transaction id: of two concurrent calls exactly
	// one may succeed, the other gets ErrTransactionSettled.
	Settle(ctx context.Context, id uuid.UUID, status models.TransactionStatus, completedAt time.Time) (*models.PromotionTransaction, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PromotionTransaction, error)
}
