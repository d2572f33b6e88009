package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/models"
	"github.com/shopspring/decimal"
)

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	// ChangeBalance applies delta to the user's balance and appends a wallet
	// entry in the same database transaction. A delta that would take the
	// balance below zero is rejected wholesale with ErrInsufficientFunds.
	ChangeBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, reason string) (decimal.Decimal, error)
	ListWalletEntries(ctx context.Context, userID uuid.UUID) ([]models.WalletEntry, error)
}
