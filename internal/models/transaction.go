package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PromotionTransaction is one attempt to pay for promoting an advertisement.
// Rows are append-only: the only mutation ever applied is the single
// Pending -> Completed/Failed settlement.
type PromotionTransaction struct {
	ID              uuid.UUID         `json:"id"`
	AdvertisementID uuid.UUID         `json:"advertisement_id"`
	UserID          uuid.UUID         `json:"user_id"`
	Amount          decimal.Decimal   `json:"amount"`
	PaymentSystem   string            `json:"payment_system"`
	Status          TransactionStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	CompletedAt     *time.Time        `json:"completed_at,omitempty"`
}

type TransactionStatus string

const (
	StatusPending   TransactionStatus = "Pending"
	StatusCompleted TransactionStatus = "Completed"
	StatusFailed    TransactionStatus = "Failed"
)

// Terminal reports whether the status ends the transaction lifecycle.
func (s TransactionStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}
