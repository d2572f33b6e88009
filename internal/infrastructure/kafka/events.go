package kafka

import "time"

const (
	TopicTransactions = "transactions"
	TopicPromotions   = "promotions"
)

// SettlementEvent is published to the transactions topic after a promotion
// transaction reaches a terminal status. Consumers are audit/notification
// systems; the settlement itself is already durable in postgres.
type SettlementEvent struct {
	TransactionID   string    `json:"transaction_id"`
	AdvertisementID string    `json:"advertisement_id"`
	UserID          string    `json:"user_id"`
	Amount          string    `json:"amount"`
	PaymentSystem   string    `json:"payment_system"`
	Status          string    `json:"status"`
	CompletedAt     time.Time `json:"completed_at"`
}

// PromotionRetryEvent is published when the promoted-flag update could not be
// applied during confirmation. The transaction stays settled; the consumer
// re-applies the flag so the side effect is retried instead of silently lost.
type PromotionRetryEvent struct {
	TransactionID   string    `json:"transaction_id"`
	AdvertisementID string    `json:"advertisement_id"`
	PromotedUntil   time.Time `json:"promoted_until"`
}
