package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WalletEntry is one append-only credit or debit against a user's wallet.
// Amount is negative for debits; Balance is the balance after the entry
// was applied, so the ledger can be replayed and reconciled against the
// materialized users.balance column.
type WalletEntry struct {
	ID        int64           `json:"id"`
	UserID    uuid.UUID       `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Balance   decimal.Decimal `json:"balance"`
	Reason    string          `json:"reason"`
	CreatedAt time.Time       `json:"created_at"`
}

const (
	EntryReasonDeposit  = "deposit"
	EntryReasonWithdraw = "withdraw"
)
