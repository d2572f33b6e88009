package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Advertisement struct {
	ID            uuid.UUID       `json:"id"`
	UserID        uuid.UUID       `json:"user_id"`
	Title         string          `json:"title"`
	Price         decimal.Decimal `json:"price"`
	Description   string          `json:"description,omitempty"`
	DescriptionID string          `json:"-"`
	ImageURLs     []string        `json:"image_urls"`
	IsPromoted    bool            `json:"is_promoted"`
	PromotedUntil time.Time       `json:"promoted_until"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
