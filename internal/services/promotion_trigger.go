package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/repository"
)

// PromotionWindow is how long an advertisement stays promoted after a
// completed payment.
const PromotionWindow = 7 * 24 * time.Hour

// PromotionTrigger applies the promoted-flag side effect of a completed
// transaction. It is separate from the ledger so settlement never depends
// on it succeeding.
type PromotionTrigger interface {
	Apply(ctx context.Context, advertisementID uuid.UUID) (time.Time, error)
}

type promotionTrigger struct {
	ads    repository.AdvertisementRepository
	window time.Duration
}

func NewPromotionTrigger(ads repository.AdvertisementRepository) *promotionTrigger {
	return &promotionTrigger{ads: ads, window: PromotionWindow}
}

func (t *promotionTrigger) Apply(ctx context.Context, advertisementID uuid.UUID) (time.Time, error) {
	until := time.Now().UTC().Add(t.window)
	if err := t.ads.Promote(ctx, advertisementID, until); err != nil {
		return until, err
	}
	return until, nil
}
