package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/models"
)

type AdvertisementRepository interface {
	Create(ctx context.Context, ad *models.Advertisement) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Advertisement, error)
	List(ctx context.Context, limit int) ([]models.Advertisement, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	// Promote flips the promoted flag until the given time. Returns
	// ErrAdvertisementNotFound if no row matched.
	Promote(ctx context.Context, id uuid.UUID, until time.Time) error
	AddImageURL(ctx context.Context, id uuid.UUID, url string) error
}
