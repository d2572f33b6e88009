package repository

import (
	"context"

	"github.com/mkarpov/adboard-backend/internal/models"
)

type DescriptionRepository interface {
	Insert(ctx context.Context, desc *models.AdvertisementDescription) (string, error)
	Get(ctx context.Context, id string) (*models.AdvertisementDescription, error)
	Delete(ctx context.Context, id string) error
}
