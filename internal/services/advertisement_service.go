package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/redis"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/storage"
	"github.com/mkarpov/adboard-backend/internal/models"
	"github.com/mkarpov/adboard-backend/internal/repository"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	adListCacheTTL = time.Minute
	adListLimit    = 50
)

type AdvertisementService interface {
	Create(ctx context.Context, userID uuid.UUID, title string, price decimal.Decimal, description string, features map[string]string) (*models.Advertisement, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Advertisement, error)
	List(ctx context.Context) ([]models.Advertisement, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	AttachImage(ctx context.Context, userID, id uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (string, error)
}

type advertisementService struct {
	ads          repository.AdvertisementRepository
	descriptions repository.DescriptionRepository
	fileStorage  storage.FileStorage
	redisClient  redis.RedisClient
}

func NewAdvertisementService(
	ads repository.AdvertisementRepository,
	descriptions repository.DescriptionRepository,
	fileStorage storage.FileStorage,
	redisClient redis.RedisClient,
) *advertisementService {
	return &advertisementService{
		ads:          ads,
		descriptions: descriptions,
		fileStorage:  fileStorage,
		redisClient:  redisClient,
	}
}

func (s *advertisementService) Create(ctx context.Context, userID uuid.UUID, title string, price decimal.Decimal, description string, features map[string]string) (*models.Advertisement, error) {
	tracer := otel.Tracer("advertisement-service")
	ctx, span := tracer.Start(ctx, "CreateAdvertisement")
	defer span.End()

	if title == "" {
		span.SetStatus(codes.Error, "empty title")
		return nil, fmt.Errorf("title is required")
	}
	if price.IsNegative() {
		span.SetStatus(codes.Error, "negative price")
		return nil, pkgerrors.ErrInvalidAmount
	}

	var descriptionID string
	if description != "" {
		var err error
		descriptionID, err = s.descriptions.Insert(ctx, &models.AdvertisementDescription{
			Content:  description,
			Features: features,
		})
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "description insert failed")
			return nil, err
		}
	}

	ad := &models.Advertisement{
		ID:            uuid.New(),
		UserID:        userID,
		Title:         title,
		Price:         price,
		DescriptionID: descriptionID,
		ImageURLs:     []string{},
	}
	if err := s.ads.Create(ctx, ad); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "advertisement insert failed")
		if descriptionID != "" {
			if delErr := s.descriptions.Delete(ctx, descriptionID); delErr != nil {
				slog.Error("failed to clean up orphaned description", "description_id", descriptionID, "error", delErr)
			}
		}
		return nil, err
	}

	ad.Description = description
	s.invalidateList(ctx)
	slog.Info("advertisement created", "advertisement_id", ad.ID, "user_id", userID, "title", title)
	return ad, nil
}

func (s *advertisementService) Get(ctx context.Context, id uuid.UUID) (*models.Advertisement, error) {
	tracer := otel.Tracer("advertisement-service")
	ctx, span := tracer.Start(ctx, "GetAdvertisement")
	defer span.End()

	ad, err := s.ads.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if ad.DescriptionID != "" {
		desc, err := s.descriptions.Get(ctx, ad.DescriptionID)
		if err != nil && !stderrors.Is(err, pkgerrors.ErrDescriptionNotFound) {
			slog.Error("failed to load description", "advertisement_id", id, "description_id", ad.DescriptionID, "error", err)
		}
		if desc != nil {
			ad.Description = desc.Content
		}
	}
	return ad, nil
}

func (s *advertisementService) List(ctx context.Context) ([]models.Advertisement, error) {
	tracer := otel.Tracer("advertisement-service")
	ctx, span := tracer.Start(ctx, "ListAdvertisements")
	defer span.End()

	var cached []models.Advertisement
	if err := s.redisClient.GetJSON(ctx, redis.AdListKey, &cached); err == nil {
		return cached, nil
	}

	ads, err := s.ads.List(ctx, adListLimit)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	if err := s.redisClient.SetJSON(ctx, redis.AdListKey, ads, adListCacheTTL); err != nil {
		slog.Error("failed to cache advertisement list", "error", err)
	}
	return ads, nil
}

func (s *advertisementService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	tracer := otel.Tracer("advertisement-service")
	ctx, span := tracer.Start(ctx, "DeleteAdvertisement")
	defer span.End()

	ad, err := s.ads.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if ad.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return pkgerrors.ErrNotOwner
	}

	if ad.DescriptionID != "" {
		if err := s.descriptions.Delete(ctx, ad.DescriptionID); err != nil {
			slog.Error("failed to delete description", "advertisement_id", id, "description_id", ad.DescriptionID, "error", err)
		}
	}

	if err := s.ads.Delete(ctx, id); err != nil {
		span.RecordError(err)
		return err
	}

	s.invalidateList(ctx)
	slog.Info("advertisement deleted", "advertisement_id", id, "user_id", userID)
	return nil
}

func (s *advertisementService) AttachImage(ctx context.Context, userID, id uuid.UUID, filename string, reader io.Reader, size int64, contentType string) (string, error) {
	tracer := otel.Tracer("advertisement-service")
	ctx, span := tracer.Start(ctx, "AttachImage")
	defer span.End()

	ad, err := s.ads.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
		return "", err
	}
	if ad.UserID != userID {
		span.SetStatus(codes.Error, "not owner")
		return "", pkgerrors.ErrNotOwner
	}

	objectName := fmt.Sprintf("ads/%s/%s%s", id, uuid.NewString(), path.Ext(filename))
	url, err := s.fileStorage.Upload(ctx, objectName, reader, size, contentType)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upload failed")
		return "", err
	}

	if err := s.ads.AddImageURL(ctx, id, url); err != nil {
		span.RecordError(err)
		return "", err
	}

	s.invalidateList(ctx)
	slog.Info("image attached", "advertisement_id", id, "url", url)
	return url, nil
}

func (s *advertisementService) invalidateList(ctx context.Context) {
	if err := s.redisClient.Del(ctx, redis.AdListKey); err != nil {
		slog.Error("failed to invalidate advertisement list cache", "error", err)
	}
}
