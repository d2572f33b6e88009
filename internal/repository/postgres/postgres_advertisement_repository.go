package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/mkarpov/adboard-backend/internal/models"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
)

type PostgresAdvertisementRepository struct {
	db *sql.DB
}

func NewPostgresAdvertisementRepository(db *sql.DB) *PostgresAdvertisementRepository {
	return &PostgresAdvertisementRepository{db: db}
}

func (r *PostgresAdvertisementRepository) Create(ctx context.Context, ad *models.Advertisement) error {
	if ad == nil {
		return fmt.Errorf("advertisement is nil")
	}
	if ad.Title == "" {
		return fmt.Errorf("title is required")
	}

	query := `
	INSERT INTO advertisements (id, user_id, title, price, description_id, image_urls)
	VALUES ($1, $2, $3, $4, $5, $6)
	RETURNING created_at, updated_at
	`
	err := r.db.QueryRowContext(ctx, query,
		ad.ID, ad.UserID, ad.Title, ad.Price, ad.DescriptionID, pq.Array(ad.ImageURLs),
	).Scan(&ad.CreatedAt, &ad.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create advertisement: %w", err)
	}
	return nil
}

func (r *PostgresAdvertisementRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Advertisement, error) {
	query := `SELECT id, user_id, title, price, description_id, image_urls, is_promoted, promoted_until, created_at, updated_at
		FROM advertisements WHERE id = $1`
	var ad models.Advertisement
	var urls pq.StringArray
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&ad.ID, &ad.UserID, &ad.Title, &ad.Price, &ad.DescriptionID, &urls,
		&ad.IsPromoted, &ad.PromotedUntil, &ad.CreatedAt, &ad.UpdatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrAdvertisementNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get advertisement: %w", err)
	}
	ad.ImageURLs = urls
	return &ad, nil
}

func (r *PostgresAdvertisementRepository) List(ctx context.Context, limit int) ([]models.Advertisement, error) {
	query := `SELECT id, user_id, title, price, description_id, image_urls, is_promoted, promoted_until, created_at, updated_at
		FROM advertisements ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list advertisements: %w", err)
	}
	defer rows.Close()

	var ads []models.Advertisement
	for rows.Next() {
		var ad models.Advertisement
		var urls pq.StringArray
		if err := rows.Scan(&ad.ID, &ad.UserID, &ad.Title, &ad.Price, &ad.DescriptionID, &urls,
			&ad.IsPromoted, &ad.PromotedUntil, &ad.CreatedAt, &ad.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan advertisement: %w", err)
		}
		ad.ImageURLs = urls
		ads = append(ads, ad)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list advertisements: %w", err)
	}
	return ads, nil
}

func (r *PostgresAdvertisementRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM advertisements WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete advertisement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete advertisement: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrAdvertisementNotFound
	}
	return nil
}

func (r *PostgresAdvertisementRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM advertisements WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check advertisement existence: %w", err)
	}
	return exists, nil
}

func (r *PostgresAdvertisementRepository) Promote(ctx context.Context, id uuid.UUID, until time.Time) error {
	query := `UPDATE advertisements SET is_promoted = TRUE, promoted_until = $2, updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, until)
	if err != nil {
		slog.Error("failed to promote advertisement", "method", "Promote", "advertisement_id", id, "error", err)
		return fmt.Errorf("failed to promote advertisement: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to promote advertisement: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrAdvertisementNotFound
	}
	slog.Info("advertisement promoted", "method", "Promote", "advertisement_id", id, "promoted_until", until)
	return nil
}

func (r *PostgresAdvertisementRepository) AddImageURL(ctx context.Context, id uuid.UUID, url string) error {
	query := `UPDATE advertisements SET image_urls = array_append(image_urls, $2), updated_at = NOW() WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, url)
	if err != nil {
		return fmt.Errorf("failed to add image url: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to add image url: %w", err)
	}
	if affected == 0 {
		return pkgerrors.ErrAdvertisementNotFound
	}
	return nil
}
