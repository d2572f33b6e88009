package repository

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/observability"
	"github.com/mkarpov/adboard-backend/internal/models"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresTransactionRepository struct {
	db *sql.DB
}

func NewPostgresTransactionRepository(db *sql.DB) *PostgresTransactionRepository {
	return &PostgresTransactionRepository{db: db}
}

func (r *PostgresTransactionRepository) Create(ctx context.Context, tx *models.PromotionTransaction) error {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("CreateTransaction", status).Inc()
		observability.RepositoryDuration.WithLabelValues("CreateTransaction").Observe(time.Since(start).Seconds())
	}()

	if tx == nil {
		err = pkgerrors.ErrNilTransaction
		slog.Error("failed to create transaction", "method", "Create", "error", err)
		return err
	}
	if !tx.Amount.IsPositive() {
		err = pkgerrors.ErrInvalidAmount
		slog.Error("amount must be positive", "method", "Create", "amount", tx.Amount, "error", err)
		return err
	}

	span.SetAttributes(
		attribute.String("transaction_id", tx.ID.String()),
		attribute.String("advertisement_id", tx.AdvertisementID.String()),
		attribute.String("user_id", tx.UserID.String()),
		attribute.String("amount", tx.Amount.String()),
		attribute.String("payment_system", tx.PaymentSystem),
	)

	query := `INSERT INTO promotion_transactions (id, advertisement_id, user_id, amount, payment_system, status)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`
	err = r.db.QueryRowContext(ctx, query,
		tx.ID, tx.AdvertisementID, tx.UserID, tx.Amount, tx.PaymentSystem, models.StatusPending,
	).Scan(&tx.CreatedAt)
	if err != nil {
		slog.Error("failed to create transaction", "method", "Create", "advertisement_id", tx.AdvertisementID, "user_id", tx.UserID, "error", err)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	tx.Status = models.StatusPending
	tx.CompletedAt = nil
	slog.Info("transaction created", "method", "Create", "id", tx.ID, "advertisement_id", tx.AdvertisementID, "user_id", tx.UserID, "amount", tx.Amount)
	return nil
}

func (r *PostgresTransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PromotionTransaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "GetTransactionByID")
	span.SetAttributes(attribute.String("transaction_id", id.String()))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("GetTransactionByID", status).Inc()
		observability.RepositoryDuration.WithLabelValues("GetTransactionByID").Observe(time.Since(start).Seconds())
	}()

	var tx models.PromotionTransaction
	query := `SELECT id, advertisement_id, user_id, amount, payment_system, status, created_at, completed_at
		FROM promotion_transactions WHERE id = $1`
	err = r.db.QueryRowContext(ctx, query, id).Scan(
		&tx.ID, &tx.AdvertisementID, &tx.UserID, &tx.Amount, &tx.PaymentSystem, &tx.Status, &tx.CreatedAt, &tx.CompletedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		err = pkgerrors.ErrTransactionNotFound
		return nil, err
	}
	if err != nil {
		slog.Error("failed to get transaction by id", "method", "GetByID", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to get transaction by id: %w", err)
	}
	return &tx, nil
}

// Settle performs the read-check-write of the status as one conditional
// UPDATE, so two concurrent settlements of the same id cannot both succeed.
func (r *PostgresTransactionRepository) Settle(ctx context.Context, id uuid.UUID, status models.TransactionStatus, completedAt time.Time) (*models.PromotionTransaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "SettleTransaction")
	span.SetAttributes(
		attribute.String("transaction_id", id.String()),
		attribute.String("status", string(status)),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		st := "success"
		if err != nil {
			st = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("SettleTransaction", st).Inc()
		observability.RepositoryDuration.WithLabelValues("SettleTransaction").Observe(time.Since(start).Seconds())
	}()

	if !status.Terminal() {
		err = pkgerrors.ErrInvalidStatus
		slog.Error("invalid settlement status", "method", "Settle", "status", status, "error", err)
		return nil, err
	}

	tx := models.PromotionTransaction{ID: id, Status: status, CompletedAt: &completedAt}
	query := `UPDATE promotion_transactions SET status = $2, completed_at = $3
		WHERE id = $1 AND status = $4
		RETURNING advertisement_id, user_id, amount, payment_system, created_at`
	err = r.db.QueryRowContext(ctx, query, id, status, completedAt, models.StatusPending).Scan(
		&tx.AdvertisementID, &tx.UserID, &tx.Amount, &tx.PaymentSystem, &tx.CreatedAt,
	)
	if stderrors.Is(err, sql.ErrNoRows) {
		// Either the row does not exist or it is already terminal.
		var current models.TransactionStatus
		checkErr := r.db.QueryRowContext(ctx, `SELECT status FROM promotion_transactions WHERE id = $1`, id).Scan(&current)
		if stderrors.Is(checkErr, sql.ErrNoRows) {
			err = pkgerrors.ErrTransactionNotFound
			return nil, err
		}
		if checkErr != nil {
			err = fmt.Errorf("failed to check transaction status: %w", checkErr)
			slog.Error("failed to check transaction status", "method", "Settle", "transaction_id", id, "error", checkErr)
			return nil, err
		}
		err = pkgerrors.ErrTransactionSettled
		slog.Warn("transaction already settled", "method", "Settle", "transaction_id", id, "current_status", current)
		return nil, err
	}
	if err != nil {
		slog.Error("failed to settle transaction", "method", "Settle", "transaction_id", id, "error", err)
		return nil, fmt.Errorf("failed to settle transaction: %w", err)
	}

	slog.Info("transaction settled", "method", "Settle", "transaction_id", id, "status", status)
	return &tx, nil
}

func (r *PostgresTransactionRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PromotionTransaction, error) {
	var err error
	tracer := otel.Tracer("transaction-repository")
	ctx, span := tracer.Start(ctx, "ListTransactionsByUser")
	span.SetAttributes(attribute.String("user_id", userID.String()))
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ListTransactionsByUser", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ListTransactionsByUser").Observe(time.Since(start).Seconds())
	}()

	query := `SELECT id, advertisement_id, user_id, amount, payment_system, status, created_at, completed_at
		FROM promotion_transactions WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Error("failed to list transactions", "method", "ListByUser", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var transactions []models.PromotionTransaction
	for rows.Next() {
		var tx models.PromotionTransaction
		if err = rows.Scan(&tx.ID, &tx.AdvertisementID, &tx.UserID, &tx.Amount, &tx.PaymentSystem, &tx.Status, &tx.CreatedAt, &tx.CompletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		transactions = append(transactions, tx)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	return transactions, nil
}
