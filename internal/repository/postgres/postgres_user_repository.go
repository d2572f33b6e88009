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
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type PostgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) *PostgresUserRepository {
	return &PostgresUserRepository{db: db}
}

func (r *PostgresUserRepository) Create(ctx context.Context, user *models.User) error {
	if user == nil {
		return fmt.Errorf("user is nil")
	}
	if user.Email == "" || user.PasswordHash == "" {
		return fmt.Errorf("email and password are required")
	}

	if user.Role == "" {
		user.Role = models.RoleUser
	}

	query := `
	INSERT INTO users (id, email, password_hash, balance, role)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING created_at
	`
	err := r.db.QueryRowContext(
		ctx,
		query,
		user.ID,
		user.Email,
		user.PasswordHash,
		user.Balance,
		user.Role,
	).Scan(&user.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresUserRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	query := `SELECT id, email, balance, role, avatar_url, created_at FROM users WHERE id = $1`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Email, &user.Balance, &user.Role, &user.AvatarURL, &user.CreatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}
	return &user, nil
}

func (r *PostgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if email == "" {
		return nil, fmt.Errorf("email cannot be empty")
	}

	query := `SELECT id, email, password_hash, balance, role, avatar_url, created_at FROM users WHERE email = $1`

	var user models.User
	err := r.db.QueryRowContext(ctx, query, email).Scan(
		&user.ID,
		&user.Email,
		&user.PasswordHash,
		&user.Balance,
		&user.Role,
		&user.AvatarURL,
		&user.CreatedAt,
	)

	switch {
	case stderrors.Is(err, sql.ErrNoRows):
		return nil, pkgerrors.ErrUserNotFound
	case err != nil:
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}

	return &user, nil
}

func (r *PostgresUserRepository) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	var balance decimal.Decimal
	query := `SELECT balance FROM users WHERE id = $1`
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&balance)
	if stderrors.Is(err, sql.ErrNoRows) {
		return decimal.Zero, pkgerrors.ErrUserNotFound
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get balance: %w", err)
	}
	return balance, nil
}

// ChangeBalance applies delta as a single conditional UPDATE so concurrent
// adjustments of the same user serialize on the row lock, then records the
// movement in wallet_entries before committing. The guard `balance + delta >= 0`
// rejects an overdraft wholesale.
func (r *PostgresUserRepository) ChangeBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, reason string) (decimal.Decimal, error) {
	var err error
	tracer := otel.Tracer("user-repository")
	ctx, span := tracer.Start(ctx, "ChangeBalance")
	span.SetAttributes(
		attribute.String("user_id", userID.String()),
		attribute.String("delta", delta.String()),
		attribute.String("reason", reason),
	)
	defer span.End()

	start := time.Now()
	defer func() {
		status := "success"
		if err != nil {
			status = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		observability.RepositoryCalls.WithLabelValues("ChangeBalance", status).Inc()
		observability.RepositoryDuration.WithLabelValues("ChangeBalance").Observe(time.Since(start).Seconds())
	}()

	dbTx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		slog.Error("failed to begin transaction", "method", "ChangeBalance", "error", err)
		return decimal.Zero, fmt.Errorf("failed to begin transaction: %w", err)
	}

	var newBalance decimal.Decimal
	query := `
		UPDATE users
		SET balance = balance + $1
		WHERE id = $2
		AND (balance + $1) >= 0
		RETURNING balance
		`
	err = dbTx.QueryRowContext(ctx, query, delta, userID).Scan(&newBalance)
	if stderrors.Is(err, sql.ErrNoRows) {
		dbTx.Rollback()
		// Distinguish a missing user from an overdraft.
		var exists bool
		checkErr := r.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`, userID).Scan(&exists)
		if checkErr != nil {
			err = fmt.Errorf("failed to check user existence: %w", checkErr)
			slog.Error("failed to check user existence", "method", "ChangeBalance", "user_id", userID, "error", checkErr)
			return decimal.Zero, err
		}
		if !exists {
			err = pkgerrors.ErrUserNotFound
			return decimal.Zero, err
		}
		err = pkgerrors.ErrInsufficientFunds
		slog.Warn("insufficient funds", "method", "ChangeBalance", "user_id", userID, "delta", delta)
		return decimal.Zero, err
	}
	if err != nil {
		dbTx.Rollback()
		slog.Error("failed to change balance", "method", "ChangeBalance", "user_id", userID, "delta", delta, "error", err)
		return decimal.Zero, fmt.Errorf("failed to change balance: %w", err)
	}

	entryQuery := `INSERT INTO wallet_entries (user_id, amount, balance, reason) VALUES ($1, $2, $3, $4)`
	if _, err = dbTx.ExecContext(ctx, entryQuery, userID, delta, newBalance, reason); err != nil {
		if rbErr := dbTx.Rollback(); rbErr != nil {
			err = fmt.Errorf("rollback failed: %v; original error: %w", rbErr, err)
			slog.Error("rollback failed", "method", "ChangeBalance", "error", rbErr)
		} else {
			slog.Error("failed to append wallet entry", "method", "ChangeBalance", "user_id", userID, "error", err)
		}
		return decimal.Zero, fmt.Errorf("failed to append wallet entry: %w", err)
	}

	if err = dbTx.Commit(); err != nil {
		slog.Error("failed to commit balance change", "method", "ChangeBalance", "error", err)
		return decimal.Zero, fmt.Errorf("failed to commit balance change: %w", err)
	}

	slog.Info("balance changed", "method", "ChangeBalance", "user_id", userID, "delta", delta, "balance", newBalance, "reason", reason)
	return newBalance, nil
}

func (r *PostgresUserRepository) ListWalletEntries(ctx context.Context, userID uuid.UUID) ([]models.WalletEntry, error) {
	query := `SELECT id, user_id, amount, balance, reason, created_at
		FROM wallet_entries WHERE user_id = $1 ORDER BY created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		slog.Error("failed to list wallet entries", "method", "ListWalletEntries", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to list wallet entries: %w", err)
	}
	defer rows.Close()

	var entries []models.WalletEntry
	for rows.Next() {
		var e models.WalletEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Amount, &e.Balance, &e.Reason, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan wallet entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list wallet entries: %w", err)
	}
	return entries, nil
}
