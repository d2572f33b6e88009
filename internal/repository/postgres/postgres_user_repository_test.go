package repository_test

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/models"
	repository "github.com/mkarpov/adboard-backend/internal/repository/postgres"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPostgresUserRepository_Create(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	t.Run("NilUser", func(t *testing.T) {
		err := repo.Create(ctx, nil)
		assert.Error(t, err)
	})

	t.Run("MissingCredentials", func(t *testing.T) {
		err := repo.Create(ctx, &models.User{ID: uuid.New(), Email: "user@example.com"})
		assert.Error(t, err)
	})

	t.Run("Success", func(t *testing.T) {
		user := &models.User{
			ID:           uuid.New(),
			Email:        "user@example.com",
			PasswordHash: "hash",
			Balance:      decimal.Zero,
		}
		createdAt := time.Now().UTC()
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (id, email, password_hash, balance, role)`)).
			WithArgs(user.ID, user.Email, user.PasswordHash, user.Balance, models.RoleUser).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(createdAt))

		err := repo.Create(ctx, user)
		assert.NoError(t, err)
		assert.Equal(t, models.RoleUser, user.Role)
		assert.WithinDuration(t, createdAt, user.CreatedAt, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("RoleIsPreserved", func(t *testing.T) {
		admin := &models.User{
			ID:           uuid.New(),
			Email:        "admin@example.com",
			PasswordHash: "hash",
			Balance:      decimal.Zero,
			Role:         models.RoleAdmin,
		}
		mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO users (id, email, password_hash, balance, role)`)).
			WithArgs(admin.ID, admin.Email, admin.PasswordHash, admin.Balance, models.RoleAdmin).
			WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now().UTC()))

		err := repo.Create(ctx, admin)
		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_GetBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	query := regexp.QuoteMeta(`SELECT balance FROM users WHERE id = $1`)

	t.Run("Success", func(t *testing.T) {
		userID := uuid.New()
		mock.ExpectQuery(query).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("150.50"))

		balance, err := repo.GetBalance(ctx, userID)
		assert.NoError(t, err)
		assert.True(t, balance.Equal(decimal.RequireFromString("150.50")))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NotFound", func(t *testing.T) {
		userID := uuid.New()
		mock.ExpectQuery(query).
			WithArgs(userID).
			WillReturnError(sql.ErrNoRows)

		_, err := repo.GetBalance(ctx, userID)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_ChangeBalance(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	updateQuery := regexp.QuoteMeta(`UPDATE users
			SET balance = balance + $1
			WHERE id = $2
			AND (balance + $1) >= 0
			RETURNING balance`)
	entryQuery := regexp.QuoteMeta(`INSERT INTO wallet_entries (user_id, amount, balance, reason) VALUES ($1, $2, $3, $4)`)
	existsQuery := regexp.QuoteMeta(`SELECT EXISTS(SELECT 1 FROM users WHERE id = $1)`)

	t.Run("Success", func(t *testing.T) {
		userID := uuid.New()
		delta := decimal.NewFromInt(50)

		mock.ExpectBegin()
		mock.ExpectQuery(updateQuery).
			WithArgs(delta, userID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("150"))
		mock.ExpectExec(entryQuery).
			WithArgs(userID, delta, decimal.NewFromInt(150), models.EntryReasonDeposit).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		balance, err := repo.ChangeBalance(ctx, userID, delta, models.EntryReasonDeposit)
		assert.NoError(t, err)
		assert.True(t, balance.Equal(decimal.NewFromInt(150)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("InsufficientFunds", func(t *testing.T) {
		userID := uuid.New()
		delta := decimal.NewFromInt(-200)

		mock.ExpectBegin()
		mock.ExpectQuery(updateQuery).
			WithArgs(delta, userID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()
		mock.ExpectQuery(existsQuery).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		_, err := repo.ChangeBalance(ctx, userID, delta, models.EntryReasonWithdraw)
		assert.ErrorIs(t, err, pkgerrors.ErrInsufficientFunds)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UserNotFound", func(t *testing.T) {
		userID := uuid.New()
		delta := decimal.NewFromInt(10)

		mock.ExpectBegin()
		mock.ExpectQuery(updateQuery).
			WithArgs(delta, userID).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()
		mock.ExpectQuery(existsQuery).
			WithArgs(userID).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		_, err := repo.ChangeBalance(ctx, userID, delta, models.EntryReasonDeposit)
		assert.ErrorIs(t, err, pkgerrors.ErrUserNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("EntryInsertFails", func(t *testing.T) {
		userID := uuid.New()
		delta := decimal.NewFromInt(10)

		mock.ExpectBegin()
		mock.ExpectQuery(updateQuery).
			WithArgs(delta, userID).
			WillReturnRows(sqlmock.NewRows([]string{"balance"}).AddRow("10"))
		mock.ExpectExec(entryQuery).
			WithArgs(userID, delta, decimal.NewFromInt(10), models.EntryReasonDeposit).
			WillReturnError(fmt.Errorf("database error"))
		mock.ExpectRollback()

		_, err := repo.ChangeBalance(ctx, userID, delta, models.EntryReasonDeposit)
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "failed to append wallet entry")
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUserRepository_ListWalletEntries(t *testing.T) {
	db, mock, err := sqlmock.New()
	assert.NoError(t, err)
	defer db.Close()
	repo := repository.NewPostgresUserRepository(db)
	ctx := context.Background()

	userID := uuid.New()
	newer := time.Now().UTC()
	older := newer.Add(-time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT id, user_id, amount, balance, reason, created_at
		FROM wallet_entries WHERE user_id = $1 ORDER BY created_at DESC`)).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "amount", "balance", "reason", "created_at"}).
			AddRow(int64(2), userID.String(), "-30", "70", models.EntryReasonWithdraw, newer).
			AddRow(int64(1), userID.String(), "100", "100", models.EntryReasonDeposit, older))

	entries, err := repo.ListWalletEntries(ctx, userID)
	assert.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.True(t, entries[0].Amount.IsNegative())
	assert.Equal(t, models.EntryReasonWithdraw, entries[0].Reason)
	assert.True(t, entries[1].Balance.Equal(decimal.NewFromInt(100)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
