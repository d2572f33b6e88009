package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/redis"
	"github.com/mkarpov/adboard-backend/internal/models"
	"github.com/mkarpov/adboard-backend/internal/repository"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

const (
	balanceCacheTTL   = 5 * time.Minute
	balanceVersionTTL = time.Hour
)

type WalletService interface {
	Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error)
	GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error)
	History(ctx context.Context, userID uuid.UUID) ([]models.WalletEntry, error)
}

type walletService struct {
	users       repository.UserRepository
	redisClient redis.RedisClient
}

func NewWalletService(users repository.UserRepository, redisClient redis.RedisClient) *walletService {
	return &walletService{users: users, redisClient: redisClient}
}

// Deposit credits the wallet. Non-positive amounts are rejected here so
// every entry point is protected uniformly.
func (s *walletService) Deposit(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	tracer := otel.Tracer("wallet-service")
	ctx, span := tracer.Start(ctx, "Deposit")
	defer span.End()

	if !amount.IsPositive() {
		span.SetStatus(codes.Error, "invalid amount")
		slog.Error("invalid deposit amount", "user_id", userID, "amount", amount)
		return decimal.Zero, pkgerrors.ErrInvalidAmount
	}

	balance, err := s.users.ChangeBalance(ctx, userID, amount, models.EntryReasonDeposit)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "deposit failed")
		return decimal.Zero, err
	}

	s.invalidateBalance(ctx, userID)
	slog.Info("deposit applied", "user_id", userID, "amount", amount, "balance", balance)
	return balance, nil
}

// Withdraw debits the wallet. An amount exceeding the balance is rejected
// wholesale, the repository never applies a partial debit.
func (s *walletService) Withdraw(ctx context.Context, userID uuid.UUID, amount decimal.Decimal) (decimal.Decimal, error) {
	tracer := otel.Tracer("wallet-service")
	ctx, span := tracer.Start(ctx, "Withdraw")
	defer span.End()

	if !amount.IsPositive() {
		span.SetStatus(codes.Error, "invalid amount")
		slog.Error("invalid withdraw amount", "user_id", userID, "amount", amount)
		return decimal.Zero, pkgerrors.ErrInvalidAmount
	}

	balance, err := s.users.ChangeBalance(ctx, userID, amount.Neg(), models.EntryReasonWithdraw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "withdraw failed")
		return decimal.Zero, err
	}

	s.invalidateBalance(ctx, userID)
	slog.Info("withdraw applied", "user_id", userID, "amount", amount, "balance", balance)
	return balance, nil
}

func (s *walletService) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	tracer := otel.Tracer("wallet-service")
	ctx, span := tracer.Start(ctx, "GetBalance")
	defer span.End()

	// The cache key is bound to the version read before the database read,
	// so a write racing with a mutation lands under a rotated-away key and
	// can never serve a stale balance.
	balanceKey := redis.UserBalanceKey(userID.String(), s.balanceVersion(ctx, userID))
	if cached, err := s.redisClient.Get(ctx, balanceKey); err == nil {
		if balance, err := decimal.NewFromString(cached); err == nil {
			return balance, nil
		}
		slog.Error("failed to parse cached balance", "user_id", userID, "value", cached)
	}

	balance, err := s.users.GetBalance(ctx, userID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to get balance from Postgres", "user_id", userID, "error", err)
		return decimal.Zero, err
	}

	if err := s.redisClient.Set(ctx, balanceKey, balance.String(), balanceCacheTTL); err != nil {
		slog.Error("failed to cache balance", "user_id", userID, "error", err)
	}
	return balance, nil
}

func (s *walletService) History(ctx context.Context, userID uuid.UUID) ([]models.WalletEntry, error) {
	tracer := otel.Tracer("wallet-service")
	ctx, span := tracer.Start(ctx, "WalletHistory")
	defer span.End()

	entries, err := s.users.ListWalletEntries(ctx, userID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to get wallet history", "user_id", userID, "error", err)
		return nil, err
	}
	return entries, nil
}

func (s *walletService) balanceVersion(ctx context.Context, userID uuid.UUID) string {
	verKey := redis.UserBalanceVersionKey(userID.String())
	if ver, err := s.redisClient.Get(ctx, verKey); err == nil {
		return ver
	}
	ver := uuid.NewString()
	if err := s.redisClient.Set(ctx, verKey, ver, balanceVersionTTL); err != nil {
		slog.Error("failed to store balance cache version", "user_id", userID, "error", err)
	}
	return ver
}

// invalidateBalance rotates the cache version instead of deleting the value:
// an in-flight cache write from a read that started before the mutation stays
// keyed to the old version and is never read again.
func (s *walletService) invalidateBalance(ctx context.Context, userID uuid.UUID) {
	verKey := redis.UserBalanceVersionKey(userID.String())
	if err := s.redisClient.Set(ctx, verKey, uuid.NewString(), balanceVersionTTL); err != nil {
		slog.Error("failed to invalidate balance cache", "user_id", userID, "error", err)
	}
}
