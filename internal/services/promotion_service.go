package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/kafka"
	"github.com/mkarpov/adboard-backend/internal/models"
	"github.com/mkarpov/adboard-backend/internal/repository"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
)

// PromotionPrice is the fixed cost of promoting one advertisement.
var PromotionPrice = decimal.NewFromInt(100)

type PromotionService interface {
	Create(ctx context.Context, advertisementID, userID uuid.UUID, amount decimal.Decimal, paymentSystem string) (*models.PromotionTransaction, error)
	Confirm(ctx context.Context, transactionID uuid.UUID, status models.TransactionStatus) (*models.PromotionTransaction, error)
	ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PromotionTransaction, error)
}

type promotionService struct {
	transactions  repository.TransactionRepository
	ads           repository.AdvertisementRepository
	trigger       PromotionTrigger
	kafkaProducer kafka.KafkaProducer
}

func NewPromotionService(
	transactions repository.TransactionRepository,
	ads repository.AdvertisementRepository,
	trigger PromotionTrigger,
	kafkaProducer kafka.KafkaProducer,
) *promotionService {
	return &promotionService{
		transactions:  transactions,
		ads:           ads,
		trigger:       trigger,
		kafkaProducer: kafkaProducer,
	}
}

func (s *promotionService) Create(ctx context.Context, advertisementID, userID uuid.UUID, amount decimal.Decimal, paymentSystem string) (*models.PromotionTransaction, error) {
	tracer := otel.Tracer("promotion-service")
	ctx, span := tracer.Start(ctx, "CreateTransaction")
	defer span.End()

	if !amount.IsPositive() {
		span.SetStatus(codes.Error, "invalid amount")
		return nil, pkgerrors.ErrInvalidAmount
	}

	exists, err := s.ads.Exists(ctx, advertisementID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "advertisement check failed")
		slog.Error("failed to check advertisement existence", "advertisement_id", advertisementID, "error", err)
		return nil, err
	}
	if !exists {
		span.SetStatus(codes.Error, "advertisement not found")
		slog.Warn("promotion requested for missing advertisement", "advertisement_id", advertisementID, "user_id", userID)
		return nil, pkgerrors.ErrAdvertisementNotFound
	}

	tx := &models.PromotionTransaction{
		ID:              uuid.New(),
		AdvertisementID: advertisementID,
		UserID:          userID,
		Amount:          amount,
		PaymentSystem:   paymentSystem,
		Status:          models.StatusPending,
	}
	if err := s.transactions.Create(ctx, tx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transaction creation failed")
		return nil, err
	}

	slog.Info("promotion transaction created", "transaction_id", tx.ID, "advertisement_id", advertisementID, "user_id", userID, "amount", amount, "payment_system", paymentSystem)
	return tx, nil
}

// Confirm settles a pending transaction exactly once. Settlement commits
// before the promotion side effect runs; if the advertisement cannot be
// promoted the discrepancy is logged and republished for retry, never
// rolled back into the payment.
func (s *promotionService) Confirm(ctx context.Context, transactionID uuid.UUID, status models.TransactionStatus) (*models.PromotionTransaction, error) {
	tracer := otel.Tracer("promotion-service")
	ctx, span := tracer.Start(ctx, "ConfirmTransaction")
	defer span.End()

	if !status.Terminal() {
		span.SetStatus(codes.Error, "invalid status")
		slog.Error("invalid confirmation status", "transaction_id", transactionID, "status", status)
		return nil, pkgerrors.ErrInvalidStatus
	}

	tx, err := s.transactions.Settle(ctx, transactionID, status, time.Now().UTC())
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "settlement failed")
		return nil, err
	}

	if status == models.StatusCompleted {
		until, err := s.trigger.Apply(ctx, tx.AdvertisementID)
		if err != nil {
			if stderrors.Is(err, pkgerrors.ErrAdvertisementNotFound) {
				slog.Warn("advertisement missing during promotion, scheduling retry",
					"transaction_id", tx.ID, "advertisement_id", tx.AdvertisementID)
			} else {
				slog.Error("failed to apply promotion, scheduling retry",
					"transaction_id", tx.ID, "advertisement_id", tx.AdvertisementID, "error", err)
			}
			s.publishPromotionRetry(tx, until)
		}
	}

	s.publishSettlementEvent(tx)

	slog.Info("transaction confirmed", "transaction_id", tx.ID, "status", tx.Status)
	return tx, nil
}

func (s *promotionService) ListForUser(ctx context.Context, userID uuid.UUID) ([]models.PromotionTransaction, error) {
	tracer := otel.Tracer("promotion-service")
	ctx, span := tracer.Start(ctx, "ListUserTransactions")
	defer span.End()

	transactions, err := s.transactions.ListByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		slog.Error("failed to list transactions", "user_id", userID, "error", err)
		return nil, err
	}
	return transactions, nil
}

func (s *promotionService) publishPromotionRetry(tx *models.PromotionTransaction, until time.Time) {
	event := kafka.PromotionRetryEvent{
		TransactionID:   tx.ID.String(),
		AdvertisementID: tx.AdvertisementID.String(),
		PromotedUntil:   until,
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal promotion retry event", "transaction_id", tx.ID, "error", err)
		return
	}
	if err := s.kafkaProducer.Send(context.Background(), kafka.TopicPromotions, tx.AdvertisementID.String(), eventBytes); err != nil {
		slog.Error("failed to publish promotion retry event", "transaction_id", tx.ID, "error", err)
	}
}

func (s *promotionService) publishSettlementEvent(tx *models.PromotionTransaction) {
	event := kafka.SettlementEvent{
		TransactionID:   tx.ID.String(),
		AdvertisementID: tx.AdvertisementID.String(),
		UserID:          tx.UserID.String(),
		Amount:          tx.Amount.String(),
		PaymentSystem:   tx.PaymentSystem,
		Status:          string(tx.Status),
	}
	if tx.CompletedAt != nil {
		event.CompletedAt = *tx.CompletedAt
	}
	eventBytes, err := json.Marshal(event)
	if err != nil {
		slog.Error("failed to marshal settlement event", "transaction_id", tx.ID, "error", err)
		return
	}
	go func() {
		retries := 3
		for i := 0; i < retries; i++ {
			if err := s.kafkaProducer.Send(context.Background(), kafka.TopicTransactions, tx.ID.String(), eventBytes); err == nil {
				return
			}
			time.Sleep(time.Second * time.Duration(i+1))
		}
		slog.Error("failed to publish settlement event after retries", "transaction_id", tx.ID)
	}()
}
