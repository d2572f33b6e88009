package kafka

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/repository"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"github.com/segmentio/kafka-go"
)

// Consumer re-applies promotion side effects that failed during settlement.
type Consumer struct {
	reader *kafka.Reader
	ads    repository.AdvertisementRepository
}

func NewConsumer(brokers []string, groupID string, ads repository.AdvertisementRepository) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  brokers,
			Topic:    TopicPromotions,
			GroupID:  groupID,
			MinBytes: 10e3,
			MaxBytes: 10e6,
		}),
		ads: ads,
	}
}

// Consume fetches retry events and commits the offset only once an event is
// fully handled, so a transient database failure leaves the event for
// redelivery instead of dropping it.
func (c *Consumer) Consume(ctx context.Context) {
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Error("failed to fetch Kafka message", "topic", c.reader.Config().Topic, "error", err)
			continue
		}

		if !c.handle(ctx, msg.Value) {
			continue
		}
		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			slog.Error("failed to commit Kafka offset", "topic", c.reader.Config().Topic, "error", err)
		}
	}
}

// handle reports whether the event is done and its offset may be committed.
// Malformed events and permanently missing advertisements are dropped;
// transient failures keep the offset uncommitted.
func (c *Consumer) handle(ctx context.Context, value []byte) bool {
	var event PromotionRetryEvent
	if err := json.Unmarshal(value, &event); err != nil {
		slog.Error("failed to unmarshal promotion retry event", "error", err)
		return true
	}

	adID, err := uuid.Parse(event.AdvertisementID)
	if err != nil {
		slog.Error("invalid advertisement id in retry event", "advertisement_id", event.AdvertisementID, "error", err)
		return true
	}

	if err := c.ads.Promote(ctx, adID, event.PromotedUntil); err != nil {
		if stderrors.Is(err, pkgerrors.ErrAdvertisementNotFound) {
			slog.Warn("advertisement still missing, dropping retry",
				"advertisement_id", event.AdvertisementID,
				"transaction_id", event.TransactionID)
			// TODO: Send to dead-letter queue
			return true
		}
		slog.Error("failed to re-apply promotion", "advertisement_id", event.AdvertisementID, "error", err)
		return false
	}

	slog.Info("promotion re-applied",
		"advertisement_id", event.AdvertisementID,
		"transaction_id", event.TransactionID,
		"promoted_until", event.PromotedUntil)
	return true
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}
