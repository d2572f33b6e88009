package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/models"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type stubAdRepo struct {
	promoteErr error
	promoted   []uuid.UUID
}

func (r *stubAdRepo) Create(ctx context.Context, ad *models.Advertisement) error { return nil }
func (r *stubAdRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Advertisement, error) {
	return nil, pkgerrors.ErrAdvertisementNotFound
}
func (r *stubAdRepo) List(ctx context.Context, limit int) ([]models.Advertisement, error) {
	return nil, nil
}
func (r *stubAdRepo) Delete(ctx context.Context, id uuid.UUID) error      { return nil }
func (r *stubAdRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) { return true, nil }
func (r *stubAdRepo) Promote(ctx context.Context, id uuid.UUID, until time.Time) error {
	if r.promoteErr != nil {
		return r.promoteErr
	}
	r.promoted = append(r.promoted, id)
	return nil
}
func (r *stubAdRepo) AddImageURL(ctx context.Context, id uuid.UUID, url string) error { return nil }

func retryEventBytes(t *testing.T, adID uuid.UUID) []byte {
	t.Helper()
	payload, err := json.Marshal(PromotionRetryEvent{
		TransactionID:   uuid.NewString(),
		AdvertisementID: adID.String(),
		PromotedUntil:   time.Now().UTC().Add(7 * 24 * time.Hour),
	})
	assert.NoError(t, err)
	return payload
}

func TestConsumerHandle(t *testing.T) {
	ctx := context.Background()

	t.Run("applies promotion and acks", func(t *testing.T) {
		ads := &stubAdRepo{}
		c := &Consumer{ads: ads}
		adID := uuid.New()

		assert.True(t, c.handle(ctx, retryEventBytes(t, adID)))
		assert.Equal(t, []uuid.UUID{adID}, ads.promoted)
	})

	t.Run("transient failure keeps the event", func(t *testing.T) {
		ads := &stubAdRepo{promoteErr: fmt.Errorf("database error")}
		c := &Consumer{ads: ads}

		assert.False(t, c.handle(ctx, retryEventBytes(t, uuid.New())))
	})

	t.Run("missing advertisement is dropped", func(t *testing.T) {
		ads := &stubAdRepo{promoteErr: pkgerrors.ErrAdvertisementNotFound}
		c := &Consumer{ads: ads}

		assert.True(t, c.handle(ctx, retryEventBytes(t, uuid.New())))
	})

	t.Run("malformed payload is dropped", func(t *testing.T) {
		ads := &stubAdRepo{}
		c := &Consumer{ads: ads}

		assert.True(t, c.handle(ctx, []byte("not json")))
		assert.True(t, c.handle(ctx, []byte(`{"advertisement_id":"not-a-uuid"}`)))
		assert.Empty(t, ads.promoted)
	})
}
