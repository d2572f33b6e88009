package service

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mkarpov/adboard-backend/internal/infrastructure/redis"
	"github.com/mkarpov/adboard-backend/internal/models"
	pkgerrors "github.com/mkarpov/adboard-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

// In-memory doubles for the repository and infrastructure interfaces. They
// guard state with a mutex so the concurrency tests exercise real
// interleavings.

type fakeTransactionRepo struct {
	mu           sync.Mutex
	transactions map[uuid.UUID]*models.PromotionTransaction
}

func newFakeTransactionRepo() *fakeTransactionRepo {
	return &fakeTransactionRepo{transactions: make(map[uuid.UUID]*models.PromotionTransaction)}
}

func (r *fakeTransactionRepo) Create(ctx context.Context, tx *models.PromotionTransaction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !tx.Amount.IsPositive() {
		return pkgerrors.ErrInvalidAmount
	}
	tx.Status = models.StatusPending
	tx.CreatedAt = time.Now().UTC()
	tx.CompletedAt = nil
	cp := *tx
	r.transactions[tx.ID] = &cp
	return nil
}

func (r *fakeTransactionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PromotionTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	tx, ok := r.transactions[id]
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

func (r *fakeTransactionRepo) Settle(ctx context.Context, id uuid.UUID, status models.TransactionStatus, completedAt time.Time) (*models.PromotionTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !status.Terminal() {
		return nil, pkgerrors.ErrInvalidStatus
	}
	tx, ok := r.transactions[id]
	if !ok {
		return nil, pkgerrors.ErrTransactionNotFound
	}
	if tx.Status != models.StatusPending {
		return nil, pkgerrors.ErrTransactionSettled
	}
	tx.Status = status
	tx.CompletedAt = &completedAt
	cp := *tx
	return &cp, nil
}

func (r *fakeTransactionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.PromotionTransaction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.PromotionTransaction
	for _, tx := range r.transactions {
		if tx.UserID == userID {
			out = append(out, *tx)
		}
	}
	return out, nil
}

type fakeAdRepo struct {
	mu  sync.Mutex
	ads map[uuid.UUID]*models.Advertisement
}

func newFakeAdRepo() *fakeAdRepo {
	return &fakeAdRepo{ads: make(map[uuid.UUID]*models.Advertisement)}
}

func (r *fakeAdRepo) Create(ctx context.Context, ad *models.Advertisement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad.CreatedAt = time.Now().UTC()
	ad.UpdatedAt = ad.CreatedAt
	cp := *ad
	r.ads[ad.ID] = &cp
	return nil
}

func (r *fakeAdRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Advertisement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.ads[id]
	if !ok {
		return nil, pkgerrors.ErrAdvertisementNotFound
	}
	cp := *ad
	return &cp, nil
}

func (r *fakeAdRepo) List(ctx context.Context, limit int) ([]models.Advertisement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.Advertisement
	for _, ad := range r.ads {
		out = append(out, *ad)
	}
	return out, nil
}

func (r *fakeAdRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.ads[id]; !ok {
		return pkgerrors.ErrAdvertisementNotFound
	}
	delete(r.ads, id)
	return nil
}

func (r *fakeAdRepo) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.ads[id]
	return ok, nil
}

func (r *fakeAdRepo) Promote(ctx context.Context, id uuid.UUID, until time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.ads[id]
	if !ok {
		return pkgerrors.ErrAdvertisementNotFound
	}
	ad.IsPromoted = true
	ad.PromotedUntil = until
	return nil
}

func (r *fakeAdRepo) AddImageURL(ctx context.Context, id uuid.UUID, url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	ad, ok := r.ads[id]
	if !ok {
		return pkgerrors.ErrAdvertisementNotFound
	}
	ad.ImageURLs = append(ad.ImageURLs, url)
	return nil
}

type fakeUserRepo struct {
	mu      sync.Mutex
	users   map[uuid.UUID]*models.User
	byEmail map[string]uuid.UUID
	entries []models.WalletEntry
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		users:   make(map[uuid.UUID]*models.User),
		byEmail: make(map[string]uuid.UUID),
	}
}

func (r *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user.CreatedAt = time.Now().UTC()
	cp := *user
	r.users[user.ID] = &cp
	r.byEmail[user.Email] = user.ID
	return nil
}

func (r *fakeUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	cp := *user
	return &cp, nil
}

func (r *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.byEmail[email]
	if !ok {
		return nil, pkgerrors.ErrUserNotFound
	}
	cp := *r.users[id]
	return &cp, nil
}

func (r *fakeUserRepo) GetBalance(ctx context.Context, userID uuid.UUID) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return decimal.Zero, pkgerrors.ErrUserNotFound
	}
	return user.Balance, nil
}

func (r *fakeUserRepo) ChangeBalance(ctx context.Context, userID uuid.UUID, delta decimal.Decimal, reason string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[userID]
	if !ok {
		return decimal.Zero, pkgerrors.ErrUserNotFound
	}
	newBalance := user.Balance.Add(delta)
	if newBalance.IsNegative() {
		return decimal.Zero, pkgerrors.ErrInsufficientFunds
	}
	user.Balance = newBalance
	r.entries = append(r.entries, models.WalletEntry{
		ID:        int64(len(r.entries) + 1),
		UserID:    userID,
		Amount:    delta,
		Balance:   newBalance,
		Reason:    reason,
		CreatedAt: time.Now().UTC(),
	})
	return newBalance, nil
}

func (r *fakeUserRepo) ListWalletEntries(ctx context.Context, userID uuid.UUID) ([]models.WalletEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []models.WalletEntry
	for i := len(r.entries) - 1; i >= 0; i-- {
		if r.entries[i].UserID == userID {
			out = append(out, r.entries[i])
		}
	}
	return out, nil
}

type fakeRedis struct {
	mu     sync.Mutex
	values map[string]string
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: make(map[string]string)}
}

func (c *fakeRedis) Get(ctx context.Context, key string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	val, ok := c.values[key]
	if !ok {
		return "", redis.ErrKeyNotFound
	}
	return val, nil
}

func (c *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch v := value.(type) {
	case string:
		c.values[key] = v
	case []byte:
		c.values[key] = string(v)
	}
	return nil
}

func (c *fakeRedis) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *fakeRedis) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.Set(ctx, key, payload, expiration)
}

func (c *fakeRedis) Del(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.values, key)
	return nil
}

func (c *fakeRedis) Close() error { return nil }

type sentMessage struct {
	topic string
	key   string
	value []byte
}

type fakeProducer struct {
	mu       sync.Mutex
	messages []sentMessage
}

func (p *fakeProducer) Send(ctx context.Context, topic string, key string, value []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, sentMessage{topic: topic, key: key, value: value})
	return nil
}

func (p *fakeProducer) Close() error { return nil }

func (p *fakeProducer) byTopic(topic string) []sentMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []sentMessage
	for _, m := range p.messages {
		if m.topic == topic {
			out = append(out, m)
		}
	}
	return out
}
