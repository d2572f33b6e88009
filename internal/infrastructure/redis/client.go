package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	stderrors "errors"

	"github.com/redis/go-redis/v9"
)

var ErrKeyNotFound = stderrors.New("key not found")

// Key builders for everything this service keeps in redis: issued tokens,
// the balance read cache, and the advertisement list cache. Balance values
// are cached under a per-user version segment; rotating the version on a
// wallet mutation orphans any in-flight cache write keyed to the old one.

func UserTokenKey(userID string) string {
	return fmt.Sprintf("user:%s:token", userID)
}

func RefreshTokenKey(token string) string {
	return fmt.Sprintf("refresh_token:%s", token)
}

func UserBalanceVersionKey(userID string) string {
	return fmt.Sprintf("user:%s:balance_ver", userID)
}

func UserBalanceKey(userID, version string) string {
	return fmt.Sprintf("user:%s:balance:%s", userID, version)
}

// AdListKey caches the newest-first advertisement listing as JSON.
const AdListKey = "ads:recent"

// RedisClient is the cache surface the services depend on. GetJSON and
// SetJSON carry the marshalling so callers cache structured values the
// same way everywhere.
type RedisClient interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	GetJSON(ctx context.Context, key string, dest interface{}) error
	SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error
	Del(ctx context.Context, key string) error
	Close() error
}

// Client is the implementation of RedisClient.
type Client struct {
	client *redis.Client
}

func NewClient(addr string) *Client {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		slog.Error("failed to connect to Redis", "addr", addr, "error", err)
		panic(err)
	}

	slog.Info("connected to Redis", "addr", addr)
	return &Client{client: client}
}

func (c *Client) Get(ctx context.Context, key string) (string, error) {
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", ErrKeyNotFound
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

func (c *Client) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	return c.client.Set(ctx, key, value, expiration).Err()
}

// GetJSON reads a key and unmarshals it into dest. Returns ErrKeyNotFound
// on a miss; a corrupt payload surfaces as the unmarshal error.
func (c *Client) GetJSON(ctx context.Context, key string, dest interface{}) error {
	val, err := c.Get(ctx, key)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(val), dest)
}

func (c *Client) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	payload, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value for key %s: %w", key, err)
	}
	return c.Set(ctx, key, payload, expiration)
}

func (c *Client) Del(ctx context.Context, key string) error {
	return c.client.Del(ctx, key).Err()
}

func (c *Client) Close() error {
	return c.client.Close()
}
