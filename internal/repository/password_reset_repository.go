package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrResetTokenInvalid covers unknown, expired and already-used tokens.
var ErrResetTokenInvalid = errors.New("password reset token invalid or expired")

// PasswordResetToken represents an issued reset token.
type PasswordResetToken struct {
	UserID    string    `json:"user_id"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// PasswordResetRepository manages password reset token storage.
type PasswordResetRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) error
	Consume(ctx context.Context, token string) (*PasswordResetToken, error)
}

const resetKeyPrefix = "helpdesk:password_reset:"

// redisPasswordResetRepository keeps reset tokens in Redis; expiry rides on
// the key TTL so stale tokens disappear on their own.
type redisPasswordResetRepository struct {
	client *redis.Client
}

// NewPasswordResetRepository constructs a Redis-backed store.
func NewPasswordResetRepository(client *redis.Client) PasswordResetRepository {
	return &redisPasswordResetRepository{client: client}
}

func (r *redisPasswordResetRepository) Create(ctx context.Context, token *PasswordResetToken) error {
	if token.CreatedAt.IsZero() {
		token.CreatedAt = time.Now()
	}
	ttl := time.Until(token.ExpiresAt)
	if ttl <= 0 {
		return ErrResetTokenInvalid
	}
	payload, err := json.Marshal(token)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, resetKeyPrefix+token.Token, payload, ttl).Err()
}

// Consume returns the token record and deletes it, so a token is usable at
// most once.
func (r *redisPasswordResetRepository) Consume(ctx context.Context, tokenStr string) (*PasswordResetToken, error) {
	key := resetKeyPrefix + tokenStr
	payload, err := r.client.GetDel(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrResetTokenInvalid
		}
		return nil, err
	}
	var token PasswordResetToken
	if err := json.Unmarshal([]byte(payload), &token); err != nil {
		return nil, err
	}
	if time.Now().After(token.ExpiresAt) {
		return nil, ErrResetTokenInvalid
	}
	return &token, nil
}
