package redis

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/lucasmd12/0issues/internal/database"
	"github.com/lucasmd12/0issues/pkg/constants"
)

// PushTokenRepository stores FCM device tokens per user in Redis. Tokens are
// registered by the client app through the notification service; this
// service only reads them to reach offline call receivers.
type PushTokenRepository struct {
	client *database.RedisClient
}

// NewPushTokenRepository creates a new PushTokenRepository
func NewPushTokenRepository(client *database.RedisClient) *PushTokenRepository {
	return &PushTokenRepository{client: client}
}

func tokenKey(userID uuid.UUID) string {
	return fmt.Sprintf("push:tokens:%s", userID)
}

// Store registers a device token for a user
func (r *PushTokenRepository) Store(ctx context.Context, userID uuid.UUID, token string) error {
	key := tokenKey(userID)

	if err := r.client.SafeSAdd(ctx, key, token).Err(); err != nil {
		return fmt.Errorf("failed to store push token: %w", err)
	}

	// Tokens rotate client-side; expire the whole set so dead devices age out
	if err := r.client.SafeExpire(ctx, key, constants.PushTokenExpiry).Err(); err != nil {
		return fmt.Errorf("failed to set token expiry: %w", err)
	}

	return nil
}

// GetByUserID retrieves all device tokens registered for a user
func (r *PushTokenRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]string, error) {
	tokens, err := r.client.SafeSMembers(ctx, tokenKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get push tokens: %w", err)
	}
	return tokens, nil
}

// Remove deletes a token reported invalid by the push provider
func (r *PushTokenRepository) Remove(ctx context.Context, userID uuid.UUID, token string) error {
	if err := r.client.SafeSRem(ctx, tokenKey(userID), token).Err(); err != nil {
		return fmt.Errorf("failed to remove push token: %w", err)
	}
	return nil
}
