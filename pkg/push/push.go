// Package push delivers best-effort mobile push notifications. It is the
// fallback path for incoming_call when the receiver has no live gateway
// connection; call state never depends on it.
package push

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lucasmd12/0issues/pkg/logger"
)

// Provider defines the interface for sending push notifications
type Provider interface {
	Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error)
}

// SendResult contains the result of a push send operation
type SendResult struct {
	SuccessCount  int
	FailureCount  int
	InvalidTokens []string
}

// Notification represents a push notification
type Notification struct {
	Title    string            `json:"title"`
	Body     string            `json:"body"`
	Data     map[string]string `json:"data,omitempty"`
	Priority string            `json:"priority,omitempty"` // high, normal
	Sound    string            `json:"sound,omitempty"`
}

// TokenStore reads and prunes device tokens for a user
type TokenStore interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]string, error)
	Remove(ctx context.Context, userID uuid.UUID, token string) error
}

// Service sends notifications to all of a user's registered devices
type Service struct {
	provider Provider
	tokens   TokenStore
}

// NewService creates a new push notification service
func NewService(provider Provider, tokens TokenStore) *Service {
	return &Service{
		provider: provider,
		tokens:   tokens,
	}
}

// SendToUser delivers a notification to every device registered for userID.
// Invalid tokens reported by the provider are pruned from the store.
func (s *Service) SendToUser(ctx context.Context, userID uuid.UUID, notification *Notification) (*SendResult, error) {
	tokens, err := s.tokens.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return &SendResult{}, nil
	}

	result, err := s.provider.Send(ctx, notification, tokens)
	if err != nil {
		return nil, err
	}

	for _, token := range result.InvalidTokens {
		if remErr := s.tokens.Remove(ctx, userID, token); remErr != nil {
			logger.Warn("Failed to prune invalid push token",
				zap.String("user_id", userID.String()),
				zap.Error(remErr))
		}
	}

	return result, nil
}
