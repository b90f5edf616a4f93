package push

import (
	"context"

	"go.uber.org/zap"

	"github.com/lucasmd12/0issues/pkg/logger"
)

// MockProvider is a no-op provider for development and testing
type MockProvider struct{}

// Send logs the notification and reports every token as delivered
func (m *MockProvider) Send(ctx context.Context, notification *Notification, tokens []string) (*SendResult, error) {
	logger.Debug("Mock push notification",
		zap.String("title", notification.Title),
		zap.Int("tokens", len(tokens)))

	return &SendResult{SuccessCount: len(tokens)}, nil
}
