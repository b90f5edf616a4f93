package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/lucasmd12/0issues/internal/domain"
	"github.com/lucasmd12/0issues/pkg/errors"
)

// UserDirectory is an in-process identity directory used in limited mode.
// The gateway records each authenticated identity as it connects, so users
// become resolvable once they have announced themselves at least once.
type UserDirectory struct {
	mu    sync.RWMutex
	users map[uuid.UUID]*domain.User
}

// NewUserDirectory creates an empty directory
func NewUserDirectory() *UserDirectory {
	return &UserDirectory{
		users: make(map[uuid.UUID]*domain.User),
	}
}

// Record upserts an identity seen on the gateway
func (d *UserDirectory) Record(user *domain.User) {
	d.mu.Lock()
	defer d.mu.Unlock()

	u := *user
	d.users[user.UserID] = &u
}

// GetByID resolves a previously seen identity
func (d *UserDirectory) GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	user, ok := d.users[userID]
	if !ok {
		return nil, errors.UserNotFoundError()
	}

	u := *user
	return &u, nil
}
