// Package presence tracks which users currently hold a live gateway
// connection. The registry is the single authoritative in-process presence
// map; it starts empty on boot and is rebuilt as clients re-announce.
package presence

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucasmd12/0issues/internal/domain"
)

// Registry is a bidirectional user <-> connection map. At most one live
// connection per user; a newer registration displaces the older one.
type Registry struct {
	mu     sync.RWMutex
	byUser map[uuid.UUID]*domain.PresenceEntry
	byConn map[string]uuid.UUID
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byUser: make(map[uuid.UUID]*domain.PresenceEntry),
		byConn: make(map[string]uuid.UUID),
	}
}

// Register inserts or overwrites the entry for userID and returns the
// displaced connection ID, if any, so the caller can close the old socket.
func (r *Registry) Register(userID uuid.UUID, connectionID string) (prevConnID string, displaced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if prev, ok := r.byUser[userID]; ok {
		prevConnID = prev.ConnectionID
		displaced = true
		delete(r.byConn, prev.ConnectionID)
	}

	r.byUser[userID] = &domain.PresenceEntry{
		UserID:       userID,
		ConnectionID: connectionID,
		ConnectedAt:  time.Now(),
	}
	r.byConn[connectionID] = userID

	return prevConnID, displaced
}

// Unregister removes the entry owning connectionID. It is a no-op when the
// connection was already displaced by a newer registration, which protects
// against disconnect events arriving after the user reconnected.
func (r *Registry) Unregister(connectionID string) (userID uuid.UUID, removed bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, ok := r.byConn[connectionID]
	if !ok {
		return uuid.Nil, false
	}

	entry := r.byUser[userID]
	if entry == nil || entry.ConnectionID != connectionID {
		// Stale reverse mapping; never drop the newer entry
		delete(r.byConn, connectionID)
		return uuid.Nil, false
	}

	delete(r.byUser, userID)
	delete(r.byConn, connectionID)

	return userID, true
}

// Lookup returns the current connection ID for userID
func (r *Registry) Lookup(userID uuid.UUID) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.byUser[userID]
	if !ok {
		return "", false
	}
	return entry.ConnectionID, true
}

// UserFor returns the user owning connectionID
func (r *Registry) UserFor(connectionID string) (uuid.UUID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userID, ok := r.byConn[connectionID]
	return userID, ok
}

// IsOnline reports whether userID currently has a live connection
func (r *Registry) IsOnline(userID uuid.UUID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.byUser[userID]
	return ok
}

// OnlineUsers returns a snapshot of all connected user IDs
func (r *Registry) OnlineUsers() []uuid.UUID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]uuid.UUID, 0, len(r.byUser))
	for userID := range r.byUser {
		users = append(users, userID)
	}
	return users
}

// Count returns the number of connected users
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byUser)
}
