package presence

import (
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestLookup_NeverConnected(t *testing.T) {
	registry := NewRegistry()

	_, ok := registry.Lookup(uuid.New())
	assert.False(t, ok)
	assert.False(t, registry.IsOnline(uuid.New()))
	assert.Equal(t, 0, registry.Count())
}

func TestRegister_LastWriteWins(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	prev, displaced := registry.Register(userID, "conn-1")
	assert.False(t, displaced)
	assert.Empty(t, prev)

	prev, displaced = registry.Register(userID, "conn-2")
	assert.True(t, displaced)
	assert.Equal(t, "conn-1", prev)

	connID, ok := registry.Lookup(userID)
	assert.True(t, ok)
	assert.Equal(t, "conn-2", connID)

	// The displaced connection must no longer resolve to the user
	_, ok = registry.UserFor("conn-1")
	assert.False(t, ok)
	assert.Equal(t, 1, registry.Count())
}

func TestUnregister_SupersededConnectionIsNoOp(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	registry.Register(userID, "conn-1")
	registry.Register(userID, "conn-2")

	// The late disconnect of conn-1 must not remove the newer entry
	_, removed := registry.Unregister("conn-1")
	assert.False(t, removed)

	connID, ok := registry.Lookup(userID)
	assert.True(t, ok)
	assert.Equal(t, "conn-2", connID)
}

func TestUnregister_CurrentConnection(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	registry.Register(userID, "conn-1")

	removedUser, removed := registry.Unregister("conn-1")
	assert.True(t, removed)
	assert.Equal(t, userID, removedUser)

	_, ok := registry.Lookup(userID)
	assert.False(t, ok)

	// Unregistering twice is harmless
	_, removed = registry.Unregister("conn-1")
	assert.False(t, removed)
}

func TestOnlineUsers(t *testing.T) {
	registry := NewRegistry()
	userA := uuid.New()
	userB := uuid.New()

	registry.Register(userA, "conn-a")
	registry.Register(userB, "conn-b")

	online := registry.OnlineUsers()
	assert.Len(t, online, 2)
	assert.Contains(t, online, userA)
	assert.Contains(t, online, userB)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	registry := NewRegistry()
	userID := uuid.New()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		connID := uuid.New().String()
		go func() {
			defer wg.Done()
			registry.Register(userID, connID)
		}()
		go func() {
			defer wg.Done()
			registry.Unregister(connID)
		}()
	}
	wg.Wait()

	// Whatever interleaving happened, the maps must agree with each other
	if connID, ok := registry.Lookup(userID); ok {
		resolved, ok := registry.UserFor(connID)
		assert.True(t, ok)
		assert.Equal(t, userID, resolved)
	} else {
		assert.Equal(t, 0, registry.Count())
	}
}
