// Package memory provides in-process stores used when CockroachDB is
// unavailable (limited mode) and by tests. The call store honors the same
// compare-and-set transition contract as the durable one.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lucasmd12/0issues/internal/domain"
	"github.com/lucasmd12/0issues/pkg/errors"
)

// CallRepository is a mutex-guarded in-memory call store
type CallRepository struct {
	mu    sync.Mutex
	calls map[uuid.UUID]*domain.Call
}

// NewCallRepository creates an empty in-memory call store
func NewCallRepository() *CallRepository {
	return &CallRepository{
		calls: make(map[uuid.UUID]*domain.Call),
	}
}

func copyCall(call *domain.Call) *domain.Call {
	c := *call
	if call.AcceptedAt != nil {
		t := *call.AcceptedAt
		c.AcceptedAt = &t
	}
	if call.EndedAt != nil {
		t := *call.EndedAt
		c.EndedAt = &t
	}
	return &c
}

// Create inserts a new call record
func (r *CallRepository) Create(ctx context.Context, call *domain.Call) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.calls[call.CallID]; exists {
		return errors.ConflictError("Call already exists")
	}
	r.calls[call.CallID] = copyCall(call)

	return nil
}

// GetByID retrieves a call by ID
func (r *CallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[callID]
	if !ok {
		return nil, errors.CallNotFoundError()
	}

	return copyCall(call), nil
}

// Transition atomically moves the call from expected to next under the store
// lock; a concurrent competitor observes the conflict error with the record
// already in its new state.
func (r *CallRepository) Transition(ctx context.Context, callID uuid.UUID, expected, next domain.CallStatus, at time.Time) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	call, ok := r.calls[callID]
	if !ok {
		return nil, errors.CallNotFoundError()
	}

	if call.Status != expected {
		return copyCall(call), errors.InvalidTransitionError(string(call.Status))
	}

	call.Status = next
	switch {
	case next == domain.CallStatusActive:
		t := at
		call.AcceptedAt = &t
	case next.IsTerminal():
		t := at
		call.EndedAt = &t
	}

	return copyCall(call), nil
}

// HistoryFor retrieves the calls a user participated in, newest first
func (r *CallRepository) HistoryFor(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var calls []*domain.Call
	for _, call := range r.calls {
		if call.IsParticipant(userID) {
			calls = append(calls, copyCall(call))
		}
	}

	sort.Slice(calls, func(i, j int) bool {
		return calls[i].StartedAt.After(calls[j].StartedAt)
	})

	if offset >= len(calls) {
		return nil, nil
	}
	calls = calls[offset:]
	if limit > 0 && len(calls) > limit {
		calls = calls[:limit]
	}

	return calls, nil
}

// OpenCallFor returns the pending or active call involving userID, if any
func (r *CallRepository) OpenCallFor(ctx context.Context, userID uuid.UUID) (*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var newest *domain.Call
	for _, call := range r.calls {
		if !call.IsParticipant(userID) {
			continue
		}
		if call.Status != domain.CallStatusPending && call.Status != domain.CallStatusActive {
			continue
		}
		if newest == nil || call.StartedAt.After(newest.StartedAt) {
			newest = call
		}
	}

	if newest == nil {
		return nil, nil
	}
	return copyCall(newest), nil
}

// StalePending returns pending calls started before cutoff; used by the
// janitor sweep in limited mode.
func (r *CallRepository) StalePending(ctx context.Context, cutoff time.Time) ([]*domain.Call, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var stale []*domain.Call
	for _, call := range r.calls {
		if call.Status == domain.CallStatusPending && call.StartedAt.Before(cutoff) {
			stale = append(stale, copyCall(call))
		}
	}

	return stale, nil
}
