// Package call implements the call lifecycle coordinator: it validates the
// acting user, drives guarded status transitions on the store, and pushes
// best-effort notifications to the counterparty.
package call

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lucasmd12/0issues/internal/domain"
	"github.com/lucasmd12/0issues/pkg/constants"
	"github.com/lucasmd12/0issues/pkg/errors"
	"github.com/lucasmd12/0issues/pkg/logger"
	"github.com/lucasmd12/0issues/pkg/metrics"
	"github.com/lucasmd12/0issues/pkg/push"
)

// CallStore is the durable call lifecycle store. Transition must be atomic:
// the expected-status check and the update happen as one operation.
type CallStore interface {
	Create(ctx context.Context, call *domain.Call) error
	GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error)
	Transition(ctx context.Context, callID uuid.UUID, expected, next domain.CallStatus, at time.Time) (*domain.Call, error)
	HistoryFor(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error)
	OpenCallFor(ctx context.Context, userID uuid.UUID) (*domain.Call, error)
	StalePending(ctx context.Context, cutoff time.Time) ([]*domain.Call, error)
}

// UserResolver resolves user identities
type UserResolver interface {
	GetByID(ctx context.Context, userID uuid.UUID) (*domain.User, error)
}

// Dispatcher pushes a named event to a user's live connection. Delivery is
// best-effort; an unreachable target is a soft failure.
type Dispatcher interface {
	Notify(userID uuid.UUID, event string, payload any) error
}

// PushSender is the mobile push fallback for offline receivers
type PushSender interface {
	SendToUser(ctx context.Context, userID uuid.UUID, notification *push.Notification) (*push.SendResult, error)
}

// Service coordinates the call lifecycle
type Service struct {
	store      CallStore
	users      UserResolver
	dispatcher Dispatcher
	pushSvc    PushSender // may be nil
	metrics    *metrics.Metrics

	ringTimeout time.Duration
}

// NewService creates a new call coordinator
func NewService(store CallStore, users UserResolver, dispatcher Dispatcher, pushSvc PushSender, m *metrics.Metrics) *Service {
	return &Service{
		store:       store,
		users:       users,
		dispatcher:  dispatcher,
		pushSvc:     pushSvc,
		metrics:     m,
		ringTimeout: constants.DefaultRingTimeout,
	}
}

// SetRingTimeout overrides how long a pending call may ring before the
// janitor expires it
func (s *Service) SetRingTimeout(d time.Duration) {
	if d > 0 {
		s.ringTimeout = d
	}
}

// Gateway event names dispatched by the coordinator
const (
	EventIncomingCall = "incoming_call"
	EventCallAccepted = "call_accepted"
	EventCallRejected = "call_rejected"
	EventCallEnded    = "call_ended"
)

// Initiate creates a pending call and rings the receiver. The call record is
// created even when the receiver is unreachable; the caller can poll the
// history or cancel.
func (s *Service) Initiate(ctx context.Context, callerID, receiverID uuid.UUID) (*domain.Call, error) {
	if callerID == receiverID {
		return nil, errors.ValidationError("Cannot call yourself")
	}

	caller, err := s.users.GetByID(ctx, callerID)
	if err != nil {
		return nil, err
	}
	if _, err := s.users.GetByID(ctx, receiverID); err != nil {
		return nil, err
	}

	// Advisory busy check; the per-record transition guard stays authoritative
	open, err := s.store.OpenCallFor(ctx, receiverID)
	if err != nil {
		return nil, err
	}
	if open != nil {
		return nil, errors.ReceiverBusyError()
	}

	call := &domain.Call{
		CallID:     uuid.New(),
		CallerID:   callerID,
		ReceiverID: receiverID,
		Status:     domain.CallStatusPending,
		StartedAt:  time.Now(),
	}

	if err := s.store.Create(ctx, call); err != nil {
		return nil, err
	}

	s.recordEvent("initiated")

	delivered := s.notify(receiverID, EventIncomingCall, map[string]any{
		"call_id":         call.CallID,
		"caller_id":       callerID,
		"caller_username": caller.Username,
	})
	if !delivered {
		s.pushIncomingCall(ctx, call, caller)
	}

	return call, nil
}

// Accept transitions pending -> active and notifies the caller
func (s *Service) Accept(ctx context.Context, callID, actingUserID uuid.UUID) (*domain.Call, error) {
	call, err := s.store.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.ReceiverID != actingUserID {
		return nil, errors.ForbiddenError("Only the receiver can accept a call")
	}

	updated, err := s.store.Transition(ctx, callID, domain.CallStatusPending, domain.CallStatusActive, time.Now())
	if err != nil {
		return nil, err
	}

	s.recordEvent("accepted")
	if s.metrics != nil {
		s.metrics.CallActivated()
	}

	s.notify(updated.CallerID, EventCallAccepted, map[string]any{
		"call_id":     updated.CallID,
		"accepted_by": actingUserID,
	})

	return updated, nil
}

// Reject transitions pending -> rejected and notifies the caller
func (s *Service) Reject(ctx context.Context, callID, actingUserID uuid.UUID) (*domain.Call, error) {
	call, err := s.store.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if call.ReceiverID != actingUserID {
		return nil, errors.ForbiddenError("Only the receiver can reject a call")
	}

	updated, err := s.store.Transition(ctx, callID, domain.CallStatusPending, domain.CallStatusRejected, time.Now())
	if err != nil {
		return nil, err
	}

	s.recordEvent("rejected")

	s.notify(updated.CallerID, EventCallRejected, map[string]any{
		"call_id":     updated.CallID,
		"rejected_by": actingUserID,
	})

	return updated, nil
}

// End transitions the call to ended from either pending (cancel) or active
// (hangup). Ending an already ended call is a benign duplicate and returns
// the terminal record; ending a rejected call is a conflict.
func (s *Service) End(ctx context.Context, callID, actingUserID uuid.UUID) (*domain.Call, error) {
	call, err := s.store.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !call.IsParticipant(actingUserID) {
		return nil, errors.NotParticipantError()
	}

	// Two attempts: the observed status can be overtaken by a concurrent
	// accept (pending -> active) between the read and the transition
	for attempt := 0; attempt < 2; attempt++ {
		switch call.Status {
		case domain.CallStatusEnded:
			return call, nil
		case domain.CallStatusRejected:
			return nil, errors.InvalidTransitionError(string(call.Status))
		}

		wasActive := call.Status == domain.CallStatusActive

		updated, err := s.store.Transition(ctx, callID, call.Status, domain.CallStatusEnded, time.Now())
		if err == nil {
			s.recordEvent("ended")
			if wasActive && s.metrics != nil {
				s.metrics.CallDeactivated()
			}
			s.notify(updated.OtherParty(actingUserID), EventCallEnded, map[string]any{
				"call_id":  updated.CallID,
				"ended_by": actingUserID,
			})
			return updated, nil
		}

		if !errors.IsCode(err, errors.ErrCodeInvalidTransition) || updated == nil {
			return nil, err
		}
		call = updated
	}

	if call.Status == domain.CallStatusEnded {
		return call, nil
	}
	return nil, errors.InvalidTransitionError(string(call.Status))
}

// Get returns a call to one of its participants
func (s *Service) Get(ctx context.Context, callID, actingUserID uuid.UUID) (*domain.Call, error) {
	call, err := s.store.GetByID(ctx, callID)
	if err != nil {
		return nil, err
	}
	if !call.IsParticipant(actingUserID) {
		return nil, errors.NotParticipantError()
	}
	return call, nil
}

// History returns the user's calls, newest first
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error) {
	if limit <= 0 {
		limit = constants.DefaultPageSize
	}
	if limit > constants.MaxPageSize {
		limit = constants.MaxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	return s.store.HistoryFor(ctx, userID, limit, offset)
}

// notify dispatches a live event; an unreachable target is logged and
// swallowed so persistence success never depends on delivery.
func (s *Service) notify(userID uuid.UUID, event string, payload map[string]any) bool {
	if err := s.dispatcher.Notify(userID, event, payload); err != nil {
		logger.Warn("Live notification dropped",
			zap.String("event", event),
			zap.String("user_id", userID.String()),
			zap.Error(err))
		return false
	}
	return true
}

// pushIncomingCall is the offline fallback for ringing a receiver
func (s *Service) pushIncomingCall(ctx context.Context, call *domain.Call, caller *domain.User) {
	if s.pushSvc == nil {
		return
	}

	result, err := s.pushSvc.SendToUser(ctx, call.ReceiverID, &push.Notification{
		Title:    "Incoming call",
		Body:     caller.Username + " is calling you",
		Priority: "high",
		Sound:    "ringtone",
		Data: map[string]string{
			"type":      "incoming_call",
			"call_id":   call.CallID.String(),
			"caller_id": call.CallerID.String(),
		},
	})
	if err != nil {
		logger.Warn("Push fallback failed",
			zap.String("call_id", call.CallID.String()),
			zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordPush("failed")
		}
		return
	}

	if s.metrics != nil {
		if result.SuccessCount > 0 {
			s.metrics.RecordPush("sent")
		} else {
			s.metrics.RecordPush("no_tokens")
		}
	}
}

func (s *Service) recordEvent(event string) {
	if s.metrics != nil {
		s.metrics.RecordCallEvent(event)
	}
}
