package domain

import (
	"time"

	"github.com/google/uuid"
)

// CallStatus represents the lifecycle state of a call
type CallStatus string

const (
	CallStatusPending  CallStatus = "pending"  // waiting for the receiver to answer
	CallStatusActive   CallStatus = "active"   // accepted, media running
	CallStatusRejected CallStatus = "rejected" // receiver declined
	CallStatusEnded    CallStatus = "ended"    // hung up, cancelled or expired
)

// IsTerminal reports whether no further transition is allowed from s
func (s CallStatus) IsTerminal() bool {
	return s == CallStatusRejected || s == CallStatusEnded
}

// validTransitions is the call state machine:
//
//	pending -> active | rejected | ended
//	active  -> ended
var validTransitions = map[CallStatus][]CallStatus{
	CallStatusPending: {CallStatusActive, CallStatusRejected, CallStatusEnded},
	CallStatusActive:  {CallStatusEnded},
}

// CanTransition reports whether from -> to is a legal status change
func CanTransition(from, to CallStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Call represents a 1-1 call attempt and its lifecycle record
// Maps to the CockroachDB calls table; rows are never deleted
type Call struct {
	CallID     uuid.UUID  `json:"call_id"`
	CallerID   uuid.UUID  `json:"caller_id"`
	ReceiverID uuid.UUID  `json:"receiver_id"`
	Status     CallStatus `json:"status"`
	StartedAt  time.Time  `json:"started_at"`
	AcceptedAt *time.Time `json:"accepted_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
}

// IsParticipant reports whether userID is the caller or the receiver
func (c *Call) IsParticipant(userID uuid.UUID) bool {
	return c.CallerID == userID || c.ReceiverID == userID
}

// OtherParty returns the counterpart of userID in the call
func (c *Call) OtherParty(userID uuid.UUID) uuid.UUID {
	if c.CallerID == userID {
		return c.ReceiverID
	}
	return c.CallerID
}
