package domain

import (
	"time"

	"github.com/google/uuid"
)

// PresenceEntry binds a user to their current live gateway connection.
// At most one connection per user; a newer registration displaces the old one.
type PresenceEntry struct {
	UserID       uuid.UUID `json:"user_id"`
	ConnectionID string    `json:"connection_id"`
	ConnectedAt  time.Time `json:"connected_at"`
}

// SignalMessage is an opaque WebRTC negotiation payload relayed between two
// users. It exists only for the duration of the relay and is never persisted.
type SignalMessage struct {
	TargetUserID uuid.UUID      `json:"target_user_id"`
	SenderUserID uuid.UUID      `json:"sender_user_id"`
	SignalType   string         `json:"signal_type"` // offer, answer, ice_candidate
	SignalData   map[string]any `json:"signal_data,omitempty"`
}
