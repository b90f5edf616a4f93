package domain

import (
	"time"

	"github.com/google/uuid"
)

// User is the identity record resolved when a call is initiated.
// Account management lives in the auth service; this service only reads.
type User struct {
	UserID      uuid.UUID `json:"user_id"`
	Username    string    `json:"username"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
