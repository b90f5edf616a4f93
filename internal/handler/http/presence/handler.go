package presence

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/lucasmd12/0issues/internal/presence"
	"github.com/lucasmd12/0issues/pkg/response"
)

// Handler exposes read-only presence queries backed by the live connection
// registry
type Handler struct {
	registry *presence.Registry
}

// NewHandler creates a new presence handler
func NewHandler(registry *presence.Registry) *Handler {
	return &Handler{
		registry: registry,
	}
}

// GetOnlineUsers lists currently connected users
// GET /v1/presence/online
func (h *Handler) GetOnlineUsers(c *gin.Context) {
	users := h.registry.OnlineUsers()

	response.Success(c, http.StatusOK, gin.H{
		"users": users,
		"count": len(users),
	})
}

// GetUserPresence reports whether a single user is connected
// GET /v1/presence/:id
func (h *Handler) GetUserPresence(c *gin.Context) {
	userID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.ValidationError(c, "Invalid user ID")
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"user_id": userID,
		"online":  h.registry.IsOnline(userID),
	})
}
