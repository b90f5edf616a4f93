// Package constants defines application-wide constants for timeouts, limits, and durations.
package constants

import "time"

// Time-related constants
const (
	// DefaultTimeout is the default timeout for most operations
	DefaultTimeout = 30 * time.Second

	// WebSocketPingInterval is the interval for WebSocket ping/pong
	WebSocketPingInterval = 60 * time.Second

	// WebSocketWriteTimeout is the per-message write deadline
	WebSocketWriteTimeout = 10 * time.Second

	// GracefulShutdownTimeout is the timeout for graceful server shutdown
	GracefulShutdownTimeout = 30 * time.Second
)

// Gateway connection constants
const (
	// DefaultMaxGatewayConnections bounds concurrent live connections
	DefaultMaxGatewayConnections = 1000

	// ClientSendBufferSize is the per-connection outbound queue; a client
	// whose queue fills up is considered stalled and disconnected
	ClientSendBufferSize = 256
)

// Call-related constants
const (
	// DefaultRingTimeout is how long a pending call may wait for an answer
	// before the janitor expires it
	DefaultRingTimeout = 60 * time.Second

	// JanitorSweepInterval is how often stale pending calls are swept
	JanitorSweepInterval = 15 * time.Second
)

// Presence constants
const (
	// PresenceMirrorTTL is the TTL on the per-user Redis presence key; the
	// gateway refreshes it while the connection lives
	PresenceMirrorTTL = 5 * time.Minute
)

// Database connection constants
const (
	// MaxConnLifetime is the maximum lifetime of a database connection
	MaxConnLifetime = 1 * time.Hour

	// MaxConnIdleTime is the maximum idle time for a database connection
	MaxConnIdleTime = 30 * time.Minute

	// HealthCheckPeriod is the interval between database health checks
	HealthCheckPeriod = 1 * time.Minute
)

// Pagination constants
const (
	// DefaultPageSize is the default number of items per page
	DefaultPageSize = 20

	// MaxPageSize is the maximum number of items per page
	MaxPageSize = 100
)

// Push notification constants
const (
	// PushTokenExpiry is the validity period for push notification tokens
	PushTokenExpiry = 30 * 24 * time.Hour // 30 days
)
