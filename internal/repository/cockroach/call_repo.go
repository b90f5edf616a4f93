package cockroach

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/lucasmd12/0issues/internal/domain"
	"github.com/lucasmd12/0issues/pkg/errors"
)

// CallRepository is the durable call lifecycle store. Status changes go
// through Transition, a conditional UPDATE that checks the expected status in
// the same statement, so concurrent accept/reject/end can never lose updates.
type CallRepository struct {
	pool *pgxpool.Pool
}

// NewCallRepository creates a new call repository
func NewCallRepository(pool *pgxpool.Pool) *CallRepository {
	return &CallRepository{pool: pool}
}

const callColumns = `call_id, caller_id, receiver_id, status, started_at, accepted_at, ended_at`

func scanCall(row pgx.Row) (*domain.Call, error) {
	call := &domain.Call{}
	err := row.Scan(
		&call.CallID,
		&call.CallerID,
		&call.ReceiverID,
		&call.Status,
		&call.StartedAt,
		&call.AcceptedAt,
		&call.EndedAt,
	)
	if err != nil {
		return nil, err
	}
	return call, nil
}

// Create inserts a new call record in the pending state
func (r *CallRepository) Create(ctx context.Context, call *domain.Call) error {
	query := `
		INSERT INTO calls (call_id, caller_id, receiver_id, status, started_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.pool.Exec(ctx, query,
		call.CallID,
		call.CallerID,
		call.ReceiverID,
		call.Status,
		call.StartedAt,
	)

	if err != nil {
		return errors.DatabaseError(err)
	}

	return nil
}

// GetByID retrieves a call by ID
func (r *CallRepository) GetByID(ctx context.Context, callID uuid.UUID) (*domain.Call, error) {
	query := `SELECT ` + callColumns + ` FROM calls WHERE call_id = $1`

	call, err := scanCall(r.pool.QueryRow(ctx, query, callID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, errors.CallNotFoundError()
		}
		return nil, errors.DatabaseError(err)
	}

	return call, nil
}

// Transition atomically moves the call from expected to next. The status
// check and the update are a single statement; when the row was already moved
// by a concurrent request, zero rows match and the current record is fetched
// to build the conflict error.
func (r *CallRepository) Transition(ctx context.Context, callID uuid.UUID, expected, next domain.CallStatus, at time.Time) (*domain.Call, error) {
	query := `
		UPDATE calls
		SET status = $3,
		    accepted_at = CASE WHEN $3 = 'active' THEN $4 ELSE accepted_at END,
		    ended_at    = CASE WHEN $3 IN ('rejected', 'ended') THEN $4 ELSE ended_at END
		WHERE call_id = $1 AND status = $2
		RETURNING ` + callColumns

	call, err := scanCall(r.pool.QueryRow(ctx, query, callID, expected, next, at))
	if err == nil {
		return call, nil
	}
	if err != pgx.ErrNoRows {
		return nil, errors.DatabaseError(err)
	}

	// Guard failed: either the call does not exist or it is in another state
	current, getErr := r.GetByID(ctx, callID)
	if getErr != nil {
		return nil, getErr
	}
	return current, errors.InvalidTransitionError(string(current.Status))
}

// HistoryFor retrieves the calls a user participated in, newest first
func (r *CallRepository) HistoryFor(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*domain.Call, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE caller_id = $1 OR receiver_id = $1
		ORDER BY started_at DESC
		LIMIT $2 OFFSET $3
	`

	rows, err := r.pool.Query(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, errors.DatabaseError(err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, errors.DatabaseError(err)
		}
		calls = append(calls, call)
	}

	return calls, nil
}

// StalePending returns pending calls started before cutoff, oldest first.
// The janitor expires them through Transition, so a concurrent answer always
// wins over the sweep.
func (r *CallRepository) StalePending(ctx context.Context, cutoff time.Time) ([]*domain.Call, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE status = 'pending' AND started_at < $1
		ORDER BY started_at ASC
	`

	rows, err := r.pool.Query(ctx, query, cutoff)
	if err != nil {
		return nil, errors.DatabaseError(err)
	}
	defer rows.Close()

	var calls []*domain.Call
	for rows.Next() {
		call, err := scanCall(rows)
		if err != nil {
			return nil, errors.DatabaseError(err)
		}
		calls = append(calls, call)
	}

	return calls, nil
}

// OpenCallFor returns the pending or active call involving userID, if any.
// Used for the busy check on initiate; the check is advisory, the Transition
// guard remains the source of truth for each individual record.
func (r *CallRepository) OpenCallFor(ctx context.Context, userID uuid.UUID) (*domain.Call, error) {
	query := `
		SELECT ` + callColumns + `
		FROM calls
		WHERE (caller_id = $1 OR receiver_id = $1)
		  AND status IN ('pending', 'active')
		ORDER BY started_at DESC
		LIMIT 1
	`

	call, err := scanCall(r.pool.QueryRow(ctx, query, userID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, errors.DatabaseError(err)
	}

	return call, nil
}
