package call

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lucasmd12/0issues/internal/domain"
	"github.com/lucasmd12/0issues/pkg/constants"
	"github.com/lucasmd12/0issues/pkg/errors"
	"github.com/lucasmd12/0issues/pkg/logger"
)

// StartJanitor periodically expires pending calls that were never answered.
// Each expiry goes through the same guarded transition as a hangup, so a
// concurrent accept always wins over the sweep.
func (s *Service) StartJanitor(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(constants.JanitorSweepInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.sweepStalePending(ctx)
			}
		}
	}()
}

func (s *Service) sweepStalePending(ctx context.Context) {
	cutoff := time.Now().Add(-s.ringTimeout)

	stale, err := s.store.StalePending(ctx, cutoff)
	if err != nil {
		logger.Warn("Stale call sweep failed", zap.Error(err))
		return
	}

	for _, call := range stale {
		updated, err := s.store.Transition(ctx, call.CallID, domain.CallStatusPending, domain.CallStatusEnded, time.Now())
		if err != nil {
			// Lost the race to an accept, reject, or hangup
			if errors.IsCode(err, errors.ErrCodeInvalidTransition) {
				continue
			}
			logger.Warn("Failed to expire stale call",
				zap.String("call_id", call.CallID.String()),
				zap.Error(err))
			continue
		}

		s.recordEvent("expired")
		logger.Info("Expired unanswered call",
			zap.String("call_id", updated.CallID.String()),
			zap.String("caller_id", updated.CallerID.String()))

		s.notify(updated.CallerID, EventCallEnded, map[string]any{
			"call_id": updated.CallID,
			"reason":  "ring_timeout",
		})
		s.notify(updated.ReceiverID, EventCallEnded, map[string]any{
			"call_id": updated.CallID,
			"reason":  "ring_timeout",
		})
	}
}
