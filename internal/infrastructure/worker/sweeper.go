package worker

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// PendingSweeper refreshes payments left pending longer than a cutoff
type PendingSweeper interface {
	SweepStale(ctx context.Context, olderThan time.Time, limit int) (int, error)
}

// Sweeper periodically asks the vendors about payments stuck in pending,
// covering webhooks that never arrived
type Sweeper struct {
	payments   PendingSweeper
	swept      prometheus.Counter
	interval   time.Duration
	staleAfter time.Duration
	batchSize  int
	logger     *zap.Logger
	now        func() time.Time
}

func NewSweeper(payments PendingSweeper, swept prometheus.Counter, interval, staleAfter time.Duration, batchSize int, logger *zap.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if staleAfter <= 0 {
		staleAfter = 30 * time.Minute
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Sweeper{
		payments:   payments,
		swept:      swept,
		interval:   interval,
		staleAfter: staleAfter,
		batchSize:  batchSize,
		logger:     logger,
		now:        time.Now,
	}
}

// Start sweeps on every tick until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	s.logger.Info("Stale payment sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("stale_after", s.staleAfter))

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Stale payment sweeper stopping")
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass and returns the number of payments that changed status
func (s *Sweeper) Sweep(ctx context.Context) int {
	changed, err := s.payments.SweepStale(ctx, s.now().Add(-s.staleAfter), s.batchSize)
	if changed > 0 && s.swept != nil {
		s.swept.Add(float64(changed))
	}
	if err != nil {
		s.logger.Error("Stale payment sweep failed", zap.Int("changed", changed), zap.Error(err))
	}
	return changed
}
