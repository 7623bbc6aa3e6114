package worker

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Dispatcher polls the event log for due events and feeds them to the pool
type Dispatcher struct {
	processor    EventProcessor
	pool         *Pool
	logger       *zap.Logger
	pollInterval time.Duration
	batchSize    int
}

func NewDispatcher(processor EventProcessor, pool *Pool, pollInterval time.Duration, batchSize int, logger *zap.Logger) *Dispatcher {
	if pollInterval <= 0 {
		pollInterval = 30 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Dispatcher{
		processor:    processor,
		pool:         pool,
		logger:       logger,
		pollInterval: pollInterval,
		batchSize:    batchSize,
	}
}

// Start runs the polling loop until ctx is cancelled
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Webhook dispatcher started", zap.Duration("interval", d.pollInterval))

	ticker := time.NewTicker(d.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("Webhook dispatcher stopping")
			return
		case <-ticker.C:
			d.Poll(ctx)
		}
	}
}

// Poll submits one batch of due events and returns how many were queued
func (d *Dispatcher) Poll(ctx context.Context) int {
	due, err := d.processor.Due(ctx, d.batchSize)
	if err != nil {
		d.logger.Error("Failed to list due webhook events", zap.Error(err))
		return 0
	}

	submitted := 0
	for _, ev := range due {
		if d.pool.Submit(ctx, ev.ID) {
			submitted++
		}
	}
	if submitted > 0 {
		d.logger.Info("Dispatched webhook events for retry", zap.Int("count", submitted))
	}
	return submitted
}
