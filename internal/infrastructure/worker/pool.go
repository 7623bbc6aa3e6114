package worker

import (
	"context"
	"sync"
	"time"

	"github.com/wekeepgrowing/jobportal-payment/internal/domain/model"
	"go.uber.org/zap"
)

// EventProcessor is the part of the reconciler the workers drive
type EventProcessor interface {
	Due(ctx context.Context, limit int) ([]*model.WebhookEvent, error)
	Process(ctx context.Context, id int64) (string, error)
}

// Pool runs a fixed number of goroutines that re-apply stored webhook events
type Pool struct {
	numWorkers int
	jobs       chan int64
	processor  EventProcessor
	logger     *zap.Logger
	wg         sync.WaitGroup

	mu     sync.Mutex
	queued map[int64]struct{}
}

// NewPool creates a worker pool with the given number of workers
func NewPool(numWorkers int, processor EventProcessor, logger *zap.Logger) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	return &Pool{
		numWorkers: numWorkers,
		jobs:       make(chan int64, numWorkers*2),
		processor:  processor,
		logger:     logger,
		queued:     make(map[int64]struct{}),
	}
}

// Start launches the workers. They run until Stop closes the channel or ctx ends.
func (p *Pool) Start(ctx context.Context) {
	for i := 0; i < p.numWorkers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}
	p.logger.Info("Webhook worker pool started", zap.Int("num_workers", p.numWorkers))
}

// Submit queues an event id. It reports false when the id is already queued
// or ctx ended before a worker had room.
func (p *Pool) Submit(ctx context.Context, id int64) bool {
	p.mu.Lock()
	if _, ok := p.queued[id]; ok {
		p.mu.Unlock()
		return false
	}
	p.queued[id] = struct{}{}
	p.mu.Unlock()

	select {
	case p.jobs <- id:
		return true
	case <-ctx.Done():
		p.release(id)
		return false
	}
}

// Stop closes the jobs channel and waits for in-flight events to finish
func (p *Pool) Stop() {
	close(p.jobs)
	p.wg.Wait()
	p.logger.Info("Webhook worker pool stopped")
}

func (p *Pool) worker(ctx context.Context, n int) {
	defer p.wg.Done()

	for id := range p.jobs {
		select {
		case <-ctx.Done():
			p.release(id)
			return
		default:
			p.run(ctx, n, id)
		}
	}
}

func (p *Pool) run(ctx context.Context, n int, id int64) {
	defer p.release(id)

	started := time.Now()
	outcome, err := p.processor.Process(ctx, id)
	if err != nil {
		p.logger.Error("Failed to process webhook event",
			zap.Int("worker", n),
			zap.Int64("event_row_id", id),
			zap.Error(err))
		return
	}
	p.logger.Debug("Webhook event retried",
		zap.Int("worker", n),
		zap.Int64("event_row_id", id),
		zap.String("outcome", outcome),
		zap.Duration("elapsed", time.Since(started)))
}

func (p *Pool) release(id int64) {
	p.mu.Lock()
	delete(p.queued, id)
	p.mu.Unlock()
}
