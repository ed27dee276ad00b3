package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/worklist-service/internal/notification"
	"github.com/spec-kit/worklist-service/internal/observability"
	"github.com/spec-kit/worklist-service/internal/queue"
)

// PoolConfig tunes delivery.
type PoolConfig struct {
	Workers     int
	MaxAttempts int
	// Backoff is multiplied by the attempt number between retries.
	Backoff time.Duration
	// Timeout bounds a single attempt.
	Timeout time.Duration
}

// NotificationPool drains the queue and hands jobs to the notifier. A job is
// retried up to MaxAttempts times and then dropped with an error log.
type NotificationPool struct {
	queue    queue.Queue
	notifier notification.Notifier
	cfg      PoolConfig
	logger   *zap.Logger
	metrics  *observability.Metrics

	mu     sync.Mutex
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewNotificationPool builds a pool; call Start to launch workers.
func NewNotificationPool(q queue.Queue, notifier notification.Notifier, cfg PoolConfig, logger *zap.Logger, metrics *observability.Metrics) *NotificationPool {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &NotificationPool{queue: q, notifier: notifier, cfg: cfg, logger: logger, metrics: metrics}
}

// Start launches the workers. They run until ctx is cancelled or Stop is called.
func (p *NotificationPool) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	for i := 0; i < p.cfg.Workers; i++ {
		p.wg.Add(1)
		go p.run(ctx, i)
	}
	p.logger.Info("notification workers started", zap.Int("workers", p.cfg.Workers))
}

// Stop cancels the workers and waits for them to exit. A job in flight is
// abandoned at its next context check.
func (p *NotificationPool) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
	p.wg.Wait()
}

func (p *NotificationPool) run(ctx context.Context, id int) {
	defer p.wg.Done()
	for {
		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, queue.ErrClosed) {
				return
			}
			p.logger.Warn("dequeue failed", zap.Int("worker", id), zap.Error(err))
			if !sleep(ctx, time.Second) {
				return
			}
			continue
		}
		p.deliver(ctx, job)
	}
}

func (p *NotificationPool) deliver(ctx context.Context, job queue.Job) {
	fields := []zap.Field{
		zap.String("job_id", job.ID),
		zap.Int64("work_item_id", job.WorkItemID),
		zap.String("item_number", job.ItemNumber),
		zap.String("recipient", job.Recipient),
	}

	for attempt := 1; attempt <= p.cfg.MaxAttempts; attempt++ {
		err := p.attempt(ctx, job)
		if err == nil {
			p.metrics.RecordNotification(observability.NotificationSent)
			p.logger.Info("notification sent", append(fields, zap.Int("attempt", attempt))...)
			return
		}
		if ctx.Err() != nil {
			p.metrics.RecordNotification(observability.NotificationDropped)
			p.logger.Warn("notification abandoned on shutdown", append(fields, zap.Error(err))...)
			return
		}
		if attempt == p.cfg.MaxAttempts {
			p.metrics.RecordNotification(observability.NotificationDropped)
			p.logger.Error("notification dropped", append(fields, zap.Int("attempts", attempt), zap.Error(err))...)
			return
		}
		p.metrics.RecordNotification(observability.NotificationRetried)
		p.logger.Warn("notification failed; retrying", append(fields, zap.Int("attempt", attempt), zap.Error(err))...)
		if !sleep(ctx, time.Duration(attempt)*p.cfg.Backoff) {
			p.metrics.RecordNotification(observability.NotificationDropped)
			return
		}
	}
}

func (p *NotificationPool) attempt(ctx context.Context, job queue.Job) error {
	if p.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.Timeout)
		defer cancel()
	}
	return p.notifier.Notify(ctx, job.Destination, job.Message)
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
