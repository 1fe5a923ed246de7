package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
)

// OrderSource exposes the subset of order persistence the poller needs.
type OrderSource interface {
	ListUnnotifiedSubmitted(ctx context.Context) ([]model.Order, error)
	MarkNotified(ctx context.Context, orderID int64) error
	ClearNotified(ctx context.Context, orderID int64) error
}

// Poller periodically discovers submitted orders that have not been announced
// yet and hands them to the queue exactly once per process lifetime. The
// notified column is persisted before the enqueue, so a restart never
// re-announces an order that already reached the queue.
type Poller struct {
	source   OrderSource
	dedup    *Deduplicator
	queue    *Queue
	interval time.Duration
	logger   *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewPoller constructs the notification poller.
func NewPoller(source OrderSource, dedup *Deduplicator, queue *Queue, interval time.Duration, logger *slog.Logger) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	return &Poller{
		source:   source,
		dedup:    dedup,
		queue:    queue,
		interval: interval,
		logger:   logger,
	}
}

// Start launches the background poll loop.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	p.wg.Add(1)
	go p.loop(runCtx)
}

// Stop terminates the poll loop and waits for the current tick to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *Poller) loop(ctx context.Context) {
	defer p.wg.Done()
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.tick(ctx)
		}
	}
}

func (p *Poller) tick(ctx context.Context) {
	orders, err := p.source.ListUnnotifiedSubmitted(ctx)
	if err != nil {
		p.logger.Error("list unnotified orders failed", slog.String("error", err.Error()))
		return
	}

	for _, order := range orders {
		select {
		case <-ctx.Done():
			return
		default:
		}
		p.announce(ctx, order)
	}
}

func (p *Poller) announce(ctx context.Context, order model.Order) {
	if !p.dedup.TryClaim(order.ID) {
		return
	}

	// Persist the notified flag before the enqueue. If the write fails the
	// in-memory claim is rolled back so the next tick retries.
	if err := p.source.MarkNotified(ctx, order.ID); err != nil {
		p.dedup.Release(order.ID)
		if domainErrors.IsRetryable(err) {
			p.logger.Warn("mark notified failed, will retry",
				slog.Int64("order", order.ID), slog.String("error", err.Error()))
		} else {
			p.logger.Error("mark notified rejected",
				slog.Int64("order", order.ID), slog.String("error", err.Error()))
		}
		return
	}

	err := p.queue.Enqueue(Event{Type: EventNewOrder, OrderID: order.ID, Status: order.Status})
	if err != nil {
		if errors.Is(err, domainErrors.ErrQueueFull) {
			// Undo both halves of the dedup so the next tick re-derives the
			// announcement instead of losing it.
			if clearErr := p.source.ClearNotified(ctx, order.ID); clearErr != nil {
				p.logger.Error("clear notified after full queue failed",
					slog.Int64("order", order.ID), slog.String("error", clearErr.Error()))
			}
			p.dedup.Release(order.ID)
			p.logger.Warn("notification queue full, announcement deferred to next poll",
				slog.Int64("order", order.ID))
		}
		return
	}
	p.logger.Info("order queued for announcement", slog.Int64("order", order.ID))
}

// ForgetOrder drops an order from the in-process dedup set. Called when a
// resubmitted order clears its notified flag and must be announced again.
func (p *Poller) ForgetOrder(orderID int64) {
	p.dedup.Release(orderID)
}
