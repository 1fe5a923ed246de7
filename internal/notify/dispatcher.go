package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/polkiloo/resalebot/internal/adapter/telegram"
	"github.com/polkiloo/resalebot/internal/domain/model"
)

// DispatchFacade exposes the subset of application functionality required by
// the dispatcher.
type DispatchFacade interface {
	Order(ctx context.Context, orderID int64) (*model.Order, error)
	ActiveSellers(ctx context.Context) ([]model.Seller, error)
	Seller(ctx context.Context, sellerID string) (*model.Seller, error)
	RecordNotification(ctx context.Context, orderID int64, sellerID string, messageID int64) error
	OrderNotifications(ctx context.Context, orderID int64) ([]model.Notification, error)
}

// Messenger is the outbound channel surface the dispatcher depends on.
type Messenger interface {
	SendMessage(ctx context.Context, chatID, text string, buttons [][]telegram.Button) (int64, error)
	SendPhoto(ctx context.Context, chatID, photo, caption string, buttons [][]telegram.Button) (int64, error)
	EditMessage(ctx context.Context, chatID string, messageID int64, text string, buttons [][]telegram.Button) error
}

// Dispatcher drains the queue and fans notifications out to every active
// seller. One recipient's failure never blocks the others, and a stop request
// lets the in-flight event finish before the goroutine exits.
type Dispatcher struct {
	facade    DispatchFacade
	messenger Messenger
	queue     *Queue
	sendDelay time.Duration
	logger    *slog.Logger

	wg     sync.WaitGroup
	cancel context.CancelFunc
	mu     sync.Mutex
}

// NewDispatcher constructs the notification dispatcher.
func NewDispatcher(facade DispatchFacade, messenger Messenger, queue *Queue, sendDelay time.Duration, logger *slog.Logger) *Dispatcher {
	if sendDelay <= 0 {
		sendDelay = 500 * time.Millisecond
	}
	return &Dispatcher{
		facade:    facade,
		messenger: messenger,
		queue:     queue,
		sendDelay: sendDelay,
		logger:    logger,
	}
}

// Start launches the background dispatch loop.
func (d *Dispatcher) Start(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel

	d.wg.Add(1)
	go d.loop(runCtx)
}

// Stop requests shutdown and waits for the in-flight event to be delivered.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
	d.mu.Unlock()

	d.wg.Wait()
}

func (d *Dispatcher) loop(ctx context.Context) {
	defer d.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event := <-d.queue.C():
			// Deliveries run on a detached context so cancellation stops the
			// loop from pulling new events without abandoning this one.
			d.handle(context.WithoutCancel(ctx), event)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, event Event) {
	switch event.Type {
	case EventNewOrder:
		d.handleNewOrder(ctx, event.OrderID)
	case EventStatusChanged:
		d.handleStatusChanged(ctx, event.OrderID)
	default:
		d.logger.Warn("unknown event type", slog.String("type", string(event.Type)))
	}
}

func (d *Dispatcher) handleNewOrder(ctx context.Context, orderID int64) {
	order, err := d.facade.Order(ctx, orderID)
	if err != nil {
		d.logger.Error("load order for announcement failed",
			slog.Int64("order", orderID), slog.String("error", err.Error()))
		return
	}
	if order.Status != model.OrderStatusSubmitted {
		// Claimed or cancelled while sitting in the queue; nothing to announce.
		return
	}

	sellers, err := d.facade.ActiveSellers(ctx)
	if err != nil {
		d.logger.Error("load active sellers failed",
			slog.Int64("order", orderID), slog.String("error", err.Error()))
		return
	}
	if len(sellers) == 0 {
		d.logger.Warn("no active sellers to announce order to", slog.Int64("order", orderID))
		return
	}

	text := RenderNewOrder(order)
	keyboard := AcceptKeyboard(order.ID)
	delivered := 0

	for i, seller := range sellers {
		if i > 0 {
			d.pause(ctx)
		}
		messageID, err := d.send(ctx, seller.ID, order, text, keyboard)
		if err != nil {
			d.logger.Error("announce delivery failed",
				slog.Int64("order", order.ID),
				slog.String("seller", seller.ID),
				slog.String("error", err.Error()))
			continue
		}
		delivered++
		if err := d.facade.RecordNotification(ctx, order.ID, seller.ID, messageID); err != nil {
			d.logger.Error("record notification failed",
				slog.Int64("order", order.ID),
				slog.String("seller", seller.ID),
				slog.String("error", err.Error()))
		}
	}

	d.logger.Info("order announced",
		slog.Int64("order", order.ID),
		slog.Int("delivered", delivered),
		slog.Int("sellers", len(sellers)))
}

func (d *Dispatcher) send(ctx context.Context, sellerID string, order *model.Order, text string, keyboard [][]telegram.Button) (int64, error) {
	messageID, err := d.trySend(ctx, sellerID, order, text, keyboard)
	var tooMany telegram.TooManyRequestsError
	if errors.As(err, &tooMany) {
		d.logger.Warn("bot api rate limited", slog.Duration("retry_after", tooMany.RetryAfter))
		select {
		case <-time.After(tooMany.RetryAfter):
		case <-ctx.Done():
			return 0, ctx.Err()
		}
		return d.trySend(ctx, sellerID, order, text, keyboard)
	}
	return messageID, err
}

func (d *Dispatcher) trySend(ctx context.Context, sellerID string, order *model.Order, text string, keyboard [][]telegram.Button) (int64, error) {
	if order.HasImagePayload() {
		messageID, err := d.messenger.SendPhoto(ctx, sellerID, order.Payload, text, keyboard)
		if err == nil {
			return messageID, nil
		}
		// Fall back to plain text when the image reference cannot be sent.
		d.logger.Warn("photo delivery failed, falling back to text",
			slog.Int64("order", order.ID),
			slog.String("seller", sellerID),
			slog.String("error", err.Error()))
	}
	return d.messenger.SendMessage(ctx, sellerID, text, keyboard)
}

func (d *Dispatcher) handleStatusChanged(ctx context.Context, orderID int64) {
	order, err := d.facade.Order(ctx, orderID)
	if err != nil {
		d.logger.Error("load order for status update failed",
			slog.Int64("order", orderID), slog.String("error", err.Error()))
		return
	}

	ownerName := ""
	if order.ClaimedBy != "" {
		if owner, err := d.facade.Seller(ctx, order.ClaimedBy); err == nil {
			ownerName = owner.DisplayName()
		} else {
			ownerName = "seller " + order.ClaimedBy
		}
	}

	notifications, err := d.facade.OrderNotifications(ctx, orderID)
	if err != nil {
		d.logger.Error("load notification records failed",
			slog.Int64("order", orderID), slog.String("error", err.Error()))
		return
	}

	text := RenderOrderState(order, ownerName)
	for i, n := range notifications {
		if i > 0 {
			d.pause(ctx)
		}
		var keyboard [][]telegram.Button
		if order.Status == model.OrderStatusAccepted && n.SellerID == order.ClaimedBy {
			// The owner keeps resolution buttons on their own copy.
			keyboard = ResolveKeyboard(order.ID)
		}
		if err := d.messenger.EditMessage(ctx, n.SellerID, n.MessageID, text, keyboard); err != nil {
			d.logger.Error("edit notification failed",
				slog.Int64("order", orderID),
				slog.String("seller", n.SellerID),
				slog.String("error", err.Error()))
		}
	}
}

func (d *Dispatcher) pause(ctx context.Context) {
	select {
	case <-time.After(d.sendDelay):
	case <-ctx.Done():
	}
}
