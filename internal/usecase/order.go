package usecase

import (
	"context"
	"log/slog"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
	"github.com/polkiloo/resalebot/internal/domain/repository"
	"github.com/polkiloo/resalebot/internal/notify"
)

// OrderUseCase encapsulates the order lifecycle: submission, the atomic claim,
// resolution, cancellation and the QR resubmission loop. Status changes are
// published to the notification queue so every delivered message copy gets
// edited to the final state.
type OrderUseCase struct {
	orders     repository.OrderRepository
	queue      *notify.Queue
	dedup      *notify.Deduplicator
	claimLimit int
	logger     *slog.Logger
}

// NewOrderUseCase constructs OrderUseCase.
func NewOrderUseCase(orders repository.OrderRepository, queue *notify.Queue, dedup *notify.Deduplicator, claimLimit int, logger *slog.Logger) *OrderUseCase {
	if claimLimit <= 0 {
		claimLimit = 2
	}
	return &OrderUseCase{
		orders:     orders,
		queue:      queue,
		dedup:      dedup,
		claimLimit: claimLimit,
		logger:     logger,
	}
}

// ClaimLimit returns the configured per-seller concurrent claim cap.
func (u *OrderUseCase) ClaimLimit() int {
	return u.claimLimit
}

// Submit registers a new order for fulfillment.
func (u *OrderUseCase) Submit(ctx context.Context, account, payload string, pkg model.Package) (*model.Order, error) {
	if !pkg.Valid() {
		return nil, domainErrors.ErrInvalidPackage
	}
	return u.orders.Create(ctx, account, payload, pkg)
}

// Get loads one order.
func (u *OrderUseCase) Get(ctx context.Context, orderID int64) (*model.Order, error) {
	return u.orders.GetByID(ctx, orderID)
}

// Claim performs the atomic claim on behalf of the seller. The winner is
// decided entirely by the storage layer; this method only publishes the
// resulting state change.
func (u *OrderUseCase) Claim(ctx context.Context, orderID int64, sellerID string) error {
	if err := u.orders.Claim(ctx, orderID, sellerID, u.claimLimit); err != nil {
		return err
	}
	u.publishStatusChange(orderID, model.OrderStatusAccepted)
	return nil
}

// Resolve transitions an accepted order to its terminal outcome. Only the
// claiming seller may resolve.
func (u *OrderUseCase) Resolve(ctx context.Context, orderID int64, sellerID string, outcome model.OrderStatus, remark string) error {
	if err := u.orders.Resolve(ctx, orderID, sellerID, outcome, remark); err != nil {
		return err
	}
	u.publishStatusChange(orderID, outcome)
	return nil
}

// Cancel withdraws the order from fulfillment.
func (u *OrderUseCase) Cancel(ctx context.Context, orderID int64) error {
	if err := u.orders.Cancel(ctx, orderID); err != nil {
		return err
	}
	u.publishStatusChange(orderID, model.OrderStatusCancelled)
	return nil
}

// RequestNewInput asks the customer for a replacement QR code.
func (u *OrderUseCase) RequestNewInput(ctx context.Context, orderID int64, sellerID string) error {
	if err := u.orders.RequestNewInput(ctx, orderID, sellerID); err != nil {
		return err
	}
	u.publishStatusChange(orderID, model.OrderStatusNeedNewInput)
	return nil
}

// Resubmit attaches the replacement payload and returns the order to the
// submitted state. The dedup entry is dropped alongside the cleared notified
// flag so the next poll cycle announces the order again.
func (u *OrderUseCase) Resubmit(ctx context.Context, orderID int64, payload string) error {
	if err := u.orders.Resubmit(ctx, orderID, payload); err != nil {
		return err
	}
	u.dedup.Release(orderID)
	return nil
}

// UnnotifiedSubmitted lists orders awaiting announcement, oldest first.
func (u *OrderUseCase) UnnotifiedSubmitted(ctx context.Context) ([]model.Order, error) {
	return u.orders.ListUnnotifiedSubmitted(ctx)
}

// MarkNotified persists the durable half of notification deduplication.
func (u *OrderUseCase) MarkNotified(ctx context.Context, orderID int64) error {
	return u.orders.MarkNotified(ctx, orderID)
}

// ClearNotified drops the durable notified flag so the next poll cycle picks
// the order up again.
func (u *OrderUseCase) ClearNotified(ctx context.Context, orderID int64) error {
	return u.orders.ClearNotified(ctx, orderID)
}

// ActiveClaimCount reports how many accepted orders the seller holds.
func (u *OrderUseCase) ActiveClaimCount(ctx context.Context, sellerID string) (int, error) {
	return u.orders.CountActiveBySeller(ctx, sellerID)
}

func (u *OrderUseCase) publishStatusChange(orderID int64, status model.OrderStatus) {
	err := u.queue.Enqueue(notify.Event{Type: notify.EventStatusChanged, OrderID: orderID, Status: status})
	if err != nil {
		u.logger.Error("status change dropped, queue full",
			slog.Int64("order", orderID), slog.String("status", string(status)))
	}
}
