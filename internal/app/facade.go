package app

import (
	"context"

	"github.com/polkiloo/resalebot/internal/domain/model"
	"github.com/polkiloo/resalebot/internal/domain/repository"
	"github.com/polkiloo/resalebot/internal/usecase"
)

// ResaleFacade is the single application surface consumed by the HTTP
// handlers, the bot action handler, the poller and the dispatcher.
type ResaleFacade struct {
	orders        *usecase.OrderUseCase
	sellers       *usecase.SellerUseCase
	notifications repository.NotificationRepository
}

// NewResaleFacade constructs the facade.
func NewResaleFacade(orders *usecase.OrderUseCase, sellers *usecase.SellerUseCase, notifications repository.NotificationRepository) *ResaleFacade {
	return &ResaleFacade{orders: orders, sellers: sellers, notifications: notifications}
}

// --- order submission and web-side lifecycle ---

func (f *ResaleFacade) SubmitOrder(ctx context.Context, account, payload string, pkg model.Package) (*model.Order, error) {
	return f.orders.Submit(ctx, account, payload, pkg)
}

func (f *ResaleFacade) Order(ctx context.Context, orderID int64) (*model.Order, error) {
	return f.orders.Get(ctx, orderID)
}

func (f *ResaleFacade) CancelOrder(ctx context.Context, orderID int64) error {
	return f.orders.Cancel(ctx, orderID)
}

func (f *ResaleFacade) ResubmitOrder(ctx context.Context, orderID int64, payload string) error {
	return f.orders.Resubmit(ctx, orderID, payload)
}

// --- claim path ---

func (f *ResaleFacade) ClaimOrder(ctx context.Context, orderID int64, sellerID string) error {
	return f.orders.Claim(ctx, orderID, sellerID)
}

func (f *ResaleFacade) ResolveOrder(ctx context.Context, orderID int64, sellerID string, outcome model.OrderStatus, remark string) error {
	return f.orders.Resolve(ctx, orderID, sellerID, outcome, remark)
}

func (f *ResaleFacade) RequestNewInput(ctx context.Context, orderID int64, sellerID string) error {
	return f.orders.RequestNewInput(ctx, orderID, sellerID)
}

func (f *ResaleFacade) ClaimLimit() int {
	return f.orders.ClaimLimit()
}

func (f *ResaleFacade) ActiveClaimCount(ctx context.Context, sellerID string) (int, error) {
	return f.orders.ActiveClaimCount(ctx, sellerID)
}

// --- notification discovery (poller contract) ---

func (f *ResaleFacade) ListUnnotifiedSubmitted(ctx context.Context) ([]model.Order, error) {
	return f.orders.UnnotifiedSubmitted(ctx)
}

func (f *ResaleFacade) MarkNotified(ctx context.Context, orderID int64) error {
	return f.orders.MarkNotified(ctx, orderID)
}

func (f *ResaleFacade) ClearNotified(ctx context.Context, orderID int64) error {
	return f.orders.ClearNotified(ctx, orderID)
}

// --- dispatcher contract ---

func (f *ResaleFacade) ActiveSellers(ctx context.Context) ([]model.Seller, error) {
	return f.sellers.ListActive(ctx)
}

func (f *ResaleFacade) Seller(ctx context.Context, sellerID string) (*model.Seller, error) {
	return f.sellers.Get(ctx, sellerID)
}

func (f *ResaleFacade) RecordNotification(ctx context.Context, orderID int64, sellerID string, messageID int64) error {
	return f.notifications.Record(ctx, orderID, sellerID, messageID)
}

func (f *ResaleFacade) OrderNotifications(ctx context.Context, orderID int64) ([]model.Notification, error) {
	return f.notifications.ListByOrder(ctx, orderID)
}

// --- roster ---

func (f *ResaleFacade) IsActiveSeller(ctx context.Context, sellerID string) (bool, error) {
	return f.sellers.IsActive(ctx, sellerID)
}

func (f *ResaleFacade) RecordSellerInteraction(ctx context.Context, sellerID, username, firstName string) {
	f.sellers.RecordInteraction(ctx, sellerID, username, firstName)
}

func (f *ResaleFacade) Sellers(ctx context.Context) ([]model.Seller, error) {
	return f.sellers.ListAll(ctx)
}

func (f *ResaleFacade) AddSeller(ctx context.Context, seller *model.Seller) error {
	return f.sellers.Add(ctx, seller)
}

func (f *ResaleFacade) SetSellerActive(ctx context.Context, sellerID string, active bool) error {
	return f.sellers.SetActive(ctx, sellerID, active)
}

func (f *ResaleFacade) SyncEnvSellers(ctx context.Context, ids []string) error {
	return f.sellers.SyncEnvSellers(ctx, ids)
}
