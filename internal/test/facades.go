package test

import (
	"context"
	"sync"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
)

// DispatchFacadeStub backs dispatcher tests with in-memory data.
type DispatchFacadeStub struct {
	Orders        *OrderRepositoryStub
	Sellers       *SellerRepositoryStub
	Notifications *NotificationRepositoryStub
}

// NewDispatchFacadeStub constructs the stub with fresh repositories.
func NewDispatchFacadeStub() *DispatchFacadeStub {
	return &DispatchFacadeStub{
		Orders:        NewOrderRepositoryStub(),
		Sellers:       NewSellerRepositoryStub(),
		Notifications: &NotificationRepositoryStub{},
	}
}

func (s *DispatchFacadeStub) Order(ctx context.Context, orderID int64) (*model.Order, error) {
	return s.Orders.GetByID(ctx, orderID)
}

func (s *DispatchFacadeStub) ActiveSellers(ctx context.Context) ([]model.Seller, error) {
	return s.Sellers.ListActive(ctx)
}

func (s *DispatchFacadeStub) Seller(ctx context.Context, sellerID string) (*model.Seller, error) {
	return s.Sellers.Get(ctx, sellerID)
}

func (s *DispatchFacadeStub) RecordNotification(ctx context.Context, orderID int64, sellerID string, messageID int64) error {
	return s.Notifications.Record(ctx, orderID, sellerID, messageID)
}

func (s *DispatchFacadeStub) OrderNotifications(ctx context.Context, orderID int64) ([]model.Notification, error) {
	return s.Notifications.ListByOrder(ctx, orderID)
}

// BotFacadeStub provides controllable behaviour for action handler tests.
type BotFacadeStub struct {
	mu           sync.Mutex
	Active       map[string]bool
	ActiveErr    error
	ClaimErr     error
	ResolveErr   error
	Limit        int
	Claims       []ClaimCall
	Resolutions  []ResolveCall
	Interactions []string
}

// ClaimCall records one claim attempt.
type ClaimCall struct {
	OrderID  int64
	SellerID string
}

// ResolveCall records one resolution attempt.
type ResolveCall struct {
	OrderID  int64
	SellerID string
	Outcome  model.OrderStatus
	Remark   string
}

// NewBotFacadeStub constructs the stub with the given active sellers.
func NewBotFacadeStub(activeIDs ...string) *BotFacadeStub {
	active := make(map[string]bool, len(activeIDs))
	for _, id := range activeIDs {
		active[id] = true
	}
	return &BotFacadeStub{Active: active, Limit: 2}
}

func (s *BotFacadeStub) IsActiveSeller(ctx context.Context, sellerID string) (bool, error) {
	if s.ActiveErr != nil {
		return false, s.ActiveErr
	}
	return s.Active[sellerID], nil
}

func (s *BotFacadeStub) RecordSellerInteraction(ctx context.Context, sellerID, username, firstName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Interactions = append(s.Interactions, sellerID)
}

func (s *BotFacadeStub) ClaimOrder(ctx context.Context, orderID int64, sellerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Claims = append(s.Claims, ClaimCall{OrderID: orderID, SellerID: sellerID})
	return s.ClaimErr
}

func (s *BotFacadeStub) ResolveOrder(ctx context.Context, orderID int64, sellerID string, outcome model.OrderStatus, remark string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Resolutions = append(s.Resolutions, ResolveCall{OrderID: orderID, SellerID: sellerID, Outcome: outcome, Remark: remark})
	return s.ResolveErr
}

func (s *BotFacadeStub) ClaimLimit() int {
	return s.Limit
}

// ResaleFacadeStub provides controllable behaviour for HTTP handler tests.
type ResaleFacadeStub struct {
	SubmitFn    func(context.Context, string, string, model.Package) (*model.Order, error)
	OrderFn     func(context.Context, int64) (*model.Order, error)
	CancelFn    func(context.Context, int64) error
	ResubmitFn  func(context.Context, int64, string) error
	SellersFn   func(context.Context) ([]model.Seller, error)
	AddFn       func(context.Context, *model.Seller) error
	SetActiveFn func(context.Context, string, bool) error
}

func (s *ResaleFacadeStub) SubmitOrder(ctx context.Context, account, payload string, pkg model.Package) (*model.Order, error) {
	if s.SubmitFn != nil {
		return s.SubmitFn(ctx, account, payload, pkg)
	}
	if !pkg.Valid() {
		return nil, domainErrors.ErrInvalidPackage
	}
	return &model.Order{ID: 1, Account: account, Payload: payload, Package: pkg, Status: model.OrderStatusSubmitted}, nil
}

func (s *ResaleFacadeStub) Order(ctx context.Context, orderID int64) (*model.Order, error) {
	if s.OrderFn != nil {
		return s.OrderFn(ctx, orderID)
	}
	return nil, domainErrors.ErrNotFound
}

func (s *ResaleFacadeStub) CancelOrder(ctx context.Context, orderID int64) error {
	if s.CancelFn != nil {
		return s.CancelFn(ctx, orderID)
	}
	return nil
}

func (s *ResaleFacadeStub) ResubmitOrder(ctx context.Context, orderID int64, payload string) error {
	if s.ResubmitFn != nil {
		return s.ResubmitFn(ctx, orderID, payload)
	}
	return nil
}

func (s *ResaleFacadeStub) Sellers(ctx context.Context) ([]model.Seller, error) {
	if s.SellersFn != nil {
		return s.SellersFn(ctx)
	}
	return nil, nil
}

func (s *ResaleFacadeStub) AddSeller(ctx context.Context, seller *model.Seller) error {
	if s.AddFn != nil {
		return s.AddFn(ctx, seller)
	}
	return nil
}

func (s *ResaleFacadeStub) SetSellerActive(ctx context.Context, sellerID string, active bool) error {
	if s.SetActiveFn != nil {
		return s.SetActiveFn(ctx, sellerID, active)
	}
	return nil
}

func (s *ResaleFacadeStub) ActiveClaimCount(ctx context.Context, sellerID string) (int, error) {
	return 0, nil
}
