package test

import (
	"context"
	"sync"
	"time"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
)

// OrderRepositoryStub keeps orders in-memory and allows overrides per method.
type OrderRepositoryStub struct {
	mu     sync.Mutex
	Orders map[int64]*model.Order
	Next   int64

	CreateFn          func(context.Context, string, string, model.Package) (*model.Order, error)
	GetByIDFn         func(context.Context, int64) (*model.Order, error)
	ClaimFn           func(context.Context, int64, string, int) error
	ResolveFn         func(context.Context, int64, string, model.OrderStatus, string) error
	MarkNotifiedFn    func(context.Context, int64) error
	ListUnnotifiedFn  func(context.Context) ([]model.Order, error)
	MarkNotifiedCalls []int64
}

// NewOrderRepositoryStub constructs the stub with initialized storage.
func NewOrderRepositoryStub() *OrderRepositoryStub {
	return &OrderRepositoryStub{Orders: make(map[int64]*model.Order), Next: 1}
}

// Seed inserts an order directly, bypassing Create.
func (s *OrderRepositoryStub) Seed(order *model.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if order.ID == 0 {
		order.ID = s.Next
	}
	if order.ID >= s.Next {
		s.Next = order.ID + 1
	}
	s.Orders[order.ID] = order
}

// Create registers an order in the submitted state.
func (s *OrderRepositoryStub) Create(ctx context.Context, account, payload string, pkg model.Package) (*model.Order, error) {
	if s.CreateFn != nil {
		return s.CreateFn(ctx, account, payload, pkg)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order := &model.Order{
		ID:        s.Next,
		Account:   account,
		Payload:   payload,
		Package:   pkg,
		Status:    model.OrderStatusSubmitted,
		CreatedAt: time.Now(),
	}
	s.Next++
	s.Orders[order.ID] = order
	return order, nil
}

// GetByID returns a copy of the stored order.
func (s *OrderRepositoryStub) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	if s.GetByIDFn != nil {
		return s.GetByIDFn(ctx, orderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	order, ok := s.Orders[orderID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	copied := *order
	return &copied, nil
}

// Claim performs the atomic transition under the stub's lock, mirroring the
// semantics of the real storage layer.
func (s *OrderRepositoryStub) Claim(ctx context.Context, orderID int64, sellerID string, limit int) error {
	if s.ClaimFn != nil {
		return s.ClaimFn(ctx, orderID, sellerID, limit)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusSubmitted {
		if order.ClaimedBy != "" {
			return domainErrors.ErrAlreadyClaimed
		}
		return domainErrors.ErrNotClaimable
	}

	active := 0
	for _, o := range s.Orders {
		if o.Status == model.OrderStatusAccepted && o.ClaimedBy == sellerID {
			active++
		}
	}
	if active >= limit {
		return domainErrors.TooManyActiveError{Count: active, Limit: limit}
	}

	now := time.Now()
	order.Status = model.OrderStatusAccepted
	order.ClaimedBy = sellerID
	order.AcceptedAt = &now
	return nil
}

// Resolve finalizes an accepted order on behalf of its claiming seller.
func (s *OrderRepositoryStub) Resolve(ctx context.Context, orderID int64, sellerID string, outcome model.OrderStatus, remark string) error {
	if s.ResolveFn != nil {
		return s.ResolveFn(ctx, orderID, sellerID, outcome, remark)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusAccepted {
		return domainErrors.ErrNotClaimable
	}
	if order.ClaimedBy != sellerID {
		return domainErrors.ErrNotClaimOwner
	}

	now := time.Now()
	order.Status = outcome
	order.Remark = remark
	order.CompletedAt = &now
	return nil
}

// Cancel withdraws a pending or accepted order.
func (s *OrderRepositoryStub) Cancel(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusSubmitted && order.Status != model.OrderStatusAccepted {
		return domainErrors.ErrNotClaimable
	}
	order.Status = model.OrderStatusCancelled
	return nil
}

// RequestNewInput sends an accepted order back to the customer.
func (s *OrderRepositoryStub) RequestNewInput(ctx context.Context, orderID int64, sellerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusAccepted {
		return domainErrors.ErrNotClaimable
	}
	if order.ClaimedBy != sellerID {
		return domainErrors.ErrNotClaimOwner
	}
	order.Status = model.OrderStatusNeedNewInput
	return nil
}

// Resubmit attaches a replacement payload and reopens the order.
func (s *OrderRepositoryStub) Resubmit(ctx context.Context, orderID int64, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	if order.Status != model.OrderStatusNeedNewInput {
		return domainErrors.ErrNotClaimable
	}
	order.Payload = payload
	order.Status = model.OrderStatusSubmitted
	order.Notified = false
	return nil
}

// MarkNotified flips the durable notified flag.
func (s *OrderRepositoryStub) MarkNotified(ctx context.Context, orderID int64) error {
	if s.MarkNotifiedFn != nil {
		return s.MarkNotifiedFn(ctx, orderID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.Notified = true
	s.MarkNotifiedCalls = append(s.MarkNotifiedCalls, orderID)
	return nil
}

// ClearNotified reverses MarkNotified so the order re-enters the backlog.
func (s *OrderRepositoryStub) ClearNotified(ctx context.Context, orderID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	order, ok := s.Orders[orderID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	order.Notified = false
	return nil
}

// ListUnnotifiedSubmitted returns submitted orders that were never announced.
func (s *OrderRepositoryStub) ListUnnotifiedSubmitted(ctx context.Context) ([]model.Order, error) {
	if s.ListUnnotifiedFn != nil {
		return s.ListUnnotifiedFn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Order
	for _, o := range s.Orders {
		if o.Status == model.OrderStatusSubmitted && !o.Notified {
			out = append(out, *o)
		}
	}
	return out, nil
}

// CountActiveBySeller counts accepted orders held by the seller.
func (s *OrderRepositoryStub) CountActiveBySeller(ctx context.Context, sellerID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	count := 0
	for _, o := range s.Orders {
		if o.Status == model.OrderStatusAccepted && o.ClaimedBy == sellerID {
			count++
		}
	}
	return count, nil
}

// SellerRepositoryStub keeps the roster in-memory.
type SellerRepositoryStub struct {
	mu      sync.Mutex
	Sellers map[string]*model.Seller

	UpsertFn func(context.Context, *model.Seller) error
	GetFn    func(context.Context, string) (*model.Seller, error)
}

// NewSellerRepositoryStub constructs the stub with initialized storage.
func NewSellerRepositoryStub() *SellerRepositoryStub {
	return &SellerRepositoryStub{Sellers: make(map[string]*model.Seller)}
}

// Upsert stores or refreshes a roster entry.
func (s *SellerRepositoryStub) Upsert(ctx context.Context, seller *model.Seller) error {
	if s.UpsertFn != nil {
		return s.UpsertFn(ctx, seller)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.Sellers[seller.ID]; ok {
		existing.Active = seller.Active
		if seller.Username != "" {
			existing.Username = seller.Username
		}
		if seller.FirstName != "" {
			existing.FirstName = seller.FirstName
		}
		if seller.Nickname != "" {
			existing.Nickname = seller.Nickname
		}
		return nil
	}
	copied := *seller
	s.Sellers[seller.ID] = &copied
	return nil
}

// Get loads one roster entry.
func (s *SellerRepositoryStub) Get(ctx context.Context, sellerID string) (*model.Seller, error) {
	if s.GetFn != nil {
		return s.GetFn(ctx, sellerID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	seller, ok := s.Sellers[sellerID]
	if !ok {
		return nil, domainErrors.ErrNotFound
	}
	copied := *seller
	return &copied, nil
}

// ListActive returns active roster entries.
func (s *SellerRepositoryStub) ListActive(ctx context.Context) ([]model.Seller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Seller
	for _, seller := range s.Sellers {
		if seller.Active {
			out = append(out, *seller)
		}
	}
	return out, nil
}

// ListAll returns every roster entry.
func (s *SellerRepositoryStub) ListAll(ctx context.Context) ([]model.Seller, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Seller
	for _, seller := range s.Sellers {
		out = append(out, *seller)
	}
	return out, nil
}

// SetActive flips roster eligibility.
func (s *SellerRepositoryStub) SetActive(ctx context.Context, sellerID string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seller, ok := s.Sellers[sellerID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	seller.Active = active
	return nil
}

// TouchLastActive stamps the seller's last interaction.
func (s *SellerRepositoryStub) TouchLastActive(ctx context.Context, sellerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seller, ok := s.Sellers[sellerID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	now := time.Now()
	seller.LastActiveAt = &now
	return nil
}

// UpdateIdentity refreshes the seller's messenger identity fields.
func (s *SellerRepositoryStub) UpdateIdentity(ctx context.Context, sellerID, username, firstName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	seller, ok := s.Sellers[sellerID]
	if !ok {
		return domainErrors.ErrNotFound
	}
	seller.Username = username
	seller.FirstName = firstName
	return nil
}

// NotificationRepositoryStub records delivered message copies.
type NotificationRepositoryStub struct {
	mu    sync.Mutex
	Items []model.Notification

	RecordFn func(context.Context, int64, string, int64) error
}

// Record stores a delivery record.
func (s *NotificationRepositoryStub) Record(ctx context.Context, orderID int64, sellerID string, messageID int64) error {
	if s.RecordFn != nil {
		return s.RecordFn(ctx, orderID, sellerID, messageID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Items = append(s.Items, model.Notification{
		ID:         int64(len(s.Items) + 1),
		OrderID:    orderID,
		SellerID:   sellerID,
		MessageID:  messageID,
		NotifiedAt: time.Now(),
	})
	return nil
}

// ListByOrder returns recorded copies for the order.
func (s *NotificationRepositoryStub) ListByOrder(ctx context.Context, orderID int64) ([]model.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Notification
	for _, n := range s.Items {
		if n.OrderID == orderID {
			out = append(out, n)
		}
	}
	return out, nil
}
