package repository

import (
	"context"

	"github.com/polkiloo/resalebot/internal/domain/model"
)

// OrderRepository describes persistence operations with orders.
//
// Claim must be atomic with respect to any concurrent Claim on the same or a
// different order: the status check, the per-seller active-order count, and the
// transition to accepted happen as one indivisible unit.
type OrderRepository interface {
	Create(ctx context.Context, account, payload string, pkg model.Package) (*model.Order, error)
	GetByID(ctx context.Context, orderID int64) (*model.Order, error)
	Claim(ctx context.Context, orderID int64, sellerID string, limit int) error
	Resolve(ctx context.Context, orderID int64, sellerID string, outcome model.OrderStatus, remark string) error
	Cancel(ctx context.Context, orderID int64) error
	RequestNewInput(ctx context.Context, orderID int64, sellerID string) error
	Resubmit(ctx context.Context, orderID int64, payload string) error
	MarkNotified(ctx context.Context, orderID int64) error
	ClearNotified(ctx context.Context, orderID int64) error
	ListUnnotifiedSubmitted(ctx context.Context) ([]model.Order, error)
	CountActiveBySeller(ctx context.Context, sellerID string) (int, error)
}
