package handlers

import (
	"context"

	"github.com/polkiloo/resalebot/internal/domain/model"
)

// OrderFacade encapsulates order operations exposed via HTTP.
type OrderFacade interface {
	SubmitOrder(ctx context.Context, account, payload string, pkg model.Package) (*model.Order, error)
	Order(ctx context.Context, orderID int64) (*model.Order, error)
	CancelOrder(ctx context.Context, orderID int64) error
	ResubmitOrder(ctx context.Context, orderID int64, payload string) error
}

// RosterFacade provides roster administration operations.
type RosterFacade interface {
	Sellers(ctx context.Context) ([]model.Seller, error)
	AddSeller(ctx context.Context, seller *model.Seller) error
	SetSellerActive(ctx context.Context, sellerID string, active bool) error
	ActiveClaimCount(ctx context.Context, sellerID string) (int, error)
}

// ResaleFacade aggregates the full set of operations used across handlers.
type ResaleFacade interface {
	OrderFacade
	RosterFacade
}
