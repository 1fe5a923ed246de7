package repository

import (
	"context"

	"github.com/polkiloo/resalebot/internal/domain/model"
)

// SellerRepository describes persistence operations with the seller roster.
type SellerRepository interface {
	Upsert(ctx context.Context, seller *model.Seller) error
	Get(ctx context.Context, sellerID string) (*model.Seller, error)
	ListActive(ctx context.Context) ([]model.Seller, error)
	ListAll(ctx context.Context) ([]model.Seller, error)
	SetActive(ctx context.Context, sellerID string, active bool) error
	TouchLastActive(ctx context.Context, sellerID string) error
	UpdateIdentity(ctx context.Context, sellerID, username, firstName string) error
}
