package usecase

import (
	"context"
	"errors"
	"log/slog"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
	"github.com/polkiloo/resalebot/internal/domain/repository"
)

// SellerUseCase manages the seller roster.
type SellerUseCase struct {
	sellers repository.SellerRepository
	logger  *slog.Logger
}

// NewSellerUseCase constructs SellerUseCase.
func NewSellerUseCase(sellers repository.SellerRepository, logger *slog.Logger) *SellerUseCase {
	return &SellerUseCase{sellers: sellers, logger: logger}
}

// SyncEnvSellers upserts the env-seeded seller ids as active roster entries.
// Existing rows keep their nickname and identity fields.
func (u *SellerUseCase) SyncEnvSellers(ctx context.Context, ids []string) error {
	for _, id := range ids {
		if id == "" {
			continue
		}
		err := u.sellers.Upsert(ctx, &model.Seller{ID: id, Active: true})
		if err != nil {
			return err
		}
		u.logger.Info("env seller synced", slog.String("seller", id))
	}
	return nil
}

// IsActive reports whether the seller exists and is eligible to act.
func (u *SellerUseCase) IsActive(ctx context.Context, sellerID string) (bool, error) {
	seller, err := u.sellers.Get(ctx, sellerID)
	if err != nil {
		if errors.Is(err, domainErrors.ErrNotFound) {
			return false, nil
		}
		return false, err
	}
	return seller.Active, nil
}

// Get loads one roster entry.
func (u *SellerUseCase) Get(ctx context.Context, sellerID string) (*model.Seller, error) {
	return u.sellers.Get(ctx, sellerID)
}

// ListActive returns the sellers currently eligible for notifications.
func (u *SellerUseCase) ListActive(ctx context.Context) ([]model.Seller, error) {
	return u.sellers.ListActive(ctx)
}

// ListAll returns the complete roster.
func (u *SellerUseCase) ListAll(ctx context.Context) ([]model.Seller, error) {
	return u.sellers.ListAll(ctx)
}

// Add registers a seller (or reactivates an existing one).
func (u *SellerUseCase) Add(ctx context.Context, seller *model.Seller) error {
	seller.Active = true
	return u.sellers.Upsert(ctx, seller)
}

// SetActive flips eligibility for the seller.
func (u *SellerUseCase) SetActive(ctx context.Context, sellerID string, active bool) error {
	return u.sellers.SetActive(ctx, sellerID, active)
}

// RecordInteraction captures the seller's latest identity for audit and
// touches the last-active timestamp. Failures are logged, not propagated:
// bookkeeping must never fail the action that triggered it.
func (u *SellerUseCase) RecordInteraction(ctx context.Context, sellerID, username, firstName string) {
	if username != "" || firstName != "" {
		if err := u.sellers.UpdateIdentity(ctx, sellerID, username, firstName); err != nil {
			u.logger.Warn("update seller identity failed",
				slog.String("seller", sellerID), slog.String("error", err.Error()))
		}
	}
	if err := u.sellers.TouchLastActive(ctx, sellerID); err != nil {
		u.logger.Warn("touch seller last active failed",
			slog.String("seller", sellerID), slog.String("error", err.Error()))
	}
}
