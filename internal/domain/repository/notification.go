package repository

import (
	"context"

	"github.com/polkiloo/resalebot/internal/domain/model"
)

// NotificationRepository records delivered notification messages per order so
// they can be edited in place when the order state changes.
type NotificationRepository interface {
	Record(ctx context.Context, orderID int64, sellerID string, messageID int64) error
	ListByOrder(ctx context.Context, orderID int64) ([]model.Notification, error)
}
