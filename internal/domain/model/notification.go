package model

import "time"

// Notification records one message delivered to one seller for an order.
// The message reference is what allows later in-place edits.
type Notification struct {
	ID         int64
	OrderID    int64
	SellerID   string
	MessageID  int64
	NotifiedAt time.Time
}
