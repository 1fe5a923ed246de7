package dto

import "time"

// SubmitOrderRequest is the payload for creating a top-up order.
type SubmitOrderRequest struct {
	Account string `json:"account" binding:"required"`
	Payload string `json:"payload"`
	Package string `json:"package" binding:"required"`
}

// ResubmitOrderRequest carries replacement input for an order that was sent
// back to the customer.
type ResubmitOrderRequest struct {
	Payload string `json:"payload" binding:"required"`
}

// OrderResponse is the external representation of an order.
type OrderResponse struct {
	ID          int64      `json:"id"`
	Account     string     `json:"account"`
	Package     string     `json:"package"`
	Status      string     `json:"status"`
	Remark      string     `json:"remark,omitempty"`
	ClaimedBy   string     `json:"claimed_by,omitempty"`
	Notified    bool       `json:"notified"`
	CreatedAt   time.Time  `json:"created_at"`
	AcceptedAt  *time.Time `json:"accepted_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}
