package model

import "time"

// OrderStatus describes the fulfillment lifecycle.
type OrderStatus string

const (
	OrderStatusSubmitted    OrderStatus = "submitted"
	OrderStatusAccepted     OrderStatus = "accepted"
	OrderStatusCompleted    OrderStatus = "completed"
	OrderStatusFailed       OrderStatus = "failed"
	OrderStatusCancelled    OrderStatus = "cancelled"
	OrderStatusNeedNewInput OrderStatus = "need_new_input"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s OrderStatus) Terminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusFailed, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo validates a single edge of the status graph.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusSubmitted:
		return next == OrderStatusAccepted || next == OrderStatusCancelled
	case OrderStatusAccepted:
		return next == OrderStatusCompleted || next == OrderStatusFailed ||
			next == OrderStatusCancelled || next == OrderStatusNeedNewInput
	case OrderStatusNeedNewInput:
		return next == OrderStatusSubmitted
	}
	return false
}

// Package is a plan selector from the closed set of offered plans.
type Package string

// Valid reports whether the plan selector is one of the offered plans.
func (p Package) Valid() bool {
	switch p {
	case "1", "2", "3", "6", "12":
		return true
	}
	return false
}

// Order describes a top-up order submitted by a customer.
// ClaimedBy is set exactly once by a successful claim and never cleared,
// even when the order later fails, so audit history survives.
type Order struct {
	ID          int64
	Account     string
	Payload     string
	Package     Package
	Status      OrderStatus
	Remark      string
	ClaimedBy   string
	Notified    bool
	CreatedAt   time.Time
	AcceptedAt  *time.Time
	CompletedAt *time.Time
}

// HasImagePayload reports whether the payload references an uploaded QR image.
func (o *Order) HasImagePayload() bool {
	return o.Payload != ""
}
