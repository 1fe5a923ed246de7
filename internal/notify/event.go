package notify

import "github.com/polkiloo/resalebot/internal/domain/model"

// EventType discriminates queue events.
type EventType string

const (
	EventNewOrder      EventType = "new_order"
	EventStatusChanged EventType = "status_changed"
)

// Event is one unit of work for the dispatcher. Status carries the order
// status at the time the event was produced; the dispatcher re-reads the order
// before rendering, so it is informational only.
type Event struct {
	Type    EventType
	OrderID int64
	Status  model.OrderStatus
}
