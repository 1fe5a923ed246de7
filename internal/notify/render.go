package notify

import (
	"fmt"

	"github.com/polkiloo/resalebot/internal/adapter/telegram"
	"github.com/polkiloo/resalebot/internal/domain/model"
)

var planLabels = map[model.Package]string{
	"1":  "1 Month",
	"2":  "2 Months",
	"3":  "3 Months",
	"6":  "6 Months",
	"12": "12 Months",
}

// PlanLabel returns a human-readable plan name for the package selector.
func PlanLabel(p model.Package) string {
	if label, ok := planLabels[p]; ok {
		return label
	}
	return string(p)
}

// AcceptCallback builds the callback payload carried by the accept button.
func AcceptCallback(orderID int64) string {
	return fmt.Sprintf("accept_%d", orderID)
}

// RenderNewOrder builds the announcement text for a fresh order.
func RenderNewOrder(order *model.Order) string {
	return fmt.Sprintf(
		"🆕 New Order #%d\n\n• Package: %s\n• Created: %s\n\nTap the button below to claim it",
		order.ID, PlanLabel(order.Package), order.CreatedAt.Format("2006-01-02 15:04:05"))
}

// RenderOrderState builds the replacement text shown once an order left the
// submitted state, so every seller's copy reflects the real owner and outcome.
func RenderOrderState(order *model.Order, ownerName string) string {
	header := fmt.Sprintf("📦 Order #%d · %s", order.ID, PlanLabel(order.Package))
	switch order.Status {
	case model.OrderStatusAccepted:
		return fmt.Sprintf("%s\n\n👤 Claimed by %s", header, ownerName)
	case model.OrderStatusCompleted:
		return fmt.Sprintf("%s\n\n✅ Completed by %s", header, ownerName)
	case model.OrderStatusFailed:
		if order.Remark != "" {
			return fmt.Sprintf("%s\n\n❌ Failed (%s)", header, order.Remark)
		}
		return fmt.Sprintf("%s\n\n❌ Failed", header)
	case model.OrderStatusCancelled:
		return fmt.Sprintf("%s\n\n🚫 Cancelled", header)
	case model.OrderStatusNeedNewInput:
		return fmt.Sprintf("%s\n\n❓ Waiting for a new QR code from the customer", header)
	}
	return header
}

// AcceptKeyboard is the single-button markup attached to announcements.
func AcceptKeyboard(orderID int64) [][]telegram.Button {
	return [][]telegram.Button{{
		{Text: "📥 Accept", CallbackData: AcceptCallback(orderID)},
	}}
}

// ResolveKeyboard is offered to the claiming seller on their own copy.
func ResolveKeyboard(orderID int64) [][]telegram.Button {
	return [][]telegram.Button{{
		{Text: "✅ Done", CallbackData: fmt.Sprintf("done_%d", orderID)},
		{Text: "❌ Problem", CallbackData: fmt.Sprintf("fail_%d", orderID)},
	}}
}
