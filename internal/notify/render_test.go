package notify

import (
	"strings"
	"testing"

	"github.com/polkiloo/resalebot/internal/domain/model"
)

func TestPlanLabel(t *testing.T) {
	if got := PlanLabel("6"); got != "6 Months" {
		t.Fatalf("unexpected label: %q", got)
	}
	if got := PlanLabel("99"); got != "99" {
		t.Fatalf("unknown package should fall back to raw value, got %q", got)
	}
}

func TestAcceptKeyboardCallback(t *testing.T) {
	keyboard := AcceptKeyboard(42)
	if len(keyboard) != 1 || len(keyboard[0]) != 1 {
		t.Fatalf("unexpected keyboard shape: %v", keyboard)
	}
	if keyboard[0][0].CallbackData != "accept_42" {
		t.Fatalf("unexpected callback data: %q", keyboard[0][0].CallbackData)
	}
}

func TestRenderOrderStateIncludesRemark(t *testing.T) {
	order := &model.Order{ID: 7, Package: "3", Status: model.OrderStatusFailed, Remark: "Wrong password"}
	text := RenderOrderState(order, "Ann")
	if !strings.Contains(text, "Wrong password") {
		t.Fatalf("expected remark in rendered text, got %q", text)
	}
}

func TestRenderOrderStateShowsOwner(t *testing.T) {
	order := &model.Order{ID: 7, Package: "1", Status: model.OrderStatusAccepted}
	text := RenderOrderState(order, "Ann (@ann)")
	if !strings.Contains(text, "Ann (@ann)") {
		t.Fatalf("expected owner name in rendered text, got %q", text)
	}
}
