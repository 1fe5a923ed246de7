package bot

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
	testhelpers "github.com/polkiloo/resalebot/internal/test"
)

func newTestHandler(facade Facade) (*Handler, *Router, *testhelpers.MessengerStub) {
	logger := slog.New(slog.NewJSONHandler(io.Discard, nil))
	responder := testhelpers.NewMessengerStub()
	router := NewRouter(logger)
	h := NewHandler(facade, responder, router, logger)
	return h, router, responder
}

func claimAction(orderID int64, actor string) Action {
	return Action{Kind: ActionClaim, OrderID: orderID, ActorID: actor, CallbackID: "cb1", MessageID: 55}
}

func TestHandleClaimSuccess(t *testing.T) {
	facade := testhelpers.NewBotFacadeStub("100")
	h, _, responder := newTestHandler(facade)

	if err := h.HandleClaim(context.Background(), claimAction(1, "100")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facade.Claims) != 1 || facade.Claims[0].SellerID != "100" {
		t.Fatalf("expected one claim by seller 100, got %v", facade.Claims)
	}
	if len(responder.Answered) != 1 || !strings.Contains(responder.Answered[0].Text, "yours") {
		t.Fatalf("expected success acknowledgement, got %v", responder.Answered)
	}
	if len(facade.Interactions) != 1 {
		t.Fatal("expected seller interaction to be recorded")
	}
}

func TestHandleClaimRejectsUnknownSeller(t *testing.T) {
	facade := testhelpers.NewBotFacadeStub("100")
	h, _, responder := newTestHandler(facade)

	if err := h.HandleClaim(context.Background(), claimAction(1, "999")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facade.Claims) != 0 {
		t.Fatal("unauthorized actor must not reach the claim path")
	}
	if len(responder.Answered) != 1 || !responder.Answered[0].Alert {
		t.Fatalf("expected a private denial alert, got %v", responder.Answered)
	}
}

func TestHandleClaimAlreadyTaken(t *testing.T) {
	facade := testhelpers.NewBotFacadeStub("100")
	facade.ClaimErr = domainErrors.ErrAlreadyClaimed
	h, _, responder := newTestHandler(facade)

	if err := h.HandleClaim(context.Background(), claimAction(1, "100")); err != nil {
		t.Fatalf("losing a race is not an error: %v", err)
	}
	if len(responder.Answered) != 1 || !strings.Contains(responder.Answered[0].Text, "Too late") {
		t.Fatalf("expected too-late acknowledgement, got %v", responder.Answered)
	}
}

func TestHandleClaimCapExceeded(t *testing.T) {
	facade := testhelpers.NewBotFacadeStub("100")
	facade.ClaimErr = domainErrors.TooManyActiveError{Count: 2, Limit: 2}
	h, _, responder := newTestHandler(facade)

	if err := h.HandleClaim(context.Background(), claimAction(1, "100")); err != nil {
		t.Fatalf("hitting the cap is not an error: %v", err)
	}
	if len(responder.Answered) != 1 || !strings.Contains(responder.Answered[0].Text, "2 of 2") {
		t.Fatalf("expected cap message with counts, got %v", responder.Answered)
	}
}

func TestHandleDoneResolvesCompleted(t *testing.T) {
	facade := testhelpers.NewBotFacadeStub("100")
	h, _, _ := newTestHandler(facade)

	action := Action{Kind: ActionDone, OrderID: 4, ActorID: "100", CallbackID: "cb"}
	if err := h.HandleDone(context.Background(), action); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facade.Resolutions) != 1 || facade.Resolutions[0].Outcome != model.OrderStatusCompleted {
		t.Fatalf("expected completed resolution, got %v", facade.Resolutions)
	}
}

func TestHandleFailShowsReasonMenu(t *testing.T) {
	facade := testhelpers.NewBotFacadeStub("100")
	h, _, responder := newTestHandler(facade)

	action := Action{Kind: ActionFail, OrderID: 4, ActorID: "100", CallbackID: "cb", MessageID: 12}
	if err := h.HandleFail(context.Background(), action); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facade.Resolutions) != 0 {
		t.Fatal("fail button alone must not resolve the order")
	}
	edited := responder.EditedMessages()
	if len(edited) != 1 || len(edited[0].Buttons) != 3 {
		t.Fatalf("expected three failure reasons, got %v", edited)
	}
}

func TestHandleFeedbackResolvesFailed(t *testing.T) {
	facade := testhelpers.NewBotFacadeStub("100")
	h, _, _ := newTestHandler(facade)

	action := Action{Kind: ActionFeedback, OrderID: 4, ActorID: "100", Reason: "wrong_password", CallbackID: "cb"}
	if err := h.HandleFeedback(context.Background(), action); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facade.Resolutions) != 1 {
		t.Fatalf("expected one resolution, got %d", len(facade.Resolutions))
	}
	got := facade.Resolutions[0]
	if got.Outcome != model.OrderStatusFailed || got.Remark != "Wrong password" {
		t.Fatalf("unexpected resolution %v", got)
	}
}

func TestResolveByNonOwnerAnswered(t *testing.T) {
	facade := testhelpers.NewBotFacadeStub("100")
	facade.ResolveErr = domainErrors.ErrNotClaimOwner
	h, _, responder := newTestHandler(facade)

	action := Action{Kind: ActionDone, OrderID: 4, ActorID: "100", CallbackID: "cb"}
	if err := h.HandleDone(context.Background(), action); err != nil {
		t.Fatalf("non-owner resolve is answered, not errored: %v", err)
	}
	if len(responder.Answered) != 1 || !strings.Contains(responder.Answered[0].Text, "claiming seller") {
		t.Fatalf("expected ownership denial, got %v", responder.Answered)
	}
}

func TestRouterDispatchesRegisteredActions(t *testing.T) {
	facade := testhelpers.NewBotFacadeStub("100")
	_, router, _ := newTestHandler(facade)

	if err := router.Dispatch(context.Background(), claimAction(1, "100")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(facade.Claims) != 1 {
		t.Fatal("expected dispatch to reach the claim handler")
	}

	if err := router.Dispatch(context.Background(), Action{Kind: "mystery"}); err == nil {
		t.Fatal("expected error for unregistered action kind")
	}
}
