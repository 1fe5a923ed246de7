package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/polkiloo/resalebot/internal/adapter/telegram"
	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
)

// Facade exposes the subset of application functionality the claim handler
// needs.
type Facade interface {
	IsActiveSeller(ctx context.Context, sellerID string) (bool, error)
	RecordSellerInteraction(ctx context.Context, sellerID, username, firstName string)
	ClaimOrder(ctx context.Context, orderID int64, sellerID string) error
	ResolveOrder(ctx context.Context, orderID int64, sellerID string, outcome model.OrderStatus, remark string) error
	ClaimLimit() int
}

// Responder is the feedback surface towards the acting seller.
type Responder interface {
	AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error
	EditMessage(ctx context.Context, chatID string, messageID int64, text string, buttons [][]telegram.Button) error
}

// Handler is the command entry point for inbound seller actions. All order
// state decisions are delegated to the storage layer's atomic operations; the
// handler only authorizes, translates outcomes and acknowledges.
type Handler struct {
	facade    Facade
	responder Responder
	logger    *slog.Logger
}

// NewHandler constructs the action handler and registers it on the router.
func NewHandler(facade Facade, responder Responder, router *Router, logger *slog.Logger) *Handler {
	h := &Handler{facade: facade, responder: responder, logger: logger}
	router.Handle(ActionClaim, h.HandleClaim)
	router.Handle(ActionDone, h.HandleDone)
	router.Handle(ActionFail, h.HandleFail)
	router.Handle(ActionFeedback, h.HandleFeedback)
	return h
}

// authorize checks the actor against the roster. Denials are answered only to
// the actor, never broadcast.
func (h *Handler) authorize(ctx context.Context, action Action) (bool, error) {
	active, err := h.facade.IsActiveSeller(ctx, action.ActorID)
	if err != nil {
		return false, err
	}
	if !active {
		h.logger.Warn("unauthorized action rejected",
			slog.String("actor", action.ActorID),
			slog.String("kind", string(action.Kind)),
			slog.Int64("order", action.OrderID))
		h.answer(ctx, action, "You are not an authorized seller", true)
		return false, nil
	}
	h.facade.RecordSellerInteraction(ctx, action.ActorID, action.Username, action.FirstName)
	return true, nil
}

// HandleClaim processes an accept button press.
func (h *Handler) HandleClaim(ctx context.Context, action Action) error {
	ok, err := h.authorize(ctx, action)
	if err != nil || !ok {
		return err
	}

	err = h.facade.ClaimOrder(ctx, action.OrderID, action.ActorID)
	switch {
	case err == nil:
		h.logger.Info("order claimed",
			slog.Int64("order", action.OrderID), slog.String("seller", action.ActorID))
		h.answer(ctx, action, fmt.Sprintf("Order #%d is yours", action.OrderID), true)
		return nil
	case errors.Is(err, domainErrors.ErrAlreadyClaimed):
		h.answer(ctx, action, "Too late, this order was already taken", true)
		return nil
	case errors.Is(err, domainErrors.ErrNotFound):
		h.answer(ctx, action, "Order no longer exists", true)
		return nil
	case errors.Is(err, domainErrors.ErrUnauthorized):
		h.answer(ctx, action, "You are not an authorized seller", true)
		return nil
	default:
		var tooMany domainErrors.TooManyActiveError
		if errors.As(err, &tooMany) {
			h.answer(ctx, action,
				fmt.Sprintf("You already hold %d of %d allowed orders", tooMany.Count, tooMany.Limit), true)
			return nil
		}
		h.answer(ctx, action, "Claim failed, please retry", true)
		return err
	}
}

// HandleDone marks the order completed by its claiming seller.
func (h *Handler) HandleDone(ctx context.Context, action Action) error {
	ok, err := h.authorize(ctx, action)
	if err != nil || !ok {
		return err
	}
	return h.resolve(ctx, action, model.OrderStatusCompleted, "")
}

// HandleFail swaps the resolution buttons for the failure-reason menu; the
// actual transition happens when a reason is picked.
func (h *Handler) HandleFail(ctx context.Context, action Action) error {
	ok, err := h.authorize(ctx, action)
	if err != nil || !ok {
		return err
	}

	keyboard := [][]telegram.Button{
		{{Text: "Wrong password", CallbackData: fmt.Sprintf("feedback_%d_wrong_password", action.OrderID)}},
		{{Text: "Membership not expired", CallbackData: fmt.Sprintf("feedback_%d_not_expired", action.OrderID)}},
		{{Text: "Other reason", CallbackData: fmt.Sprintf("feedback_%d_other", action.OrderID)}},
	}
	text := fmt.Sprintf("📦 Order #%d\n\nPick the failure reason:", action.OrderID)
	if err := h.responder.EditMessage(ctx, action.ActorID, action.MessageID, text, keyboard); err != nil {
		h.logger.Error("show failure reasons failed",
			slog.Int64("order", action.OrderID), slog.String("error", err.Error()))
	}
	h.answer(ctx, action, "Pick the failure reason", false)
	return nil
}

// HandleFeedback finalizes a failure with the chosen reason.
func (h *Handler) HandleFeedback(ctx context.Context, action Action) error {
	ok, err := h.authorize(ctx, action)
	if err != nil || !ok {
		return err
	}
	return h.resolve(ctx, action, model.OrderStatusFailed, FailReasonText(action.Reason))
}

func (h *Handler) resolve(ctx context.Context, action Action, outcome model.OrderStatus, remark string) error {
	err := h.facade.ResolveOrder(ctx, action.OrderID, action.ActorID, outcome, remark)
	switch {
	case err == nil:
		h.logger.Info("order resolved",
			slog.Int64("order", action.OrderID),
			slog.String("seller", action.ActorID),
			slog.String("outcome", string(outcome)))
		h.answer(ctx, action, "Order updated", true)
		return nil
	case errors.Is(err, domainErrors.ErrNotClaimOwner):
		h.answer(ctx, action, "Only the claiming seller can resolve this order", true)
		return nil
	case errors.Is(err, domainErrors.ErrNotClaimable), errors.Is(err, domainErrors.ErrNotFound):
		h.answer(ctx, action, "Order is not in a resolvable state", true)
		return nil
	default:
		h.answer(ctx, action, "Update failed, please retry", true)
		return err
	}
}

func (h *Handler) answer(ctx context.Context, action Action, text string, alert bool) {
	if action.CallbackID == "" {
		return
	}
	if err := h.responder.AnswerCallback(ctx, action.CallbackID, text, alert); err != nil {
		h.logger.Warn("answer callback failed",
			slog.String("actor", action.ActorID), slog.String("error", err.Error()))
	}
}
