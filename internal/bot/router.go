package bot

import (
	"context"
	"fmt"
	"log/slog"
)

// HandlerFunc processes one inbound action.
type HandlerFunc func(ctx context.Context, action Action) error

// Router dispatches typed actions to their handlers. It replaces
// transport-specific callback registration with a plain dispatch table.
type Router struct {
	handlers map[ActionKind]HandlerFunc
	logger   *slog.Logger
}

// NewRouter constructs an empty router.
func NewRouter(logger *slog.Logger) *Router {
	return &Router{handlers: make(map[ActionKind]HandlerFunc), logger: logger}
}

// Handle registers the handler for an action kind.
func (r *Router) Handle(kind ActionKind, fn HandlerFunc) {
	r.handlers[kind] = fn
}

// Dispatch routes the action to its registered handler.
func (r *Router) Dispatch(ctx context.Context, action Action) error {
	fn, ok := r.handlers[action.Kind]
	if !ok {
		return fmt.Errorf("no handler for action %q", action.Kind)
	}
	if err := fn(ctx, action); err != nil {
		r.logger.Error("action handling failed",
			slog.String("kind", string(action.Kind)),
			slog.Int64("order", action.OrderID),
			slog.String("actor", action.ActorID),
			slog.String("error", err.Error()))
		return err
	}
	return nil
}
