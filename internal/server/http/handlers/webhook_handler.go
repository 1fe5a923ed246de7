package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/resalebot/internal/bot"
)

// telegramUpdate mirrors the subset of the Bot API update payload the bot
// acts on. Everything else in the update is ignored.
type telegramUpdate struct {
	CallbackQuery *struct {
		ID   string `json:"id"`
		Data string `json:"data"`
		From struct {
			ID        int64  `json:"id"`
			Username  string `json:"username"`
			FirstName string `json:"first_name"`
		} `json:"from"`
		Message *struct {
			MessageID int64 `json:"message_id"`
			Chat      struct {
				ID int64 `json:"id"`
			} `json:"chat"`
		} `json:"message"`
	} `json:"callback_query"`
}

// WebhookHandler ingests Telegram webhook updates and feeds them to the
// action router.
type WebhookHandler struct {
	actions *bot.Router
	logger  *slog.Logger
}

// NewWebhookHandler constructs WebhookHandler.
func NewWebhookHandler(actions *bot.Router, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{actions: actions, logger: logger}
}

// Receive handles POST /telegram-webhook. The update is acknowledged
// immediately; the action itself runs detached so a slow claim never makes
// Telegram re-deliver the update.
func (h *WebhookHandler) Receive(c *gin.Context) {
	var update telegramUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	cq := update.CallbackQuery
	if cq == nil || cq.Data == "" {
		c.Status(http.StatusOK)
		return
	}

	kind, orderID, reason, err := bot.ParseCallback(cq.Data)
	if err != nil {
		h.logger.Warn("unparseable callback ignored", slog.String("error", err.Error()))
		c.Status(http.StatusOK)
		return
	}

	action := bot.Action{
		Kind:       kind,
		OrderID:    orderID,
		ActorID:    strconv.FormatInt(cq.From.ID, 10),
		Username:   cq.From.Username,
		FirstName:  cq.From.FirstName,
		CallbackID: cq.ID,
		Reason:     reason,
	}
	if cq.Message != nil {
		action.MessageID = cq.Message.MessageID
	}

	ctx := context.WithoutCancel(c.Request.Context())
	go func() {
		_ = h.actions.Dispatch(ctx, action)
	}()

	c.Status(http.StatusOK)
}
