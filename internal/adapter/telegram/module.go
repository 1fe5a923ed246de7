package telegram

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/resalebot/internal/config"
)

// Module exposes the Bot API client implementation to the fx graph.
var Module = fx.Provide(newClient)

type clientParams struct {
	fx.In

	Config *config.Config
	Logger *slog.Logger
}

func newClient(p clientParams) (Client, error) {
	return NewHTTPClient(p.Config.BotAPIBase, p.Config.BotToken, p.Logger)
}
