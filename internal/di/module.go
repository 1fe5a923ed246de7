package di

import (
	"go.uber.org/fx"

	"github.com/polkiloo/resalebot/internal/adapter/telegram"
	"github.com/polkiloo/resalebot/internal/app"
	"github.com/polkiloo/resalebot/internal/config"
	"github.com/polkiloo/resalebot/internal/logger"
	"github.com/polkiloo/resalebot/internal/notify"
	"github.com/polkiloo/resalebot/internal/server/http/handlers"
	"github.com/polkiloo/resalebot/internal/server/http/router"
	"github.com/polkiloo/resalebot/internal/storage"
	"github.com/polkiloo/resalebot/internal/usecase"
)

func Module(opts ...fx.Option) fx.Option {
	modules := []fx.Option{
		config.Module,
		logger.Module,
		storage.Module,
		telegram.Module,
		notify.Module,
		usecase.Module,
		fx.Provide(func(f *app.ResaleFacade) handlers.ResaleFacade { return f }),
		router.Module,
		app.Module,
	}
	modules = append(modules, opts...)
	return fx.Options(modules...)
}
