package app

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/fx"

	"github.com/polkiloo/resalebot/internal/adapter/telegram"
	"github.com/polkiloo/resalebot/internal/bot"
	"github.com/polkiloo/resalebot/internal/config"
	"github.com/polkiloo/resalebot/internal/notify"
)

// Module wires application services, runtime components, and lifecycle hooks.
var Module = fx.Options(
	fx.Provide(
		NewResaleFacade,
		newActionRouter,
		newHTTPServer,
		newPoller,
		newDispatcher,
	),
	fx.Invoke(registerLifecycle),
)

type serverParams struct {
	fx.In

	Config *config.Config
	Router *gin.Engine
}

func newHTTPServer(p serverParams) *http.Server {
	return &http.Server{
		Addr:    p.Config.RunAddress,
		Handler: p.Router,
	}
}

type routerParams struct {
	fx.In

	Facade *ResaleFacade
	Client telegram.Client
	Logger *slog.Logger
}

func newActionRouter(p routerParams) *bot.Router {
	router := bot.NewRouter(p.Logger)
	bot.NewHandler(p.Facade, p.Client, router, p.Logger)
	return router
}

type pollerParams struct {
	fx.In

	Facade *ResaleFacade
	Dedup  *notify.Deduplicator
	Queue  *notify.Queue
	Config *config.Config
	Logger *slog.Logger
}

func newPoller(p pollerParams) *notify.Poller {
	return notify.NewPoller(p.Facade, p.Dedup, p.Queue, p.Config.PollInterval, p.Logger)
}

type dispatcherParams struct {
	fx.In

	Facade *ResaleFacade
	Client telegram.Client
	Queue  *notify.Queue
	Config *config.Config
	Logger *slog.Logger
}

func newDispatcher(p dispatcherParams) *notify.Dispatcher {
	return notify.NewDispatcher(p.Facade, p.Client, p.Queue, p.Config.SendDelay, p.Logger)
}

type lifecycleParams struct {
	fx.In

	Lifecycle  fx.Lifecycle
	Shutdowner fx.Shutdowner
	Logger     *slog.Logger
	Server     *http.Server
	Poller     *notify.Poller
	Dispatcher *notify.Dispatcher
	Facade     *ResaleFacade
	Config     *config.Config
}

func registerLifecycle(p lifecycleParams) {
	p.Lifecycle.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			if err := p.Facade.SyncEnvSellers(ctx, p.Config.SellerIDs); err != nil {
				return err
			}

			p.Logger.Info("starting resalebot", slog.String("addr", p.Server.Addr))
			p.Dispatcher.Start(ctx)
			p.Poller.Start(ctx)
			go func() {
				if err := p.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					p.Logger.Error("http server terminated", slog.String("error", err.Error()))
					_ = p.Shutdowner.Shutdown()
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			// Poller first so no new events are produced while the dispatcher
			// finishes the one it holds.
			p.Poller.Stop()
			p.Dispatcher.Stop()

			shutdownCtx := ctx
			cancel := func() {}
			if _, ok := ctx.Deadline(); !ok {
				shutdownCtx, cancel = context.WithTimeout(ctx, p.Config.ShutdownTimeout)
			}
			defer cancel()

			if err := p.Server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			p.Logger.Info("resalebot stopped")
			return nil
		},
	})
}
