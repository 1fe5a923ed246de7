package storage

import (
	"context"
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/resalebot/internal/config"
	"github.com/polkiloo/resalebot/internal/domain/repository"
)

// Module wires the selected storage backend and repository adapters.
var Module = fx.Options(
	fx.Provide(newBackend),
	fx.Provide(
		func(b Backend) repository.Factory { return b },
		func(b Backend) repository.OrderRepository { return b.Orders() },
		func(b Backend) repository.SellerRepository { return b.Sellers() },
		func(b Backend) repository.NotificationRepository { return b.Notifications() },
	),
	fx.Invoke(registerLifecycle),
)

type backendParams struct {
	fx.In

	Ctx    context.Context
	Config *config.Config
	Logger *slog.Logger
}

func newBackend(p backendParams) (Backend, error) {
	return New(p.Ctx, p.Config.DatabaseURI, p.Logger)
}

func registerLifecycle(lc fx.Lifecycle, backend Backend) {
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			backend.Close()
			return nil
		},
	})
}
