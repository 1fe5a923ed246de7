package usecase

import (
	"log/slog"

	"go.uber.org/fx"

	"github.com/polkiloo/resalebot/internal/config"
	"github.com/polkiloo/resalebot/internal/domain/repository"
	"github.com/polkiloo/resalebot/internal/notify"
)

// Module provides core business use cases to the fx container.
var Module = fx.Provide(
	newOrderUseCase,
	NewSellerUseCase,
)

type orderUseCaseParams struct {
	fx.In

	Orders repository.OrderRepository
	Queue  *notify.Queue
	Dedup  *notify.Deduplicator
	Config *config.Config
	Logger *slog.Logger
}

func newOrderUseCase(p orderUseCaseParams) *OrderUseCase {
	return NewOrderUseCase(p.Orders, p.Queue, p.Dedup, p.Config.ClaimLimit, p.Logger)
}
