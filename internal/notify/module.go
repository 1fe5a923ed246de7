package notify

import (
	"go.uber.org/fx"

	"github.com/polkiloo/resalebot/internal/config"
)

// Module provides the shared dedup set and event queue. Poller and dispatcher
// are constructed by the app module, which owns their lifecycle.
var Module = fx.Provide(
	NewDeduplicator,
	newQueue,
)

func newQueue(cfg *config.Config) *Queue {
	return NewQueue(cfg.QueueCapacity)
}
