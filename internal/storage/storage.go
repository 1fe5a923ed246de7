package storage

import (
	"context"
	"log/slog"
	"strings"

	"github.com/polkiloo/resalebot/internal/domain/repository"
	"github.com/polkiloo/resalebot/internal/storage/postgres"
	"github.com/polkiloo/resalebot/internal/storage/sqlite"
)

// Backend is a repository factory bound to one database engine.
type Backend interface {
	repository.Factory
	HealthCheck(ctx context.Context) error
	Close()
}

// New selects the backend by DSN scheme: postgres:// DSNs get the pgx pool,
// anything else is treated as a SQLite path.
func New(ctx context.Context, dsn string, logger *slog.Logger) (Backend, error) {
	if strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://") {
		return postgres.New(ctx, dsn, logger)
	}
	return sqlite.New(ctx, dsn, logger)
}
