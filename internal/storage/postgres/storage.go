package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
	"github.com/polkiloo/resalebot/internal/domain/repository"
)

// pgxPool is the subset of pgxpool.Pool used by the storage, extracted so
// tests can substitute a mock pool.
type pgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Ping(ctx context.Context) error
	Close()
}

var newPgxPool = func(ctx context.Context, cfg *pgxpool.Config) (pgxPool, error) {
	return pgxpool.NewWithConfig(ctx, cfg)
}

// Storage acts as repository facade backed by PostgreSQL.
type Storage struct {
	pool   pgxPool
	logger *slog.Logger
}

type orderRepository struct {
	storage *Storage
}

type sellerRepository struct {
	storage *Storage
}

type notificationRepository struct {
	storage *Storage
}

// New creates storage with schema initialization.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	pool, err := newPgxPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}

	storage := &Storage{pool: pool, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return storage, nil
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Factory methods for domain repositories.
func (s *Storage) Orders() repository.OrderRepository {
	return &orderRepository{storage: s}
}

func (s *Storage) Sellers() repository.SellerRepository {
	return &sellerRepository{storage: s}
}

func (s *Storage) Notifications() repository.NotificationRepository {
	return &notificationRepository{storage: s}
}

func (s *Storage) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS orders (
            id BIGSERIAL PRIMARY KEY,
            account TEXT NOT NULL DEFAULT '',
            payload TEXT NOT NULL DEFAULT '',
            package TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'submitted',
            remark TEXT NOT NULL DEFAULT '',
            claimed_by TEXT NOT NULL DEFAULT '',
            notified BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
            accepted_at TIMESTAMPTZ,
            completed_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS sellers (
            telegram_id TEXT PRIMARY KEY,
            username TEXT NOT NULL DEFAULT '',
            first_name TEXT NOT NULL DEFAULT '',
            nickname TEXT NOT NULL DEFAULT '',
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            last_active_at TIMESTAMPTZ
        )`,
		`CREATE TABLE IF NOT EXISTS order_notifications (
            id BIGSERIAL PRIMARY KEY,
            order_id BIGINT NOT NULL REFERENCES orders(id),
            seller_id TEXT NOT NULL,
            message_id BIGINT NOT NULL,
            notified_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_unnotified ON orders(id) WHERE notified = FALSE AND status = 'submitted'`,
		`CREATE INDEX IF NOT EXISTS idx_orders_claimed ON orders(claimed_by, status)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_order ON order_notifications(order_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}

	return nil
}

// wrapStorage classifies driver-level failures as retryable storage faults
// while passing domain sentinels through untouched.
func wrapStorage(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domainErrors.ErrNotFound) ||
		errors.Is(err, domainErrors.ErrAlreadyClaimed) ||
		errors.Is(err, domainErrors.ErrNotClaimable) ||
		errors.Is(err, domainErrors.ErrNotClaimOwner) ||
		errors.Is(err, domainErrors.ErrUnauthorized) {
		return err
	}
	var tooMany domainErrors.TooManyActiveError
	if errors.As(err, &tooMany) {
		return err
	}
	return domainErrors.StorageError{Err: err}
}

const orderColumns = `id, account, payload, package, status, remark, claimed_by, notified, created_at, accepted_at, completed_at`

func scanOrder(row pgx.Row) (*model.Order, error) {
	var o model.Order
	err := row.Scan(&o.ID, &o.Account, &o.Payload, &o.Package, &o.Status, &o.Remark,
		&o.ClaimedBy, &o.Notified, &o.CreatedAt, &o.AcceptedAt, &o.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	return &o, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, account, payload string, pkg model.Package) (*model.Order, error) {
	const query = `INSERT INTO orders (account, payload, package) VALUES ($1, $2, $3)
                   RETURNING id, status, notified, created_at`
	var order model.Order
	err := r.storage.pool.QueryRow(ctx, query, account, payload, pkg).
		Scan(&order.ID, &order.Status, &order.Notified, &order.CreatedAt)
	if err != nil {
		return nil, wrapStorage(err)
	}
	order.Account = account
	order.Payload = payload
	order.Package = pkg
	return &order, nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	order, err := scanOrder(r.storage.pool.QueryRow(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=$1`, orderID))
	if err != nil {
		return nil, wrapStorage(err)
	}
	return order, nil
}

// Claim transitions the order from submitted to accepted on behalf of the
// seller, enforcing the concurrent-claim cap. The seller row is locked first
// so two claims by the same seller cannot both pass the cap check, and the
// transition itself is a conditional UPDATE gated on the current status, so
// two claims on the same order cannot both win.
func (r *orderRepository) Claim(ctx context.Context, orderID int64, sellerID string, limit int) error {
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		var active bool
		err := tx.QueryRow(ctx,
			`SELECT is_active FROM sellers WHERE telegram_id=$1 FOR UPDATE`, sellerID).Scan(&active)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domainErrors.ErrUnauthorized
			}
			return err
		}
		if !active {
			return domainErrors.ErrUnauthorized
		}

		var count int
		err = tx.QueryRow(ctx,
			`SELECT COUNT(*) FROM orders WHERE claimed_by=$1 AND status=$2`,
			sellerID, model.OrderStatusAccepted).Scan(&count)
		if err != nil {
			return err
		}
		if count >= limit {
			return domainErrors.TooManyActiveError{Count: count, Limit: limit}
		}

		tag, err := tx.Exec(ctx,
			`UPDATE orders SET status=$1, claimed_by=$2, accepted_at=NOW()
             WHERE id=$3 AND status=$4`,
			model.OrderStatusAccepted, sellerID, orderID, model.OrderStatusSubmitted)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			var status model.OrderStatus
			err := tx.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&status)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					return domainErrors.ErrNotFound
				}
				return err
			}
			return domainErrors.ErrAlreadyClaimed
		}
		return nil
	})
	return wrapStorage(err)
}

func (r *orderRepository) Resolve(ctx context.Context, orderID int64, sellerID string, outcome model.OrderStatus, remark string) error {
	if outcome != model.OrderStatusCompleted && outcome != model.OrderStatusFailed {
		return domainErrors.ErrNotClaimable
	}
	err := r.storage.WithinTransaction(ctx, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE orders SET status=$1, remark=$2, completed_at=NOW()
             WHERE id=$3 AND status=$4 AND claimed_by=$5`,
			outcome, remark, orderID, model.OrderStatusAccepted, sellerID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return r.classifyResolveFailure(ctx, tx, orderID, sellerID)
		}
		return nil
	})
	return wrapStorage(err)
}

func (r *orderRepository) classifyResolveFailure(ctx context.Context, tx pgx.Tx, orderID int64, sellerID string) error {
	var status model.OrderStatus
	var claimedBy string
	err := tx.QueryRow(ctx, `SELECT status, claimed_by FROM orders WHERE id=$1`, orderID).
		Scan(&status, &claimedBy)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainErrors.ErrNotFound
		}
		return err
	}
	if status == model.OrderStatusAccepted && claimedBy != sellerID {
		return domainErrors.ErrNotClaimOwner
	}
	return domainErrors.ErrNotClaimable
}

func (r *orderRepository) Cancel(ctx context.Context, orderID int64) error {
	tag, err := r.storage.pool.Exec(ctx,
		`UPDATE orders SET status=$1 WHERE id=$2 AND status IN ($3, $4)`,
		model.OrderStatusCancelled, orderID, model.OrderStatusSubmitted, model.OrderStatusAccepted)
	if err != nil {
		return wrapStorage(err)
	}
	if tag.RowsAffected() == 0 {
		return r.notCancellable(ctx, orderID)
	}
	return nil
}

func (r *orderRepository) notCancellable(ctx context.Context, orderID int64) error {
	var status model.OrderStatus
	err := r.storage.pool.QueryRow(ctx, `SELECT status FROM orders WHERE id=$1`, orderID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domainErrors.ErrNotFound
		}
		return wrapStorage(err)
	}
	return domainErrors.ErrNotClaimable
}

func (r *orderRepository) RequestNewInput(ctx context.Context, orderID int64, sellerID string) error {
	tag, err := r.storage.pool.Exec(ctx,
		`UPDATE orders SET status=$1 WHERE id=$2 AND status=$3 AND claimed_by=$4`,
		model.OrderStatusNeedNewInput, orderID, model.OrderStatusAccepted, sellerID)
	if err != nil {
		return wrapStorage(err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotClaimable
	}
	return nil
}

// Resubmit replaces the payload and returns the order to the submitted state.
// The notified flag is cleared so the order re-enters the notification cycle.
func (r *orderRepository) Resubmit(ctx context.Context, orderID int64, payload string) error {
	tag, err := r.storage.pool.Exec(ctx,
		`UPDATE orders SET status=$1, payload=$2, notified=FALSE
         WHERE id=$3 AND status=$4`,
		model.OrderStatusSubmitted, payload, orderID, model.OrderStatusNeedNewInput)
	if err != nil {
		return wrapStorage(err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotClaimable
	}
	return nil
}

func (r *orderRepository) MarkNotified(ctx context.Context, orderID int64) error {
	tag, err := r.storage.pool.Exec(ctx,
		`UPDATE orders SET notified=TRUE WHERE id=$1`, orderID)
	if err != nil {
		return wrapStorage(err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// ClearNotified reverses MarkNotified so the order re-enters the unnotified
// backlog. Used when an announcement could not be handed to the queue.
func (r *orderRepository) ClearNotified(ctx context.Context, orderID int64) error {
	tag, err := r.storage.pool.Exec(ctx,
		`UPDATE orders SET notified=FALSE WHERE id=$1`, orderID)
	if err != nil {
		return wrapStorage(err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) ListUnnotifiedSubmitted(ctx context.Context) ([]model.Order, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT `+orderColumns+` FROM orders
         WHERE notified=FALSE AND status=$1 ORDER BY id`, model.OrderStatusSubmitted)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		var o model.Order
		if err := rows.Scan(&o.ID, &o.Account, &o.Payload, &o.Package, &o.Status, &o.Remark,
			&o.ClaimedBy, &o.Notified, &o.CreatedAt, &o.AcceptedAt, &o.CompletedAt); err != nil {
			return nil, wrapStorage(err)
		}
		result = append(result, o)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	return result, nil
}

func (r *orderRepository) CountActiveBySeller(ctx context.Context, sellerID string) (int, error) {
	var count int
	err := r.storage.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM orders WHERE claimed_by=$1 AND status=$2`,
		sellerID, model.OrderStatusAccepted).Scan(&count)
	if err != nil {
		return 0, wrapStorage(err)
	}
	return count, nil
}

// --- SellerRepository implementation ---

func (r *sellerRepository) Upsert(ctx context.Context, seller *model.Seller) error {
	const query = `INSERT INTO sellers (telegram_id, username, first_name, nickname, is_active)
                   VALUES ($1, $2, $3, $4, $5)
                   ON CONFLICT (telegram_id) DO UPDATE
                   SET username = EXCLUDED.username,
                       first_name = EXCLUDED.first_name,
                       is_active = EXCLUDED.is_active,
                       nickname = CASE WHEN EXCLUDED.nickname <> '' THEN EXCLUDED.nickname ELSE sellers.nickname END`
	_, err := r.storage.pool.Exec(ctx, query,
		seller.ID, seller.Username, seller.FirstName, seller.Nickname, seller.Active)
	return wrapStorage(err)
}

func (r *sellerRepository) Get(ctx context.Context, sellerID string) (*model.Seller, error) {
	const query = `SELECT telegram_id, username, first_name, nickname, is_active, last_active_at
                   FROM sellers WHERE telegram_id=$1`
	var s model.Seller
	err := r.storage.pool.QueryRow(ctx, query, sellerID).
		Scan(&s.ID, &s.Username, &s.FirstName, &s.Nickname, &s.Active, &s.LastActiveAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, wrapStorage(err)
	}
	return &s, nil
}

func (r *sellerRepository) listWhere(ctx context.Context, query string, args ...any) ([]model.Seller, error) {
	rows, err := r.storage.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()

	var result []model.Seller
	for rows.Next() {
		var s model.Seller
		if err := rows.Scan(&s.ID, &s.Username, &s.FirstName, &s.Nickname, &s.Active, &s.LastActiveAt); err != nil {
			return nil, wrapStorage(err)
		}
		result = append(result, s)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	return result, nil
}

func (r *sellerRepository) ListActive(ctx context.Context) ([]model.Seller, error) {
	return r.listWhere(ctx,
		`SELECT telegram_id, username, first_name, nickname, is_active, last_active_at
         FROM sellers WHERE is_active = TRUE ORDER BY telegram_id`)
}

func (r *sellerRepository) ListAll(ctx context.Context) ([]model.Seller, error) {
	return r.listWhere(ctx,
		`SELECT telegram_id, username, first_name, nickname, is_active, last_active_at
         FROM sellers ORDER BY telegram_id`)
}

func (r *sellerRepository) SetActive(ctx context.Context, sellerID string, active bool) error {
	tag, err := r.storage.pool.Exec(ctx,
		`UPDATE sellers SET is_active=$1 WHERE telegram_id=$2`, active, sellerID)
	if err != nil {
		return wrapStorage(err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *sellerRepository) TouchLastActive(ctx context.Context, sellerID string) error {
	_, err := r.storage.pool.Exec(ctx,
		`UPDATE sellers SET last_active_at=NOW() WHERE telegram_id=$1`, sellerID)
	return wrapStorage(err)
}

func (r *sellerRepository) UpdateIdentity(ctx context.Context, sellerID, username, firstName string) error {
	_, err := r.storage.pool.Exec(ctx,
		`UPDATE sellers SET username=$1, first_name=$2 WHERE telegram_id=$3`,
		username, firstName, sellerID)
	return wrapStorage(err)
}

// --- NotificationRepository implementation ---

func (r *notificationRepository) Record(ctx context.Context, orderID int64, sellerID string, messageID int64) error {
	_, err := r.storage.pool.Exec(ctx,
		`INSERT INTO order_notifications (order_id, seller_id, message_id) VALUES ($1, $2, $3)`,
		orderID, sellerID, messageID)
	return wrapStorage(err)
}

func (r *notificationRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.Notification, error) {
	rows, err := r.storage.pool.Query(ctx,
		`SELECT id, order_id, seller_id, message_id, notified_at
         FROM order_notifications WHERE order_id=$1 ORDER BY id`, orderID)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()

	var result []model.Notification
	for rows.Next() {
		var n model.Notification
		if err := rows.Scan(&n.ID, &n.OrderID, &n.SellerID, &n.MessageID, &n.NotifiedAt); err != nil {
			return nil, wrapStorage(err)
		}
		result = append(result, n)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	return result, nil
}

// WithinTransaction executes function inside transaction boundary.
func (s *Storage) WithinTransaction(ctx context.Context, fn func(pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.pool.Ping(ctx)
}

// Logger returns storage logger.
func (s *Storage) Logger() *slog.Logger {
	return s.logger
}
