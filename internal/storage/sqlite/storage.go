package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	domainErrors "github.com/polkiloo/resalebot/internal/domain/errors"
	"github.com/polkiloo/resalebot/internal/domain/model"
	"github.com/polkiloo/resalebot/internal/domain/repository"
)

// Storage acts as repository facade backed by SQLite. Transactions are opened
// with an immediate write lock (_txlock=immediate), so SQLite itself serializes
// concurrent claim attempts; the conditional UPDATE's affected-row check then
// decides the winner.
type Storage struct {
	db     *sql.DB
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

// New opens the SQLite database and initializes the schema. The dsn is either
// a bare file path or a sqlite://path URI.
func New(ctx context.Context, dsn string, logger *slog.Logger) (*Storage, error) {
	path := strings.TrimPrefix(dsn, "sqlite://")
	if path == "" {
		return nil, fmt.Errorf("empty sqlite path")
	}

	connStr := path
	if !strings.Contains(path, "?") {
		connStr = path + "?" + defaultOptions()
	} else {
		connStr = path + "&" + defaultOptions()
	}

	db, err := sql.Open("sqlite3", connStr)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single writer connection sidesteps SQLITE_BUSY storms under load.
	db.SetMaxOpenConns(1)

	storage := &Storage{db: db, logger: logger}
	if err := storage.initSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return storage, nil
}

func defaultOptions() string {
	opts := url.Values{}
	opts.Set("_busy_timeout", "5000")
	opts.Set("_foreign_keys", "on")
	opts.Set("_txlock", "immediate")
	return opts.Encode()
}

// Close releases database resources.
func (s *Storage) Close() {
	if s.db != nil {
		_ = s.db.Close()
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
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            account TEXT NOT NULL DEFAULT '',
            payload TEXT NOT NULL DEFAULT '',
            package TEXT NOT NULL,
            status TEXT NOT NULL DEFAULT 'submitted',
            remark TEXT NOT NULL DEFAULT '',
            claimed_by TEXT NOT NULL DEFAULT '',
            notified INTEGER NOT NULL DEFAULT 0,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            accepted_at TIMESTAMP,
            completed_at TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS sellers (
            telegram_id TEXT PRIMARY KEY,
            username TEXT NOT NULL DEFAULT '',
            first_name TEXT NOT NULL DEFAULT '',
            nickname TEXT NOT NULL DEFAULT '',
            is_active INTEGER NOT NULL DEFAULT 1,
            last_active_at TIMESTAMP
        )`,
		`CREATE TABLE IF NOT EXISTS order_notifications (
            id INTEGER PRIMARY KEY AUTOINCREMENT,
            order_id INTEGER NOT NULL REFERENCES orders(id),
            seller_id TEXT NOT NULL,
            message_id INTEGER NOT NULL,
            notified_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,
		`CREATE INDEX IF NOT EXISTS idx_orders_unnotified ON orders(notified, status)`,
		`CREATE INDEX IF NOT EXISTS idx_orders_claimed ON orders(claimed_by, status)`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_order ON order_notifications(order_id)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

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

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*model.Order, error) {
	var (
		o           model.Order
		acceptedAt  sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(&o.ID, &o.Account, &o.Payload, &o.Package, &o.Status, &o.Remark,
		&o.ClaimedBy, &o.Notified, &o.CreatedAt, &acceptedAt, &completedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, err
	}
	if acceptedAt.Valid {
		t := acceptedAt.Time
		o.AcceptedAt = &t
	}
	if completedAt.Valid {
		t := completedAt.Time
		o.CompletedAt = &t
	}
	return &o, nil
}

// --- OrderRepository implementation ---

func (r *orderRepository) Create(ctx context.Context, account, payload string, pkg model.Package) (*model.Order, error) {
	now := time.Now().UTC()
	res, err := r.storage.db.ExecContext(ctx,
		`INSERT INTO orders (account, payload, package, created_at) VALUES (?, ?, ?, ?)`,
		account, payload, pkg, now)
	if err != nil {
		return nil, wrapStorage(err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, wrapStorage(err)
	}
	return &model.Order{
		ID:        id,
		Account:   account,
		Payload:   payload,
		Package:   pkg,
		Status:    model.OrderStatusSubmitted,
		CreatedAt: now,
	}, nil
}

func (r *orderRepository) GetByID(ctx context.Context, orderID int64) (*model.Order, error) {
	order, err := scanOrder(r.storage.db.QueryRowContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE id=?`, orderID))
	if err != nil {
		return nil, wrapStorage(err)
	}
	return order, nil
}

func (r *orderRepository) Claim(ctx context.Context, orderID int64, sellerID string, limit int) error {
	err := r.storage.withinTransaction(ctx, func(tx *sql.Tx) error {
		var active bool
		err := tx.QueryRowContext(ctx,
			`SELECT is_active FROM sellers WHERE telegram_id=?`, sellerID).Scan(&active)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domainErrors.ErrUnauthorized
			}
			return err
		}
		if !active {
			return domainErrors.ErrUnauthorized
		}

		var count int
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM orders WHERE claimed_by=? AND status=?`,
			sellerID, model.OrderStatusAccepted).Scan(&count)
		if err != nil {
			return err
		}
		if count >= limit {
			return domainErrors.TooManyActiveError{Count: count, Limit: limit}
		}

		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status=?, claimed_by=?, accepted_at=? WHERE id=? AND status=?`,
			model.OrderStatusAccepted, sellerID, time.Now().UTC(), orderID, model.OrderStatusSubmitted)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var status model.OrderStatus
			err := tx.QueryRowContext(ctx, `SELECT status FROM orders WHERE id=?`, orderID).Scan(&status)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
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
	err := r.storage.withinTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE orders SET status=?, remark=?, completed_at=? WHERE id=? AND status=? AND claimed_by=?`,
			outcome, remark, time.Now().UTC(), orderID, model.OrderStatusAccepted, sellerID)
		if err != nil {
			return err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if affected == 0 {
			var status model.OrderStatus
			var claimedBy string
			err := tx.QueryRowContext(ctx,
				`SELECT status, claimed_by FROM orders WHERE id=?`, orderID).Scan(&status, &claimedBy)
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return domainErrors.ErrNotFound
				}
				return err
			}
			if status == model.OrderStatusAccepted && claimedBy != sellerID {
				return domainErrors.ErrNotClaimOwner
			}
			return domainErrors.ErrNotClaimable
		}
		return nil
	})
	return wrapStorage(err)
}

func (r *orderRepository) Cancel(ctx context.Context, orderID int64) error {
	res, err := r.storage.db.ExecContext(ctx,
		`UPDATE orders SET status=? WHERE id=? AND status IN (?, ?)`,
		model.OrderStatusCancelled, orderID, model.OrderStatusSubmitted, model.OrderStatusAccepted)
	if err != nil {
		return wrapStorage(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorage(err)
	}
	if affected == 0 {
		var status model.OrderStatus
		err := r.storage.db.QueryRowContext(ctx, `SELECT status FROM orders WHERE id=?`, orderID).Scan(&status)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return domainErrors.ErrNotFound
			}
			return wrapStorage(err)
		}
		return domainErrors.ErrNotClaimable
	}
	return nil
}

func (r *orderRepository) RequestNewInput(ctx context.Context, orderID int64, sellerID string) error {
	res, err := r.storage.db.ExecContext(ctx,
		`UPDATE orders SET status=? WHERE id=? AND status=? AND claimed_by=?`,
		model.OrderStatusNeedNewInput, orderID, model.OrderStatusAccepted, sellerID)
	if err != nil {
		return wrapStorage(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorage(err)
	}
	if affected == 0 {
		return domainErrors.ErrNotClaimable
	}
	return nil
}

func (r *orderRepository) Resubmit(ctx context.Context, orderID int64, payload string) error {
	res, err := r.storage.db.ExecContext(ctx,
		`UPDATE orders SET status=?, payload=?, notified=0 WHERE id=? AND status=?`,
		model.OrderStatusSubmitted, payload, orderID, model.OrderStatusNeedNewInput)
	if err != nil {
		return wrapStorage(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorage(err)
	}
	if affected == 0 {
		return domainErrors.ErrNotClaimable
	}
	return nil
}

func (r *orderRepository) MarkNotified(ctx context.Context, orderID int64) error {
	res, err := r.storage.db.ExecContext(ctx,
		`UPDATE orders SET notified=1 WHERE id=?`, orderID)
	if err != nil {
		return wrapStorage(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorage(err)
	}
	if affected == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

// ClearNotified reverses MarkNotified so the order re-enters the unnotified
// backlog. Used when an announcement could not be handed to the queue.
func (r *orderRepository) ClearNotified(ctx context.Context, orderID int64) error {
	res, err := r.storage.db.ExecContext(ctx,
		`UPDATE orders SET notified=0 WHERE id=?`, orderID)
	if err != nil {
		return wrapStorage(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorage(err)
	}
	if affected == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *orderRepository) ListUnnotifiedSubmitted(ctx context.Context) ([]model.Order, error) {
	rows, err := r.storage.db.QueryContext(ctx,
		`SELECT `+orderColumns+` FROM orders WHERE notified=0 AND status=? ORDER BY id`,
		model.OrderStatusSubmitted)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()

	var result []model.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, wrapStorage(err)
		}
		result = append(result, *order)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStorage(err)
	}
	return result, nil
}

func (r *orderRepository) CountActiveBySeller(ctx context.Context, sellerID string) (int, error) {
	var count int
	err := r.storage.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM orders WHERE claimed_by=? AND status=?`,
		sellerID, model.OrderStatusAccepted).Scan(&count)
	if err != nil {
		return 0, wrapStorage(err)
	}
	return count, nil
}

// --- SellerRepository implementation ---

func (r *sellerRepository) Upsert(ctx context.Context, seller *model.Seller) error {
	const query = `INSERT INTO sellers (telegram_id, username, first_name, nickname, is_active)
                   VALUES (?, ?, ?, ?, ?)
                   ON CONFLICT (telegram_id) DO UPDATE
                   SET username = excluded.username,
                       first_name = excluded.first_name,
                       is_active = excluded.is_active,
                       nickname = CASE WHEN excluded.nickname <> '' THEN excluded.nickname ELSE sellers.nickname END`
	_, err := r.storage.db.ExecContext(ctx, query,
		seller.ID, seller.Username, seller.FirstName, seller.Nickname, seller.Active)
	return wrapStorage(err)
}

func (r *sellerRepository) Get(ctx context.Context, sellerID string) (*model.Seller, error) {
	var (
		s          model.Seller
		lastActive sql.NullTime
	)
	err := r.storage.db.QueryRowContext(ctx,
		`SELECT telegram_id, username, first_name, nickname, is_active, last_active_at
         FROM sellers WHERE telegram_id=?`, sellerID).
		Scan(&s.ID, &s.Username, &s.FirstName, &s.Nickname, &s.Active, &lastActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domainErrors.ErrNotFound
		}
		return nil, wrapStorage(err)
	}
	if lastActive.Valid {
		t := lastActive.Time
		s.LastActiveAt = &t
	}
	return &s, nil
}

func (r *sellerRepository) listWhere(ctx context.Context, query string, args ...any) ([]model.Seller, error) {
	rows, err := r.storage.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapStorage(err)
	}
	defer rows.Close()

	var result []model.Seller
	for rows.Next() {
		var (
			s          model.Seller
			lastActive sql.NullTime
		)
		if err := rows.Scan(&s.ID, &s.Username, &s.FirstName, &s.Nickname, &s.Active, &lastActive); err != nil {
			return nil, wrapStorage(err)
		}
		if lastActive.Valid {
			t := lastActive.Time
			s.LastActiveAt = &t
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
         FROM sellers WHERE is_active = 1 ORDER BY telegram_id`)
}

func (r *sellerRepository) ListAll(ctx context.Context) ([]model.Seller, error) {
	return r.listWhere(ctx,
		`SELECT telegram_id, username, first_name, nickname, is_active, last_active_at
         FROM sellers ORDER BY telegram_id`)
}

func (r *sellerRepository) SetActive(ctx context.Context, sellerID string, active bool) error {
	res, err := r.storage.db.ExecContext(ctx,
		`UPDATE sellers SET is_active=? WHERE telegram_id=?`, active, sellerID)
	if err != nil {
		return wrapStorage(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return wrapStorage(err)
	}
	if affected == 0 {
		return domainErrors.ErrNotFound
	}
	return nil
}

func (r *sellerRepository) TouchLastActive(ctx context.Context, sellerID string) error {
	_, err := r.storage.db.ExecContext(ctx,
		`UPDATE sellers SET last_active_at=? WHERE telegram_id=?`, time.Now().UTC(), sellerID)
	return wrapStorage(err)
}

func (r *sellerRepository) UpdateIdentity(ctx context.Context, sellerID, username, firstName string) error {
	_, err := r.storage.db.ExecContext(ctx,
		`UPDATE sellers SET username=?, first_name=? WHERE telegram_id=?`,
		username, firstName, sellerID)
	return wrapStorage(err)
}

// --- NotificationRepository implementation ---

func (r *notificationRepository) Record(ctx context.Context, orderID int64, sellerID string, messageID int64) error {
	_, err := r.storage.db.ExecContext(ctx,
		`INSERT INTO order_notifications (order_id, seller_id, message_id, notified_at) VALUES (?, ?, ?, ?)`,
		orderID, sellerID, messageID, time.Now().UTC())
	return wrapStorage(err)
}

func (r *notificationRepository) ListByOrder(ctx context.Context, orderID int64) ([]model.Notification, error) {
	rows, err := r.storage.db.QueryContext(ctx,
		`SELECT id, order_id, seller_id, message_id, notified_at
         FROM order_notifications WHERE order_id=? ORDER BY id`, orderID)
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

func (s *Storage) withinTransaction(ctx context.Context, fn func(*sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	err = fn(tx)
	return err
}

// HealthCheck verifies database connectivity.
func (s *Storage) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.db.PingContext(ctx)
}
