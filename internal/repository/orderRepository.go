package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/RaikyD/order-lifecycle-service/internal/domain"
	"github.com/RaikyD/order-lifecycle-service/internal/logger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const uniqueViolation = "23505"

const orderColumns = `id, order_code, user_id, owner_id, items, subtotal, shipping_fee,
	voucher_discount, payment_discount, final_total, status, payment_method,
	payment_id, cancel_reason, expires_at, created_at, updated_at`

// OrderRepository stores orders in PostgreSQL, items as jsonb.
type OrderRepository struct {
	pool *pgxpool.Pool
}

func NewOrderRepository(p *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: p}
}

// InsertMany reserves the order code and writes the whole checkout in one
// transaction.
func (p *OrderRepository) InsertMany(ctx context.Context, orders []domain.Order) error {
	if len(orders) == 0 {
		return nil
	}

	tx, err := p.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if tx != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// the checkouts row is the lock on the order code: a concurrent insert of
	// the same code blocks on it and fails with a unique violation
	batch := &pgx.Batch{}
	batch.Queue(`INSERT INTO checkouts (order_code, user_id, created_at) VALUES ($1, $2, $3)`,
		orders[0].OrderCode, orders[0].UserID, orders[0].CreatedAt)
	for _, o := range orders {
		items, err := json.Marshal(o.Items)
		if err != nil {
			return fmt.Errorf("marshal items: %w", err)
		}
		batch.Queue(`
			INSERT INTO orders (`+orderColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		`,
			o.ID,
			o.OrderCode,
			o.UserID,
			o.OwnerID,
			items,
			o.Subtotal,
			o.ShippingFee,
			o.VoucherDiscount,
			o.PaymentDiscount,
			o.FinalTotal,
			string(o.Status),
			o.PaymentMethod,
			o.PaymentID,
			o.CancelReason,
			o.ExpiresAt,
			o.CreatedAt,
			o.UpdatedAt,
		)
	}

	br := tx.SendBatch(ctx, batch)
	if err = br.Close(); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateOrderCode, orders[0].OrderCode)
		}
		logger.Warn("insert orders batch failed", "orderCode", orders[0].OrderCode, "err", err)
		return err
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	tx = nil
	return nil
}

func (p *OrderRepository) FindByID(ctx context.Context, id string) (*domain.Order, error) {
	row := p.pool.QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrOrderNotFound, id)
	}
	return o, err
}

func (p *OrderRepository) Find(ctx context.Context, filter domain.Filter) ([]domain.Order, error) {
	where, args := sqlFilter(filter)
	query := `SELECT ` + orderColumns + ` FROM orders` + where + ` ORDER BY created_at, id`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := p.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *o)
	}
	return out, rows.Err()
}

func (p *OrderRepository) Transition(ctx context.Context, id string, from []domain.Status, to domain.Status, patch domain.Patch) (*domain.Order, error) {
	row := p.pool.QueryRow(ctx, `
		UPDATE orders SET
			status = $3,
			payment_id = COALESCE(NULLIF($4, ''), payment_id),
			payment_method = COALESCE(NULLIF($5, ''), payment_method),
			cancel_reason = COALESCE(NULLIF($6, ''), cancel_reason),
			updated_at = $7
		WHERE id = $1 AND status = ANY($2)
		RETURNING `+orderColumns,
		id,
		domain.StatusStrings(from),
		string(to),
		patch.PaymentID,
		patch.PaymentMethod,
		patch.CancelReason,
		time.Now().UTC(),
	)

	o, err := scanOrder(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrStatusConflict, id)
	}
	return o, err
}

func sqlFilter(f domain.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if len(f.IDs) > 0 {
		add("id = ANY($%d)", f.IDs)
	}
	if f.OrderCode != "" {
		add("order_code = $%d", f.OrderCode)
	}
	if f.UserID != "" {
		add("user_id = $%d", f.UserID)
	}
	if f.OwnerID != "" {
		add("owner_id = $%d", f.OwnerID)
	}
	if len(f.Statuses) > 0 {
		add("status = ANY($%d)", domain.StatusStrings(f.Statuses))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	var (
		o      domain.Order
		items  []byte
		status string
	)
	err := row.Scan(
		&o.ID,
		&o.OrderCode,
		&o.UserID,
		&o.OwnerID,
		&items,
		&o.Subtotal,
		&o.ShippingFee,
		&o.VoucherDiscount,
		&o.PaymentDiscount,
		&o.FinalTotal,
		&status,
		&o.PaymentMethod,
		&o.PaymentID,
		&o.CancelReason,
		&o.ExpiresAt,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, fmt.Errorf("unmarshal items of order %s: %w", o.ID, err)
	}
	o.Status = domain.Status(status)
	return &o, nil
}
