package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/domain/product"
)

const orderColumns = `id, user_id, items, total_price, discount, final_price,
	COALESCE(coupon_id, ''), status, payment_status,
	COALESCE(gateway_order_id, ''), COALESCE(gateway_payment_id, ''),
	shipping_address, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*order.Order, error) {
	var o order.Order
	var items, address []byte
	err := row.Scan(&o.ID, &o.UserID, &items, &o.TotalPrice, &o.Discount, &o.FinalPrice,
		&o.CouponID, &o.Status, &o.PaymentStatus,
		&o.GatewayOrderID, &o.GatewayPaymentID,
		&address, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(items, &o.Items); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(address, &o.ShippingAddress); err != nil {
		return nil, err
	}
	return &o, nil
}

func (s *PostgresStore) OrderByID(ctx context.Context, id string) (*order.Order, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`SELECT %s FROM orders WHERE id = $1`, orderColumns), id)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, order.ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (s *PostgresStore) ListOrders(ctx context.Context, filter OrderFilter) ([]*order.Order, int, error) {
	where := "TRUE"
	args := []any{}
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.UserID != "" {
		where += " AND user_id = " + next(filter.UserID)
	}
	if filter.Status != "" {
		where += " AND status = " + next(filter.Status)
	}
	if filter.PaymentStatus != "" {
		where += " AND payment_status = " + next(filter.PaymentStatus)
	}
	if !filter.From.IsZero() {
		where += " AND created_at >= " + next(filter.From)
	}
	if !filter.To.IsZero() {
		where += " AND created_at <= " + next(filter.To)
	}

	var total int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM orders WHERE "+where, args...,
	).Scan(&total)
	if err != nil {
		return nil, 0, err
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf(`SELECT %s FROM orders WHERE %s ORDER BY created_at DESC LIMIT %s OFFSET %s`,
		orderColumns, where, next(limit), next((page-1)*limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var orders []*order.Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, 0, err
		}
		orders = append(orders, o)
	}
	return orders, total, rows.Err()
}

// UpdateStatus is a compare-and-set: the update only lands if the order is
// still in the expected source status.
func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		to, time.Now(), id, from,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		if _, err := s.OrderByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: order %s left %s concurrently", order.ErrInvalidTransition, id, from)
	}
	return nil
}

func (s *PostgresStore) AttachGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET gateway_order_id = $1, updated_at = $2 WHERE id = $3`,
		gatewayOrderID, time.Now(), orderID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return order.ErrOrderNotFound
	}
	return nil
}

// CompletePayment flips the order to paid/processing keyed on the gateway
// order id. Re-running with the same inputs affects zero rows and reports
// transitioned=false, which keeps verification idempotent.
func (s *PostgresStore) CompletePayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*order.Order, bool, error) {
	row := s.db.QueryRowContext(ctx,
		fmt.Sprintf(`UPDATE orders
		 SET payment_status = $1, status = $2, gateway_payment_id = $3, updated_at = $4
		 WHERE gateway_order_id = $5 AND payment_status <> $1
		 RETURNING %s`, orderColumns),
		order.PaymentCompleted, order.StatusProcessing, gatewayPaymentID, time.Now(), gatewayOrderID,
	)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		// Either already completed (idempotent re-run) or unknown gateway id.
		row = s.db.QueryRowContext(ctx,
			fmt.Sprintf(`SELECT %s FROM orders WHERE gateway_order_id = $1`, orderColumns),
			gatewayOrderID)
		o, err = scanOrder(row)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, order.ErrOrderNotFound
		}
		if err != nil {
			return nil, false, err
		}
		return o, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return o, true, nil
}

func (s *PostgresStore) FailPayment(ctx context.Context, orderID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE orders SET payment_status = $1, updated_at = $2
		 WHERE id = $3 AND payment_status <> $4`,
		order.PaymentFailed, time.Now(), orderID, order.PaymentCompleted,
	)
	if err != nil {
		return err
	}
	// Zero affected rows means the order is unknown or already completed;
	// a completed payment is never demoted by a later failed attempt.
	if affected, err := res.RowsAffected(); err != nil {
		return err
	} else if affected == 0 {
		if _, err := s.OrderByID(ctx, orderID); err != nil {
			return err
		}
	}
	return nil
}

func (s *PostgresStore) ProductsByIDs(ctx context.Context, ids []string) (map[string]*product.Product, error) {
	projections := make(map[string]*product.Product, len(ids))
	if len(ids) == 0 {
		return projections, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, price, discounted_price, stock, sold
		 FROM products WHERE id = ANY($1)`,
		pq.Array(ids),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p product.Product
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.DiscountedPrice, &p.Stock, &p.Sold); err != nil {
			return nil, err
		}
		projections[p.ID] = &p
	}
	return projections, rows.Err()
}
