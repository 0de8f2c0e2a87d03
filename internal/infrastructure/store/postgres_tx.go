package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/example/ec-order-core/internal/domain/coupon"
	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/domain/product"
)

// pgTx implements Tx over a live *sql.Tx.
type pgTx struct {
	tx *sql.Tx
}

func (t *pgTx) ProductByID(ctx context.Context, id string) (*product.Product, error) {
	var p product.Product
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, name, price, discounted_price, stock, sold
		 FROM products WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Name, &p.Price, &p.DiscountedPrice, &p.Stock, &p.Sold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", product.ErrProductNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// DeductStock is the atomic conditional decrement: the WHERE clause refuses
// the update when fewer than quantity units remain, so read-then-write races
// cannot oversell even below serializable isolation.
func (t *pgTx) DeductStock(ctx context.Context, productID string, quantity int) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE products
		 SET stock = stock - $1, sold = sold + $1
		 WHERE id = $2 AND stock >= $1`,
		quantity, productID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: product %s", product.ErrInsufficientStock, productID)
	}
	return nil
}

func (t *pgTx) CouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	var c coupon.Coupon
	err := t.tx.QueryRowContext(ctx,
		`SELECT id, code, type, discount_value, min_order_value, max_usage_per_user,
		        total_usage_limit, used_count, start_date, expiry_date, is_active
		 FROM coupons WHERE code = $1`,
		code,
	).Scan(&c.ID, &c.Code, &c.Type, &c.DiscountValue, &c.MinOrderValue, &c.MaxUsagePerUser,
		&c.TotalUsageLimit, &c.UsedCount, &c.StartDate, &c.ExpiryDate, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", coupon.ErrCouponNotFound, code)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) UserRedemptions(ctx context.Context, userID, couponID string) (int, error) {
	var count int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COALESCE(
		   (SELECT used_count FROM coupon_redemptions WHERE user_id = $1 AND coupon_id = $2), 0)`,
		userID, couponID,
	).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// RedeemCoupon bumps both counters with limit guards in the WHERE clauses,
// mirroring DeductStock: a concurrent redemption that exhausted a limit
// shows up as zero affected rows, not as a silent overshoot.
func (t *pgTx) RedeemCoupon(ctx context.Context, c *coupon.Coupon, userID string) error {
	res, err := t.tx.ExecContext(ctx,
		`UPDATE coupons
		 SET used_count = used_count + 1
		 WHERE id = $1 AND (total_usage_limit = 0 OR used_count < total_usage_limit)`,
		c.ID,
	)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return coupon.ErrCouponLimitReached
	}

	res, err = t.tx.ExecContext(ctx,
		`INSERT INTO coupon_redemptions (user_id, coupon_id, used_count)
		 VALUES ($1, $2, 1)
		 ON CONFLICT (user_id, coupon_id) DO UPDATE
		 SET used_count = coupon_redemptions.used_count + 1
		 WHERE $3 = 0 OR coupon_redemptions.used_count < $3`,
		userID, c.ID, c.MaxUsagePerUser,
	)
	if err != nil {
		return err
	}
	affected, err = res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return coupon.ErrCouponPerUserLimitReached
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *order.Order) error {
	items, err := json.Marshal(o.Items)
	if err != nil {
		return err
	}
	address, err := json.Marshal(o.ShippingAddress)
	if err != nil {
		return err
	}

	_, err = t.tx.ExecContext(ctx,
		`INSERT INTO orders
		   (id, user_id, items, total_price, discount, final_price, coupon_id,
		    status, payment_status, shipping_address, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10, $11, $12)`,
		o.ID, o.UserID, items, o.TotalPrice, o.Discount, o.FinalPrice, o.CouponID,
		o.Status, o.PaymentStatus, address, o.CreatedAt, o.UpdatedAt,
	)
	return err
}
