package store

import (
	"context"
	"time"

	"github.com/example/ec-order-core/internal/domain/coupon"
	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/domain/product"
)

// Tx is the transaction-scoped handle passed into the checkout coordinator.
// Every mutation made through it commits or rolls back as one unit.
type Tx interface {
	ProductByID(ctx context.Context, id string) (*product.Product, error)
	// DeductStock decrements stock and increments sold by quantity in a
	// single conditional round trip; returns product.ErrInsufficientStock
	// when fewer than quantity units remain.
	DeductStock(ctx context.Context, productID string, quantity int) error
	CouponByCode(ctx context.Context, code string) (*coupon.Coupon, error)
	// UserRedemptions returns the caller's committed redemption count for the coupon.
	UserRedemptions(ctx context.Context, userID, couponID string) (int, error)
	// RedeemCoupon increments used_count, guarded by totalUsageLimit, and
	// bumps the per-user counter, guarded by maxUsagePerUser. Returns
	// coupon.ErrCouponLimitReached / coupon.ErrCouponPerUserLimitReached
	// when a concurrent redemption got there first.
	RedeemCoupon(ctx context.Context, c *coupon.Coupon, userID string) error
	InsertOrder(ctx context.Context, o *order.Order) error
}

// TxRunner begins a transaction, invokes fn with its scoped handle, and
// commits on nil / rolls back on error. Implementations retry fn on
// serialization conflicts, so fn must be safe to re-run.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
}

// OrderFilter narrows the order listing.
type OrderFilter struct {
	UserID        string
	Status        order.Status
	PaymentStatus order.PaymentStatus
	From          time.Time
	To            time.Time
	Page          int
	Limit         int
}

// OrderStore covers the single-document order paths that run outside any
// multi-entity transaction: reads and conditional status updates.
type OrderStore interface {
	OrderByID(ctx context.Context, id string) (*order.Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]*order.Order, int, error)
	// UpdateStatus performs a compare-and-set on the status column; returns
	// order.ErrInvalidTransition if the order moved off `from` concurrently.
	UpdateStatus(ctx context.Context, id string, from, to order.Status) error
	AttachGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) error
	// CompletePayment marks the order paid and moves it to processing, keyed
	// on the gateway order id. Returns the order and whether this call
	// transitioned it (false on an idempotent re-run).
	CompletePayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*order.Order, bool, error)
	FailPayment(ctx context.Context, orderID string) error
}

// ProductStore is the read contract the query layer uses for projections.
type ProductStore interface {
	ProductsByIDs(ctx context.Context, ids []string) (map[string]*product.Product, error)
}
