package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/example/ec-order-core/internal/domain/coupon"
	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/domain/product"
	"github.com/example/ec-order-core/internal/infrastructure/store"
)

// MockStore is an in-memory implementation of TxRunner, OrderStore and
// ProductStore for testing. Transactions run single-writer under one mutex
// (the in-memory stand-in for serializable isolation) and stage all
// mutations on copies, so a failed attempt leaves the backing maps
// untouched, matching the rollback guarantees of the real store.
type MockStore struct {
	mu          sync.Mutex
	Products    map[string]*product.Product
	Coupons     map[string]*coupon.Coupon // keyed by code
	Redemptions map[string]int            // userID|couponID -> count
	Orders      map[string]*order.Order

	// For tracking calls and forcing failures in tests
	CommitCalls   int
	RollbackCalls int
	BeginErr      error
	InsertErr     error
}

func NewMockStore() *MockStore {
	return &MockStore{
		Products:    make(map[string]*product.Product),
		Coupons:     make(map[string]*coupon.Coupon),
		Redemptions: make(map[string]int),
		Orders:      make(map[string]*order.Order),
	}
}

func redemptionKey(userID, couponID string) string {
	return userID + "|" + couponID
}

// WithinTx runs fn against staged copies and applies them only on success.
func (m *MockStore) WithinTx(ctx context.Context, fn func(tx store.Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.BeginErr != nil {
		return m.BeginErr
	}

	tx := &mockTx{
		store:       m,
		products:    make(map[string]*product.Product, len(m.Products)),
		coupons:     make(map[string]*coupon.Coupon, len(m.Coupons)),
		redemptions: make(map[string]int, len(m.Redemptions)),
	}
	for id, p := range m.Products {
		cp := *p
		tx.products[id] = &cp
	}
	for code, c := range m.Coupons {
		cc := *c
		tx.coupons[code] = &cc
	}
	for k, v := range m.Redemptions {
		tx.redemptions[k] = v
	}

	if err := fn(tx); err != nil {
		m.RollbackCalls++
		return err
	}

	m.Products = tx.products
	m.Coupons = tx.coupons
	m.Redemptions = tx.redemptions
	for _, o := range tx.orders {
		m.Orders[o.ID] = o
	}
	m.CommitCalls++
	return nil
}

type mockTx struct {
	store       *MockStore
	products    map[string]*product.Product
	coupons     map[string]*coupon.Coupon
	redemptions map[string]int
	orders      []*order.Order
}

func (t *mockTx) ProductByID(ctx context.Context, id string) (*product.Product, error) {
	p, ok := t.products[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", product.ErrProductNotFound, id)
	}
	cp := *p
	return &cp, nil
}

func (t *mockTx) DeductStock(ctx context.Context, productID string, quantity int) error {
	p, ok := t.products[productID]
	if !ok {
		return fmt.Errorf("%w: %s", product.ErrProductNotFound, productID)
	}
	if p.Stock < quantity {
		return fmt.Errorf("%w: product %s", product.ErrInsufficientStock, productID)
	}
	p.Stock -= quantity
	p.Sold += quantity
	return nil
}

func (t *mockTx) CouponByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	c, ok := t.coupons[code]
	if !ok {
		return nil, fmt.Errorf("%w: %s", coupon.ErrCouponNotFound, code)
	}
	cc := *c
	return &cc, nil
}

func (t *mockTx) UserRedemptions(ctx context.Context, userID, couponID string) (int, error) {
	return t.redemptions[redemptionKey(userID, couponID)], nil
}

func (t *mockTx) RedeemCoupon(ctx context.Context, c *coupon.Coupon, userID string) error {
	stored, ok := t.coupons[c.Code]
	if !ok {
		return fmt.Errorf("%w: %s", coupon.ErrCouponNotFound, c.Code)
	}
	if stored.TotalUsageLimit > 0 && stored.UsedCount >= stored.TotalUsageLimit {
		return coupon.ErrCouponLimitReached
	}
	key := redemptionKey(userID, stored.ID)
	if stored.MaxUsagePerUser > 0 && t.redemptions[key] >= stored.MaxUsagePerUser {
		return coupon.ErrCouponPerUserLimitReached
	}
	stored.UsedCount++
	t.redemptions[key]++
	return nil
}

func (t *mockTx) InsertOrder(ctx context.Context, o *order.Order) error {
	if t.store.InsertErr != nil {
		return t.store.InsertErr
	}
	cp := *o
	t.orders = append(t.orders, &cp)
	return nil
}

// OrderStore implementation

func (m *MockStore) OrderByID(ctx context.Context, id string) (*order.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return nil, order.ErrOrderNotFound
	}
	cp := *o
	return &cp, nil
}

func (m *MockStore) ListOrders(ctx context.Context, filter store.OrderFilter) ([]*order.Order, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*order.Order
	for _, o := range m.Orders {
		if filter.UserID != "" && o.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.PaymentStatus != "" && o.PaymentStatus != filter.PaymentStatus {
			continue
		}
		if !filter.From.IsZero() && o.CreatedAt.Before(filter.From) {
			continue
		}
		if !filter.To.IsZero() && o.CreatedAt.After(filter.To) {
			continue
		}
		cp := *o
		matched = append(matched, &cp)
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := len(matched)
	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * limit
	if start > total {
		start = total
	}
	end := start + limit
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (m *MockStore) UpdateStatus(ctx context.Context, id string, from, to order.Status) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[id]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.Status != from {
		return fmt.Errorf("%w: order %s left %s concurrently", order.ErrInvalidTransition, id, from)
	}
	o.Status = to
	o.UpdatedAt = time.Now()
	return nil
}

func (m *MockStore) AttachGatewayOrder(ctx context.Context, orderID, gatewayOrderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	o.GatewayOrderID = gatewayOrderID
	o.UpdatedAt = time.Now()
	return nil
}

func (m *MockStore) CompletePayment(ctx context.Context, gatewayOrderID, gatewayPaymentID string) (*order.Order, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.Orders {
		if o.GatewayOrderID != gatewayOrderID {
			continue
		}
		if o.PaymentStatus == order.PaymentCompleted {
			cp := *o
			return &cp, false, nil
		}
		o.PaymentStatus = order.PaymentCompleted
		o.Status = order.StatusProcessing
		o.GatewayPaymentID = gatewayPaymentID
		o.UpdatedAt = time.Now()
		cp := *o
		return &cp, true, nil
	}
	return nil, false, order.ErrOrderNotFound
}

func (m *MockStore) FailPayment(ctx context.Context, orderID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.Orders[orderID]
	if !ok {
		return order.ErrOrderNotFound
	}
	if o.PaymentStatus == order.PaymentCompleted {
		return nil
	}
	o.PaymentStatus = order.PaymentFailed
	o.UpdatedAt = time.Now()
	return nil
}

// ProductStore implementation

func (m *MockStore) ProductsByIDs(ctx context.Context, ids []string) (map[string]*product.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	projections := make(map[string]*product.Product, len(ids))
	for _, id := range ids {
		if p, ok := m.Products[id]; ok {
			cp := *p
			projections[id] = &cp
		}
	}
	return projections, nil
}
