package checkout

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/example/ec-order-core/internal/command"
	"github.com/example/ec-order-core/internal/domain/coupon"
	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/domain/product"
	"github.com/example/ec-order-core/internal/events"
	"github.com/example/ec-order-core/internal/infrastructure/store/mocks"
)

type publishedEvent struct {
	EventType string
	OrderID   string
	Payload   any
}

type fakePublisher struct {
	mu     sync.Mutex
	Events []publishedEvent
}

func (f *fakePublisher) Publish(ctx context.Context, eventType, orderID string, payload any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Events = append(f.Events, publishedEvent{EventType: eventType, OrderID: orderID, Payload: payload})
}

func newTestCoordinator() (*Coordinator, *mocks.MockStore, *fakePublisher) {
	st := mocks.NewMockStore()
	pub := &fakePublisher{}
	return NewCoordinator(st, pub), st, pub
}

func seedProduct(st *mocks.MockStore, id string, price, discounted int64, stock int) {
	st.Products[id] = &product.Product{
		ID:              id,
		Name:            "Product " + id,
		Price:           price,
		DiscountedPrice: discounted,
		Stock:           stock,
	}
}

func seedCoupon(st *mocks.MockStore, c *coupon.Coupon) {
	st.Coupons[c.Code] = c
}

func percentCoupon(code string, percent int64) *coupon.Coupon {
	return &coupon.Coupon{
		ID:            "coupon-" + code,
		Code:          code,
		Type:          coupon.TypePercentage,
		DiscountValue: percent,
		StartDate:     time.Now().Add(-time.Hour),
		ExpiryDate:    time.Now().Add(time.Hour),
		IsActive:      true,
	}
}

func placeCmd(items ...command.OrderLine) command.PlaceOrder {
	return command.PlaceOrder{
		UserID:    "user-1",
		UserEmail: "user-1@example.com",
		Items:     items,
		ShippingAddress: order.ShippingAddress{
			Line1:      "1 MG Road",
			City:       "Bengaluru",
			State:      "KA",
			PostalCode: "560001",
			Country:    "IN",
		},
	}
}

// ============================================
// Placement Tests
// ============================================

func TestPlaceOrder_Success(t *testing.T) {
	c, st, pub := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 10000, 0, 5)
	seedProduct(st, "p2", 30000, 25000, 2)

	placed, err := c.PlaceOrder(ctx, placeCmd(
		command.OrderLine{ProductID: "p1", Quantity: 2, Size: "M"},
		command.OrderLine{ProductID: "p2", Quantity: 1, Color: "blue"},
	))

	require.NoError(t, err)
	assert.NotEmpty(t, placed.ID)
	assert.Equal(t, "user-1", placed.UserID)
	assert.Equal(t, int64(45000), placed.TotalPrice) // 2*10000 + 1*25000 (discounted)
	assert.Equal(t, int64(0), placed.Discount)
	assert.Equal(t, int64(45000), placed.FinalPrice)
	assert.Equal(t, order.StatusPending, placed.Status)
	assert.Equal(t, order.PaymentPending, placed.PaymentStatus)
	assert.Equal(t, "M", placed.Items[0].Size)
	assert.Equal(t, "blue", placed.Items[1].Color)

	// Stock deducted, sold incremented
	assert.Equal(t, 3, st.Products["p1"].Stock)
	assert.Equal(t, 2, st.Products["p1"].Sold)
	assert.Equal(t, 1, st.Products["p2"].Stock)
	assert.Equal(t, 1, st.Products["p2"].Sold)

	// Order persisted and event published
	assert.Equal(t, 1, st.CommitCalls)
	assert.Contains(t, st.Orders, placed.ID)
	require.Len(t, pub.Events, 1)
	assert.Equal(t, events.TypeOrderPlaced, pub.Events[0].EventType)
	assert.Equal(t, placed.ID, pub.Events[0].OrderID)
}

func TestPlaceOrder_PercentageCoupon(t *testing.T) {
	c, st, _ := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 100000, 0, 10)
	cp := percentCoupon("SAVE20", 20)
	cp.MinOrderValue = 50000
	seedCoupon(st, cp)

	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
	cmd.CouponCode = "SAVE20"
	placed, err := c.PlaceOrder(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, int64(100000), placed.TotalPrice)
	assert.Equal(t, int64(20000), placed.Discount)
	assert.Equal(t, int64(80000), placed.FinalPrice)
	assert.Equal(t, cp.ID, placed.CouponID)
	assert.Equal(t, 1, st.Coupons["SAVE20"].UsedCount)
}

func TestPlaceOrder_FlatCoupon(t *testing.T) {
	c, st, _ := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 10000, 0, 10)
	cp := percentCoupon("FLAT50", 0)
	cp.Type = coupon.TypeFlat
	cp.DiscountValue = 5000
	seedCoupon(st, cp)

	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
	cmd.CouponCode = "FLAT50"
	placed, err := c.PlaceOrder(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, int64(5000), placed.Discount)
	assert.Equal(t, int64(5000), placed.FinalPrice)
}

func TestPlaceOrder_FlatCouponCappedAtTotal(t *testing.T) {
	c, st, _ := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 3000, 0, 10)
	cp := percentCoupon("BIGFLAT", 0)
	cp.Type = coupon.TypeFlat
	cp.DiscountValue = 5000
	seedCoupon(st, cp)

	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
	cmd.CouponCode = "BIGFLAT"
	placed, err := c.PlaceOrder(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, int64(3000), placed.Discount)
	assert.Equal(t, int64(0), placed.FinalPrice)
}

func TestPlaceOrder_PriceSnapshotSurvivesProductEdit(t *testing.T) {
	c, st, _ := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 10000, 0, 10)

	placed, err := c.PlaceOrder(ctx, placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1}))
	require.NoError(t, err)

	// A later price edit must not touch the committed order
	st.Products["p1"].Price = 99999
	stored, err := st.OrderByID(ctx, placed.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(10000), stored.Items[0].Price)
	assert.Equal(t, int64(10000), stored.FinalPrice)
}

// ============================================
// Validation Failures
// ============================================

func TestPlaceOrder_EmptyItems(t *testing.T) {
	c, st, _ := newTestCoordinator()
	placed, err := c.PlaceOrder(context.Background(), placeCmd())

	assert.ErrorIs(t, err, order.ErrEmptyOrder)
	assert.Nil(t, placed)
	assert.Equal(t, 0, st.CommitCalls)
}

func TestPlaceOrder_MissingShippingAddress(t *testing.T) {
	c, st, _ := newTestCoordinator()
	seedProduct(st, "p1", 10000, 0, 10)
	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
	cmd.ShippingAddress = order.ShippingAddress{}

	_, err := c.PlaceOrder(context.Background(), cmd)
	assert.ErrorIs(t, err, order.ErrShippingAddressMissing)
}

func TestPlaceOrder_NonPositiveQuantity(t *testing.T) {
	c, st, _ := newTestCoordinator()
	seedProduct(st, "p1", 10000, 0, 10)

	_, err := c.PlaceOrder(context.Background(), placeCmd(command.OrderLine{ProductID: "p1", Quantity: 0}))
	assert.ErrorIs(t, err, order.ErrInvalidQuantity)
	assert.Equal(t, 10, st.Products["p1"].Stock)
}

// ============================================
// Rollback Tests
// ============================================

func TestPlaceOrder_InsufficientStock_RollsBack(t *testing.T) {
	c, st, pub := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 10000, 0, 5)
	seedProduct(st, "p2", 20000, 0, 1)

	// First line succeeds inside the attempt, second exhausts stock
	placed, err := c.PlaceOrder(ctx, placeCmd(
		command.OrderLine{ProductID: "p1", Quantity: 2},
		command.OrderLine{ProductID: "p2", Quantity: 3},
	))

	assert.ErrorIs(t, err, product.ErrInsufficientStock)
	assert.Nil(t, placed)

	// No partial stock decrement survives the failed attempt
	assert.Equal(t, 5, st.Products["p1"].Stock)
	assert.Equal(t, 0, st.Products["p1"].Sold)
	assert.Equal(t, 1, st.Products["p2"].Stock)
	assert.Equal(t, 1, st.RollbackCalls)
	assert.Empty(t, st.Orders)
	assert.Empty(t, pub.Events)
}

func TestPlaceOrder_UnknownProduct_RollsBack(t *testing.T) {
	c, st, _ := newTestCoordinator()
	seedProduct(st, "p1", 10000, 0, 5)

	_, err := c.PlaceOrder(context.Background(), placeCmd(
		command.OrderLine{ProductID: "p1", Quantity: 1},
		command.OrderLine{ProductID: "ghost", Quantity: 1},
	))

	assert.ErrorIs(t, err, product.ErrProductNotFound)
	assert.Equal(t, 5, st.Products["p1"].Stock)
}

func TestPlaceOrder_CouponErrorRollsBackStock(t *testing.T) {
	c, st, _ := newTestCoordinator()
	seedProduct(st, "p1", 10000, 0, 5)
	cp := percentCoupon("MIN", 10)
	cp.MinOrderValue = 99999
	seedCoupon(st, cp)

	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
	cmd.CouponCode = "MIN"
	_, err := c.PlaceOrder(context.Background(), cmd)

	assert.ErrorIs(t, err, coupon.ErrCouponMinOrderNotMet)
	assert.Equal(t, 5, st.Products["p1"].Stock)
	assert.Equal(t, 0, st.Coupons["MIN"].UsedCount)
}

func TestPlaceOrder_UnknownCoupon(t *testing.T) {
	c, st, _ := newTestCoordinator()
	seedProduct(st, "p1", 10000, 0, 5)

	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
	cmd.CouponCode = "NOPE"
	_, err := c.PlaceOrder(context.Background(), cmd)

	assert.ErrorIs(t, err, coupon.ErrCouponNotFound)
	assert.Equal(t, 5, st.Products["p1"].Stock)
}

func TestPlaceOrder_InsertFailureRollsBackEverything(t *testing.T) {
	c, st, _ := newTestCoordinator()
	seedProduct(st, "p1", 10000, 0, 5)
	seedCoupon(st, percentCoupon("SAVE10", 10))
	st.InsertErr = errors.New("disk on fire")

	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
	cmd.CouponCode = "SAVE10"
	_, err := c.PlaceOrder(context.Background(), cmd)

	require.Error(t, err)
	assert.Equal(t, 5, st.Products["p1"].Stock)
	assert.Equal(t, 0, st.Coupons["SAVE10"].UsedCount)
	assert.Empty(t, st.Orders)
}

// ============================================
// Usage Limit Tests
// ============================================

func TestPlaceOrder_PerUserLimit(t *testing.T) {
	c, st, _ := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 10000, 0, 10)
	cp := percentCoupon("ONCE", 10)
	cp.MaxUsagePerUser = 1
	seedCoupon(st, cp)

	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
	cmd.CouponCode = "ONCE"

	_, err := c.PlaceOrder(ctx, cmd)
	require.NoError(t, err)

	_, err = c.PlaceOrder(ctx, cmd)
	assert.ErrorIs(t, err, coupon.ErrCouponPerUserLimitReached)

	// A different user may still redeem
	other := cmd
	other.UserID = "user-2"
	_, err = c.PlaceOrder(ctx, other)
	assert.NoError(t, err)
}

func TestPlaceOrder_TotalUsageLimit(t *testing.T) {
	c, st, _ := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 10000, 0, 10)
	cp := percentCoupon("RARE", 10)
	cp.TotalUsageLimit = 1
	seedCoupon(st, cp)

	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
	cmd.CouponCode = "RARE"
	_, err := c.PlaceOrder(ctx, cmd)
	require.NoError(t, err)

	other := cmd
	other.UserID = "user-2"
	_, err = c.PlaceOrder(ctx, other)
	assert.ErrorIs(t, err, coupon.ErrCouponLimitReached)
	assert.Equal(t, 1, st.Coupons["RARE"].UsedCount)
}

// ============================================
// Concurrency Tests
// ============================================

func TestPlaceOrder_ConcurrentStockExhaustion(t *testing.T) {
	c, st, _ := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 10000, 0, 2)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 2})
			cmd.UserID = "user-" + string(rune('a'+i))
			_, errs[i] = c.PlaceOrder(ctx, cmd)
		}(i)
	}
	wg.Wait()

	// Exactly one succeeds; the loser fails with insufficient stock
	if errs[0] == nil {
		assert.ErrorIs(t, errs[1], product.ErrInsufficientStock)
	} else {
		assert.NoError(t, errs[1])
		assert.ErrorIs(t, errs[0], product.ErrInsufficientStock)
	}
	assert.Equal(t, 0, st.Products["p1"].Stock)
	assert.Equal(t, 2, st.Products["p1"].Sold)
	assert.Len(t, st.Orders, 1)
}

func TestPlaceOrder_ConcurrentCouponExhaustion(t *testing.T) {
	c, st, _ := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 10000, 0, 10)
	cp := percentCoupon("LAST1", 10)
	cp.TotalUsageLimit = 1
	seedCoupon(st, cp)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 1})
			cmd.UserID = "user-" + string(rune('a'+i))
			cmd.CouponCode = "LAST1"
			_, errs[i] = c.PlaceOrder(ctx, cmd)
		}(i)
	}
	wg.Wait()

	var failures int
	for _, err := range errs {
		if err != nil {
			assert.ErrorIs(t, err, coupon.ErrCouponLimitReached)
			failures++
		}
	}
	assert.Equal(t, 1, failures)
	assert.Equal(t, 1, st.Coupons["LAST1"].UsedCount)

	// Exactly one committed order references the coupon
	var withCoupon int
	for _, o := range st.Orders {
		if o.CouponID == cp.ID {
			withCoupon++
		}
	}
	assert.Equal(t, 1, withCoupon)
}

// ============================================
// Invariant Checks
// ============================================

func TestPlaceOrder_PriceInvariant(t *testing.T) {
	c, st, _ := newTestCoordinator()
	ctx := context.Background()
	seedProduct(st, "p1", 7777, 0, 100)
	seedCoupon(st, percentCoupon("SAVE33", 33))

	cmd := placeCmd(command.OrderLine{ProductID: "p1", Quantity: 3})
	cmd.CouponCode = "SAVE33"
	placed, err := c.PlaceOrder(ctx, cmd)

	require.NoError(t, err)
	assert.Equal(t, placed.TotalPrice-placed.Discount, placed.FinalPrice)
	assert.GreaterOrEqual(t, placed.Discount, int64(0))
	assert.LessOrEqual(t, placed.Discount, placed.TotalPrice)
}
