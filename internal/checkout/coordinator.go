// Package checkout owns the order-placement transaction: stock deduction,
// coupon redemption and order insertion commit or roll back as one unit.
package checkout

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/example/ec-order-core/internal/command"
	"github.com/example/ec-order-core/internal/domain/coupon"
	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/events"
	"github.com/example/ec-order-core/internal/infrastructure/kafka"
	"github.com/example/ec-order-core/internal/infrastructure/store"
	"github.com/example/ec-order-core/internal/pricing"
)

type Coordinator struct {
	store     store.TxRunner
	publisher kafka.Publisher
	now       func() time.Time
}

func NewCoordinator(txRunner store.TxRunner, publisher kafka.Publisher) *Coordinator {
	return &Coordinator{
		store:     txRunner,
		publisher: publisher,
		now:       time.Now,
	}
}

// PlaceOrder converts a validated command into a committed order. On any
// error the enclosing transaction rolls back, so a failed attempt leaves
// stock counters, coupon counters and the orders table untouched.
func (c *Coordinator) PlaceOrder(ctx context.Context, cmd command.PlaceOrder) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	var placed *order.Order
	err := c.store.WithinTx(ctx, func(tx store.Tx) error {
		// Serializable retries re-run this closure, so it must not carry
		// state across attempts.
		now := c.now()

		items := make([]order.Item, 0, len(cmd.Items))
		for _, line := range cmd.Items {
			p, err := tx.ProductByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if err := tx.DeductStock(ctx, p.ID, line.Quantity); err != nil {
				return err
			}
			// Unit price is snapshotted here; later product edits must not
			// affect this order.
			items = append(items, order.Item{
				ProductID: p.ID,
				Name:      p.Name,
				Quantity:  line.Quantity,
				Price:     pricing.UnitPrice(p),
				Size:      line.Size,
				Color:     line.Color,
			})
		}
		totalPrice := pricing.Total(items)

		var discount int64
		var couponID string
		if cmd.CouponCode != "" {
			cp, err := tx.CouponByCode(ctx, cmd.CouponCode)
			if err != nil {
				return err
			}
			priorUses, err := tx.UserRedemptions(ctx, cmd.UserID, cp.ID)
			if err != nil {
				return err
			}
			if err := coupon.Validate(cp, totalPrice, now, priorUses); err != nil {
				return err
			}
			if err := tx.RedeemCoupon(ctx, cp, cmd.UserID); err != nil {
				return err
			}
			discount = coupon.Discount(cp, totalPrice)
			couponID = cp.ID
		}

		o := &order.Order{
			ID:              uuid.New().String(),
			UserID:          cmd.UserID,
			Items:           items,
			TotalPrice:      totalPrice,
			Discount:        discount,
			FinalPrice:      pricing.Final(totalPrice, discount),
			CouponID:        couponID,
			Status:          order.StatusPending,
			PaymentStatus:   order.PaymentPending,
			ShippingAddress: cmd.ShippingAddress,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if c.publisher != nil {
		c.publisher.Publish(ctx, events.TypeOrderPlaced, placed.ID, events.OrderPlaced{
			OrderID:    placed.ID,
			UserID:     placed.UserID,
			UserEmail:  cmd.UserEmail,
			TotalPrice: placed.TotalPrice,
			Discount:   placed.Discount,
			FinalPrice: placed.FinalPrice,
			ItemCount:  placed.Quantity(),
		})
	}
	return placed, nil
}
