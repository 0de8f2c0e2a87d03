// Package pricing holds the pure price arithmetic used by the checkout
// coordinator. All amounts are in minor currency units.
package pricing

import (
	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/domain/product"
)

// UnitPrice returns the price charged per unit at order time:
// the discounted price when one is set, the list price otherwise.
func UnitPrice(p *product.Product) int64 {
	if p.DiscountedPrice > 0 && p.DiscountedPrice < p.Price {
		return p.DiscountedPrice
	}
	return p.Price
}

// Total sums line totals over the snapshotted item prices.
func Total(items []order.Item) int64 {
	var total int64
	for _, item := range items {
		total += item.Price * int64(item.Quantity)
	}
	return total
}

// CapDiscount clamps a discount into [0, total].
func CapDiscount(discount, total int64) int64 {
	if discount < 0 {
		return 0
	}
	if discount > total {
		return total
	}
	return discount
}

// Final computes the payable amount after the (already capped) discount.
func Final(total, discount int64) int64 {
	return total - CapDiscount(discount, total)
}
