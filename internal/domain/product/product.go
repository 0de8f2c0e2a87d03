package product

import "errors"

var (
	ErrProductNotFound   = errors.New("product not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// Product carries the stock ledger counters alongside pricing.
// Stock never goes negative; Sold only ever grows.
type Product struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Price           int64  `json:"price"`            // minor units
	DiscountedPrice int64  `json:"discounted_price"` // 0 means no discount set
	Stock           int    `json:"stock"`
	Sold            int    `json:"sold"`
}

// HasStock reports whether quantity units can currently be deducted.
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}
