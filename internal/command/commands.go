package command

import (
	"fmt"

	"github.com/example/ec-order-core/internal/domain/order"
)

// Commands are the typed request bodies accepted at the API boundary. Each
// is validated before any transaction begins.

type OrderLine struct {
	ProductID string `json:"product"`
	Quantity  int    `json:"quantity"`
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type PlaceOrder struct {
	UserID          string                `json:"-"`
	UserEmail       string                `json:"-"`
	Items           []OrderLine           `json:"items"`
	ShippingAddress order.ShippingAddress `json:"shipping_address"`
	CouponCode      string                `json:"coupon_code,omitempty"`
}

func (c PlaceOrder) Validate() error {
	if len(c.Items) == 0 {
		return order.ErrEmptyOrder
	}
	for _, line := range c.Items {
		if line.ProductID == "" {
			return fmt.Errorf("%w: missing product id", order.ErrInvalidQuantity)
		}
		if line.Quantity <= 0 {
			return fmt.Errorf("%w: product %s", order.ErrInvalidQuantity, line.ProductID)
		}
	}
	if c.ShippingAddress.Empty() {
		return order.ErrShippingAddressMissing
	}
	return nil
}

type UpdateOrderStatus struct {
	OrderID string       `json:"-"`
	Status  order.Status `json:"status"`
}

func (c UpdateOrderStatus) Validate() error {
	if !order.ValidStatus(c.Status) {
		return fmt.Errorf("%w: %q", order.ErrInvalidStatus, c.Status)
	}
	return nil
}

type CreatePayment struct {
	UserID  string `json:"-"`
	Admin   bool   `json:"-"`
	OrderID string `json:"order_id"`
}

type VerifyPayment struct {
	UserEmail        string `json:"-"`
	OrderID          string `json:"order_id,omitempty"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}
