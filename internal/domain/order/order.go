package order

import (
	"errors"
	"fmt"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusShipped    Status = "shipped"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

var (
	ErrOrderNotFound          = errors.New("order not found")
	ErrEmptyOrder             = errors.New("order must have at least one item")
	ErrShippingAddressMissing = errors.New("shipping address is required")
	ErrInvalidQuantity        = errors.New("item quantity must be positive")
	ErrInvalidStatus          = errors.New("invalid order status")
	ErrInvalidTransition      = errors.New("invalid order status transition")
	ErrOrderDelivered         = errors.New("cannot cancel a delivered order")
	ErrOrderCancelled         = errors.New("order is already cancelled")
)

// validTransitions defines the allowed status transitions
var validTransitions = map[Status][]Status{
	StatusPending:    {StatusProcessing, StatusCancelled},
	StatusProcessing: {StatusShipped, StatusCancelled},
	StatusShipped:    {StatusDelivered, StatusCancelled},
	StatusDelivered:  {}, // terminal state
	StatusCancelled:  {}, // terminal state
}

// ValidStatus reports whether s is a known order status.
func ValidStatus(s Status) bool {
	_, ok := validTransitions[s]
	return ok
}

// CanTransitionTo checks if the order can transition to the target status
func (o *Order) CanTransitionTo(target Status) bool {
	allowed, exists := validTransitions[o.Status]
	if !exists {
		return false
	}
	for _, s := range allowed {
		if s == target {
			return true
		}
	}
	return false
}

// TransitionError returns an appropriate error for an invalid transition
func (o *Order) TransitionError(target Status) error {
	switch {
	case !ValidStatus(target):
		return fmt.Errorf("%w: %s", ErrInvalidStatus, target)
	case o.Status == StatusCancelled:
		return ErrOrderCancelled
	case o.Status == StatusDelivered && target == StatusCancelled:
		return ErrOrderDelivered
	default:
		return fmt.Errorf("%w: cannot transition from %s to %s", ErrInvalidTransition, o.Status, target)
	}
}

type Item struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	Price     int64  `json:"price"` // unit price snapshot, minor units
	Size      string `json:"size,omitempty"`
	Color     string `json:"color,omitempty"`
}

type ShippingAddress struct {
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postal_code"`
	Country    string `json:"country"`
}

// Empty reports whether the address is missing its required fields.
func (a ShippingAddress) Empty() bool {
	return a.Line1 == "" || a.City == "" || a.PostalCode == ""
}

// Order is the durable result of a committed placement transaction.
// TotalPrice, Discount, FinalPrice and Items are immutable after insert;
// only Status, PaymentStatus and the gateway ids mutate afterwards.
type Order struct {
	ID               string          `json:"id"`
	UserID           string          `json:"user_id"`
	Items            []Item          `json:"items"`
	TotalPrice       int64           `json:"total_price"`
	Discount         int64           `json:"discount"`
	FinalPrice       int64           `json:"final_price"`
	CouponID         string          `json:"coupon_id,omitempty"`
	Status           Status          `json:"status"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	GatewayOrderID   string          `json:"gateway_order_id,omitempty"`
	GatewayPaymentID string          `json:"gateway_payment_id,omitempty"`
	ShippingAddress  ShippingAddress `json:"shipping_address"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Quantity returns the total number of units across all items.
func (o *Order) Quantity() int {
	var n int
	for _, item := range o.Items {
		n += item.Quantity
	}
	return n
}
