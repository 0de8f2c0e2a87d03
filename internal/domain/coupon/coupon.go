package coupon

import (
	"errors"
	"time"
)

type Type string

const (
	TypeFlat       Type = "flat"
	TypePercentage Type = "percentage"
)

var (
	ErrCouponNotFound            = errors.New("coupon not found")
	ErrCouponInactive            = errors.New("coupon is not active")
	ErrCouponNotYetValid         = errors.New("coupon is not yet valid")
	ErrCouponExpired             = errors.New("coupon has expired")
	ErrCouponLimitReached        = errors.New("coupon usage limit reached")
	ErrCouponMinOrderNotMet      = errors.New("order total below coupon minimum")
	ErrCouponPerUserLimitReached = errors.New("coupon usage limit for this user reached")
)

// Coupon entitles the bearer to a flat or percentage discount within a
// validity window, subject to global and per-user usage limits.
type Coupon struct {
	ID              string    `json:"id"`
	Code            string    `json:"code"`
	Type            Type      `json:"type"`
	DiscountValue   int64     `json:"discount_value"` // minor units for flat, percent for percentage
	MinOrderValue   int64     `json:"min_order_value"`
	MaxUsagePerUser int       `json:"max_usage_per_user"`
	TotalUsageLimit int       `json:"total_usage_limit"` // 0 means unlimited
	UsedCount       int       `json:"used_count"`
	StartDate       time.Time `json:"start_date"`
	ExpiryDate      time.Time `json:"expiry_date"`
	IsActive        bool      `json:"is_active"`
}

// Validate applies the stateless redemption rules in order and returns the
// first failing one. priorUses is the caller's committed redemption count for
// this coupon, maintained transactionally by the store.
func Validate(c *Coupon, totalPrice int64, now time.Time, priorUses int) error {
	switch {
	case !c.IsActive:
		return ErrCouponInactive
	case now.Before(c.StartDate):
		return ErrCouponNotYetValid
	case now.After(c.ExpiryDate):
		return ErrCouponExpired
	case c.TotalUsageLimit > 0 && c.UsedCount >= c.TotalUsageLimit:
		return ErrCouponLimitReached
	case totalPrice < c.MinOrderValue:
		return ErrCouponMinOrderNotMet
	case c.MaxUsagePerUser > 0 && priorUses >= c.MaxUsagePerUser:
		return ErrCouponPerUserLimitReached
	}
	return nil
}

// Discount computes the discount amount for the given order total,
// capped so the final price never goes negative.
func Discount(c *Coupon, totalPrice int64) int64 {
	var amount int64
	switch c.Type {
	case TypePercentage:
		amount = totalPrice * c.DiscountValue / 100
	default:
		amount = c.DiscountValue
	}
	if amount > totalPrice {
		amount = totalPrice
	}
	if amount < 0 {
		amount = 0
	}
	return amount
}
