// Package events defines the envelopes published to Kafka after a state
// change has committed. They feed the notifier and are never part of the
// order transaction itself.
package events

import (
	"encoding/json"
	"time"
)

const (
	TypeOrderPlaced        = "OrderPlaced"
	TypeOrderStatusChanged = "OrderStatusChanged"
	TypePaymentCaptured    = "PaymentCaptured"
	TypePaymentFailed      = "PaymentFailed"
)

// Envelope wraps a typed payload for transport.
type Envelope struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OrderID    string          `json:"order_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

type OrderPlaced struct {
	OrderID    string `json:"order_id"`
	UserID     string `json:"user_id"`
	UserEmail  string `json:"user_email,omitempty"`
	TotalPrice int64  `json:"total_price"`
	Discount   int64  `json:"discount"`
	FinalPrice int64  `json:"final_price"`
	ItemCount  int    `json:"item_count"`
}

type OrderStatusChanged struct {
	OrderID string `json:"order_id"`
	UserID  string `json:"user_id"`
	From    string `json:"from"`
	To      string `json:"to"`
}

type PaymentCaptured struct {
	OrderID          string `json:"order_id"`
	UserID           string `json:"user_id"`
	UserEmail        string `json:"user_email,omitempty"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Amount           int64  `json:"amount"`
}

type PaymentFailed struct {
	OrderID string `json:"order_id"`
	Reason  string `json:"reason"`
}
