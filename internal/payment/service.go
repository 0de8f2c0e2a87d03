// Package payment reconciles gateway callbacks against order state. A
// payment attempt completes only on a valid server-side HMAC check; client
// success flags are never trusted.
package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"log"

	"github.com/example/ec-order-core/internal/command"
	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/events"
	"github.com/example/ec-order-core/internal/infrastructure/kafka"
	"github.com/example/ec-order-core/internal/infrastructure/store"
)

const Currency = "INR"

var (
	ErrSignatureMismatch  = errors.New("payment signature mismatch")
	ErrNotOrderOwner      = errors.New("order belongs to another user")
	ErrPaymentNotPending  = errors.New("order payment is not pending")
	ErrMissingGatewayData = errors.New("gateway order id and payment id are required")
)

type Service struct {
	gateway   Gateway
	orders    store.OrderStore
	secret    []byte
	publisher kafka.Publisher
}

func NewService(gateway Gateway, orders store.OrderStore, secret string, publisher kafka.Publisher) *Service {
	return &Service{
		gateway:   gateway,
		orders:    orders,
		secret:    []byte(secret),
		publisher: publisher,
	}
}

// CreateGatewayOrder registers the order with the payment gateway and
// stores the returned gateway order id for later verification.
func (s *Service) CreateGatewayOrder(ctx context.Context, cmd command.CreatePayment) (*command.GatewayOrder, error) {
	o, err := s.orders.OrderByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != cmd.UserID && !cmd.Admin {
		return nil, ErrNotOrderOwner
	}
	if o.PaymentStatus != order.PaymentPending {
		return nil, ErrPaymentNotPending
	}

	// A retried create reuses the existing gateway order instead of
	// registering a second one for the same receipt.
	gatewayOrderID := o.GatewayOrderID
	if gatewayOrderID == "" {
		gatewayOrderID, err = s.gateway.CreateOrder(ctx, o.FinalPrice, Currency, o.ID)
		if err != nil {
			return nil, err
		}
		if err := s.orders.AttachGatewayOrder(ctx, o.ID, gatewayOrderID); err != nil {
			return nil, err
		}
	}

	return &command.GatewayOrder{
		GatewayOrderID: gatewayOrderID,
		Amount:         o.FinalPrice,
		Currency:       Currency,
	}, nil
}

// Signature computes the expected hex HMAC-SHA256 over
// "{gatewayOrderID}|{gatewayPaymentID}" with the server-held secret.
func Signature(secret []byte, gatewayOrderID, gatewayPaymentID string) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(gatewayOrderID + "|" + gatewayPaymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify is the AwaitingPayment transition: a matching signature moves the
// order to completed/processing, a mismatch marks the attempt failed. Both
// legs are conditional single-row updates, so replays are harmless.
func (s *Service) Verify(ctx context.Context, cmd command.VerifyPayment) error {
	if cmd.GatewayOrderID == "" || cmd.GatewayPaymentID == "" {
		return ErrMissingGatewayData
	}

	expected := Signature(s.secret, cmd.GatewayOrderID, cmd.GatewayPaymentID)
	if !hmac.Equal([]byte(expected), []byte(cmd.Signature)) {
		if cmd.OrderID != "" {
			if err := s.orders.FailPayment(ctx, cmd.OrderID); err != nil {
				log.Printf("[Payment] Failed to mark order %s payment failed: %v", cmd.OrderID, err)
			}
			if s.publisher != nil {
				s.publisher.Publish(ctx, events.TypePaymentFailed, cmd.OrderID, events.PaymentFailed{
					OrderID: cmd.OrderID,
					Reason:  "signature mismatch",
				})
			}
		}
		return ErrSignatureMismatch
	}

	o, transitioned, err := s.orders.CompletePayment(ctx, cmd.GatewayOrderID, cmd.GatewayPaymentID)
	if err != nil {
		return err
	}
	if transitioned && s.publisher != nil {
		s.publisher.Publish(ctx, events.TypePaymentCaptured, o.ID, events.PaymentCaptured{
			OrderID:          o.ID,
			UserID:           o.UserID,
			UserEmail:        cmd.UserEmail,
			GatewayOrderID:   cmd.GatewayOrderID,
			GatewayPaymentID: cmd.GatewayPaymentID,
			Amount:           o.FinalPrice,
		})
	}
	return nil
}
