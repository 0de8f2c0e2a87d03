package command

import (
	"context"

	"github.com/example/ec-order-core/internal/domain/order"
	"github.com/example/ec-order-core/internal/events"
	"github.com/example/ec-order-core/internal/infrastructure/kafka"
	"github.com/example/ec-order-core/internal/infrastructure/store"
)

// OrderPlacer is implemented by the checkout coordinator.
type OrderPlacer interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error)
}

// GatewayOrder is the response to a payment-order creation request.
type GatewayOrder struct {
	GatewayOrderID string `json:"gateway_order_id"`
	Amount         int64  `json:"amount"`
	Currency       string `json:"currency"`
}

// PaymentService is implemented by the payment reconciliation service.
type PaymentService interface {
	CreateGatewayOrder(ctx context.Context, cmd CreatePayment) (*GatewayOrder, error)
	Verify(ctx context.Context, cmd VerifyPayment) error
}

type Handler struct {
	placer    OrderPlacer
	payments  PaymentService
	orders    store.OrderStore
	publisher kafka.Publisher
}

func NewHandler(placer OrderPlacer, payments PaymentService, orders store.OrderStore, publisher kafka.Publisher) *Handler {
	return &Handler{
		placer:    placer,
		payments:  payments,
		orders:    orders,
		publisher: publisher,
	}
}

// PlaceOrder runs the order transaction
func (h *Handler) PlaceOrder(ctx context.Context, cmd PlaceOrder) (*order.Order, error) {
	return h.placer.PlaceOrder(ctx, cmd)
}

// UpdateOrderStatus advances an order along the status graph (admin only,
// enforced at the API layer). The store update is a compare-and-set on the
// status observed here, so two racing admins cannot both win.
func (h *Handler) UpdateOrderStatus(ctx context.Context, cmd UpdateOrderStatus) (*order.Order, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	o, err := h.orders.OrderByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}
	if !o.CanTransitionTo(cmd.Status) {
		return nil, o.TransitionError(cmd.Status)
	}
	if err := h.orders.UpdateStatus(ctx, o.ID, o.Status, cmd.Status); err != nil {
		return nil, err
	}

	if h.publisher != nil {
		h.publisher.Publish(ctx, events.TypeOrderStatusChanged, o.ID, events.OrderStatusChanged{
			OrderID: o.ID,
			UserID:  o.UserID,
			From:    string(o.Status),
			To:      string(cmd.Status),
		})
	}

	o.Status = cmd.Status
	return o, nil
}

// CreatePayment creates the remote gateway order for a pending payment
func (h *Handler) CreatePayment(ctx context.Context, cmd CreatePayment) (*GatewayOrder, error) {
	return h.payments.CreateGatewayOrder(ctx, cmd)
}

// VerifyPayment reconciles a gateway callback against order state
func (h *Handler) VerifyPayment(ctx context.Context, cmd VerifyPayment) error {
	return h.payments.Verify(ctx, cmd)
}
