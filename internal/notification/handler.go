package notification

import (
	"context"
	"encoding/json"
	"log"

	"github.com/example/ec-order-core/internal/email"
	"github.com/example/ec-order-core/internal/events"
)

// Handler turns committed order events into customer emails.
type Handler struct {
	emailService *email.Service
}

func NewHandler(emailSvc *email.Service) *Handler {
	return &Handler{emailService: emailSvc}
}

// HandleEvent processes an event envelope from Kafka
func (h *Handler) HandleEvent(ctx context.Context, key, value []byte) error {
	var envelope events.Envelope
	if err := json.Unmarshal(value, &envelope); err != nil {
		log.Printf("[Notifier] Failed to unmarshal envelope: %v", err)
		return err
	}

	switch envelope.Type {
	case events.TypeOrderPlaced:
		return h.handleOrderPlaced(envelope)
	case events.TypePaymentCaptured:
		return h.handlePaymentCaptured(envelope)
	}
	return nil
}

func (h *Handler) handleOrderPlaced(envelope events.Envelope) error {
	var e events.OrderPlaced
	if err := json.Unmarshal(envelope.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal OrderPlaced: %v", err)
		return err
	}
	if e.UserEmail == "" {
		log.Printf("[Notifier] No email for order %s, skipping confirmation", e.OrderID)
		return nil
	}

	log.Printf("[Notifier] Sending order confirmation for %s to %s", e.OrderID, e.UserEmail)
	if err := h.emailService.SendOrderConfirmation(e.UserEmail, e.OrderID, e.TotalPrice, e.Discount, e.FinalPrice, e.ItemCount); err != nil {
		log.Printf("[Notifier] Failed to send confirmation for %s: %v", e.OrderID, err)
		return err
	}
	return nil
}

func (h *Handler) handlePaymentCaptured(envelope events.Envelope) error {
	var e events.PaymentCaptured
	if err := json.Unmarshal(envelope.Data, &e); err != nil {
		log.Printf("[Notifier] Failed to unmarshal PaymentCaptured: %v", err)
		return err
	}
	if e.UserEmail == "" {
		log.Printf("[Notifier] No email for order %s, skipping receipt", e.OrderID)
		return nil
	}

	log.Printf("[Notifier] Sending payment receipt for %s to %s", e.OrderID, e.UserEmail)
	if err := h.emailService.SendPaymentReceipt(e.UserEmail, e.OrderID, e.GatewayPaymentID, e.Amount); err != nil {
		log.Printf("[Notifier] Failed to send receipt for %s: %v", e.OrderID, err)
		return err
	}
	return nil
}
