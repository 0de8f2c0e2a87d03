package email

import (
	"fmt"
	"net/smtp"
)

// Service handles email sending via SMTP
type Service struct {
	host string
	port string
	from string
}

// NewService creates a new email service
func NewService(host, port, from string) *Service {
	return &Service{
		host: host,
		port: port,
		from: from,
	}
}

// SendOrderConfirmation sends an order confirmation email
func (s *Service) SendOrderConfirmation(to, orderID string, total, discount, final int64, itemCount int) error {
	subject := fmt.Sprintf("Order confirmed (#%s)", shortID(orderID))
	body := BuildOrderConfirmationBody(orderID, total, discount, final, itemCount)
	return s.send(to, subject, body)
}

// SendPaymentReceipt sends a payment receipt email
func (s *Service) SendPaymentReceipt(to, orderID, paymentID string, amount int64) error {
	subject := fmt.Sprintf("Payment received for order #%s", shortID(orderID))
	body := BuildPaymentReceiptBody(orderID, paymentID, amount)
	return s.send(to, subject, body)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (s *Service) send(to, subject, body string) error {
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/html; charset=UTF-8\r\n\r\n%s",
		s.from, to, subject, body)
	addr := fmt.Sprintf("%s:%s", s.host, s.port)
	return smtp.SendMail(addr, nil, s.from, []string{to}, []byte(msg))
}
