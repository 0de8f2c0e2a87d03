package email

import "fmt"

// FormatAmount renders a minor-unit amount as rupees.
func FormatAmount(amount int64) string {
	return fmt.Sprintf("₹%d.%02d", amount/100, amount%100)
}

// BuildOrderConfirmationBody builds the HTML body for the order confirmation email
func BuildOrderConfirmationBody(orderID string, total, discount, final int64, itemCount int) string {
	discountRow := ""
	if discount > 0 {
		discountRow = fmt.Sprintf(
			`<tr><td style="padding: 8px;">Discount</td><td style="padding: 8px; text-align: right;">-%s</td></tr>`,
			FormatAmount(discount))
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px;">Thank you for your order</h1>
	<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
		<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
		<p style="margin: 5px 0 0 0; font-size: 18px; font-weight: bold; font-family: monospace;">%s</p>
	</div>
	<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
		<tr><td style="padding: 8px;">Items</td><td style="padding: 8px; text-align: right;">%d</td></tr>
		<tr><td style="padding: 8px;">Subtotal</td><td style="padding: 8px; text-align: right;">%s</td></tr>
		%s
		<tr style="font-weight: bold; border-top: 2px solid #333;">
			<td style="padding: 8px;">Total payable</td><td style="padding: 8px; text-align: right;">%s</td>
		</tr>
	</table>
	<p style="font-size: 13px; color: #666;">You will receive a payment receipt once your payment is confirmed.</p>
</body>
</html>`, orderID, itemCount, FormatAmount(total), discountRow, FormatAmount(final))
}

// BuildPaymentReceiptBody builds the HTML body for the payment receipt email
func BuildPaymentReceiptBody(orderID, paymentID string, amount int64) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<body style="font-family: -apple-system, 'Segoe UI', Roboto, sans-serif; line-height: 1.6; color: #333; max-width: 600px; margin: 0 auto; padding: 20px;">
	<h1 style="font-size: 22px;">Payment received</h1>
	<p>We have received your payment of <strong>%s</strong>.</p>
	<div style="background: #f8f9fa; padding: 15px; border-radius: 5px; margin: 20px 0;">
		<p style="margin: 0; font-size: 14px; color: #666;">Order number</p>
		<p style="margin: 5px 0 0 0; font-family: monospace;">%s</p>
		<p style="margin: 10px 0 0 0; font-size: 14px; color: #666;">Payment reference</p>
		<p style="margin: 5px 0 0 0; font-family: monospace;">%s</p>
	</div>
	<p style="font-size: 13px; color: #666;">Your order is now being processed.</p>
</body>
</html>`, FormatAmount(amount), orderID, paymentID)
}
