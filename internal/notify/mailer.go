// Package notify sends transactional mail to learners.
package notify

import (
	"context"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
)

// ReceiptLine is one purchased course on a receipt.
type ReceiptLine struct {
	Title string
	Price decimal.Decimal
}

// Receipt is the content of a purchase confirmation.
type Receipt struct {
	ToEmail  string
	ToName   string
	OrderID  string
	Currency string
	Total    decimal.Decimal
	Lines    []ReceiptLine
}

// Mailer delivers receipts.
type Mailer interface {
	SendReceipt(ctx context.Context, r Receipt) error
}

// NopMailer logs instead of sending. Used when no API key is configured.
type NopMailer struct{}

func (NopMailer) SendReceipt(_ context.Context, r Receipt) error {
	slog.Info("receipt mail skipped, mailer not configured", "order_id", r.OrderID)
	return nil
}

type sendClient interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendgridMailer sends receipts through SendGrid.
type SendgridMailer struct {
	client   sendClient
	from     *mail.Email
	siteName string
}

func NewSendgridMailer(apiKey, fromEmail string) *SendgridMailer {
	return &SendgridMailer{
		client:   sendgrid.NewSendClient(apiKey),
		from:     mail.NewEmail("Academy", fromEmail),
		siteName: "Academy",
	}
}

var receiptHTML = template.Must(template.New("receipt").Parse(`<html><body>
<h3>Thanks for your purchase, {{.ToName}}</h3>
<p>Order {{.OrderID}}</p>
<table>
{{range .Lines}}<tr><td>{{.Title}}</td><td>{{.Price.StringFixed 2}}</td></tr>
{{end}}<tr><td><b>Total</b></td><td><b>{{.Total.StringFixed 2}} {{.Currency}}</b></td></tr>
</table>
<p>Your courses are unlocked and ready in your dashboard.</p>
</body></html>`))

func (m *SendgridMailer) SendReceipt(ctx context.Context, r Receipt) error {
	var html strings.Builder
	if err := receiptHTML.Execute(&html, r); err != nil {
		return fmt.Errorf("failed to render receipt: %w", err)
	}

	var plain strings.Builder
	fmt.Fprintf(&plain, "Order %s\n", r.OrderID)
	for _, l := range r.Lines {
		fmt.Fprintf(&plain, "%s  %s\n", l.Title, l.Price.StringFixed(2))
	}
	fmt.Fprintf(&plain, "Total  %s %s\n", r.Total.StringFixed(2), r.Currency)

	msg := mail.NewSingleEmail(
		m.from,
		fmt.Sprintf("Your %s receipt", m.siteName),
		mail.NewEmail(r.ToName, r.ToEmail),
		plain.String(),
		html.String(),
	)

	resp, err := m.client.SendWithContext(ctx, msg)
	if err != nil {
		return fmt.Errorf("failed to send receipt for order %s: %w", r.OrderID, err)
	}
	// SendGrid answers 202 on success.
	if resp.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status=%d body=%s", resp.StatusCode, resp.Body)
	}
	slog.Info("receipt sent", "order_id", r.OrderID)
	return nil
}
