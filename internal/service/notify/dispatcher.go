package notify

import (
	"context"
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/service/expiry"
	"github.com/mamadbah2/epharmacy/pkg/clients/mail"
	"github.com/mamadbah2/epharmacy/pkg/clients/whatsapp"
)

const (
	dateLayout   = "2006-01-02"
	alertSubject = "Medicine Expiry Alert"
	signature    = "- ePharmacy Locator"
)

// Dispatcher routes expiry notices to the owner's channel: email first, then
// WhatsApp when a client is configured.
type Dispatcher struct {
	mail     mail.Client
	whatsapp whatsapp.Client
	logger   *zap.Logger
}

// NewDispatcher wires a dispatcher. wa may be nil when WhatsApp is not configured.
func NewDispatcher(mailClient mail.Client, wa whatsapp.Client, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{mail: mailClient, whatsapp: wa, logger: logger}
}

// NotifyExpiry sends notice. expiry.ErrNoContact is returned when no configured
// channel reaches the owner.
func (d *Dispatcher) NotifyExpiry(ctx context.Context, notice models.ExpiryNotice) error {
	switch {
	case notice.Email != "" && d.mail != nil:
		err := d.mail.Send(ctx, mail.Message{
			To:      notice.Email,
			Subject: alertSubject,
			Text:    TextBody(notice),
			HTML:    HTMLBody(notice),
		})
		if err != nil {
			return apperr.Upstream("expiry email failed", err)
		}
		d.logger.Debug("expiry email sent", zap.String("pharmacy_id", notice.PharmacyID))
		return nil
	case notice.Phone != "" && d.whatsapp != nil:
		_, err := d.whatsapp.Send(ctx, whatsapp.Message{
			To:   notice.Phone,
			Body: TextBody(notice),
		})
		if err != nil {
			return apperr.Upstream("expiry whatsapp message failed", err)
		}
		d.logger.Debug("expiry whatsapp message sent", zap.String("pharmacy_id", notice.PharmacyID))
		return nil
	default:
		return expiry.ErrNoContact
	}
}

// TextBody renders the plain-text alert, one line per batch.
func TextBody(notice models.ExpiryNotice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", greetingName(notice))
	b.WriteString("The following medicines in your pharmacy are expiring soon:\n\n")
	for _, l := range notice.Lines {
		fmt.Fprintf(&b, "- %s: %d (expires %s)", l.Medicine, l.Quantity, l.ExpirationDate.Format(dateLayout))
		if l.Expired {
			b.WriteString(" [expired]")
		}
		b.WriteString("\n")
	}
	b.WriteString("\nPlease take necessary action to manage your stock.\n")
	b.WriteString(signature)
	return b.String()
}

// HTMLBody renders the same alert as an HTML table.
func HTMLBody(notice models.ExpiryNotice) string {
	var rows strings.Builder
	for _, l := range notice.Lines {
		fmt.Fprintf(&rows, "<tr><td>%s</td><td>%d</td><td>%s</td></tr>",
			html.EscapeString(l.Medicine), l.Quantity, l.ExpirationDate.Format(dateLayout))
	}
	return fmt.Sprintf(`<div><h2>Hello %s,</h2>`+
		`<p>The following medicines in your pharmacy are expiring soon:</p>`+
		`<table><thead><tr><th>Medicine</th><th>Stock</th><th>Expiry Date</th></tr></thead>`+
		`<tbody>%s</tbody></table>`+
		`<p>Please take necessary action to manage your stock.</p><p>%s</p></div>`,
		html.EscapeString(greetingName(notice)), rows.String(), signature)
}

func greetingName(notice models.ExpiryNotice) string {
	if notice.OwnerName == "" {
		return "Pharmacy Owner"
	}
	return notice.OwnerName
}
