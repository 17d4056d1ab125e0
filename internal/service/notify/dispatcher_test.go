package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/mamadbah2/epharmacy/internal/apperr"
	"github.com/mamadbah2/epharmacy/internal/domain/models"
	"github.com/mamadbah2/epharmacy/internal/service/expiry"
	"github.com/mamadbah2/epharmacy/pkg/clients/mail"
	"github.com/mamadbah2/epharmacy/pkg/clients/whatsapp"
)

type fakeMail struct {
	sent []mail.Message
	err  error
}

func (f *fakeMail) Send(ctx context.Context, msg mail.Message) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, msg)
	return nil
}

type fakeWhatsApp struct {
	sent []whatsapp.Message
}

func (f *fakeWhatsApp) Send(ctx context.Context, msg whatsapp.Message) (string, error) {
	f.sent = append(f.sent, msg)
	return "wamid.test", nil
}

func sampleNotice() models.ExpiryNotice {
	return models.ExpiryNotice{
		PharmacyID: "p1",
		OwnerName:  "Ana",
		Lines: []models.ExpiryLine{
			{Medicine: "Amoxil (Amoxicillin)", Quantity: 10, ExpirationDate: time.Date(2025, 6, 7, 0, 0, 0, 0, time.UTC), Expired: true},
			{Medicine: "Biogesic (Paracetamol)", Quantity: 5, ExpirationDate: time.Date(2025, 6, 22, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func TestNotifyPrefersEmail(t *testing.T) {
	m, wa := &fakeMail{}, &fakeWhatsApp{}
	d := NewDispatcher(m, wa, nil)

	n := sampleNotice()
	n.Email, n.Phone = "ana@example.com", "+63917"
	if err := d.NotifyExpiry(context.Background(), n); err != nil {
		t.Fatalf("NotifyExpiry() error = %v", err)
	}
	if len(m.sent) != 1 || len(wa.sent) != 0 {
		t.Fatalf("expected one email and no whatsapp, got %d/%d", len(m.sent), len(wa.sent))
	}
	if m.sent[0].To != "ana@example.com" || m.sent[0].Subject != alertSubject {
		t.Fatalf("unexpected message %+v", m.sent[0])
	}
}

func TestNotifyFallsBackToWhatsApp(t *testing.T) {
	m, wa := &fakeMail{}, &fakeWhatsApp{}
	d := NewDispatcher(m, wa, nil)

	n := sampleNotice()
	n.Phone = "+63917"
	if err := d.NotifyExpiry(context.Background(), n); err != nil {
		t.Fatalf("NotifyExpiry() error = %v", err)
	}
	if len(wa.sent) != 1 || wa.sent[0].To != "+63917" {
		t.Fatalf("expected whatsapp delivery, got %+v", wa.sent)
	}
}

func TestNotifyWithoutChannel(t *testing.T) {
	d := NewDispatcher(&fakeMail{}, nil, nil)

	n := sampleNotice()
	n.Phone = "+63917"
	if err := d.NotifyExpiry(context.Background(), n); !errors.Is(err, expiry.ErrNoContact) {
		t.Fatalf("expected ErrNoContact, got %v", err)
	}
}

func TestNotifyWrapsTransportErrors(t *testing.T) {
	d := NewDispatcher(&fakeMail{err: errors.New("smtp down")}, nil, nil)

	n := sampleNotice()
	n.Email = "ana@example.com"
	if err := d.NotifyExpiry(context.Background(), n); !apperr.Is(err, apperr.KindUpstreamFailure) {
		t.Fatalf("expected UpstreamFailure, got %v", err)
	}
}

func TestTextBodyLines(t *testing.T) {
	body := TextBody(sampleNotice())
	for _, want := range []string{
		"Hello Ana,",
		"- Amoxil (Amoxicillin): 10 (expires 2025-06-07) [expired]",
		"- Biogesic (Paracetamol): 5 (expires 2025-06-22)\n",
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("body missing %q:\n%s", want, body)
		}
	}
}

func TestHTMLBodyEscapes(t *testing.T) {
	n := sampleNotice()
	n.Lines[0].Medicine = "<b>X</b>"
	if body := HTMLBody(n); strings.Contains(body, "<b>X</b>") || !strings.Contains(body, "&lt;b&gt;X&lt;/b&gt;") {
		t.Fatalf("medicine names must be escaped: %s", body)
	}
}
