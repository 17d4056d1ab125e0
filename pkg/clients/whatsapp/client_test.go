package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mamadbah2/epharmacy/internal/config"
)

func TestNormalizePhone(t *testing.T) {
	cases := map[string]string{
		"+63 917-555-0101": "639175550101",
		"639175550101":     "639175550101",
		"(0917) 555 0101":  "09175550101",
	}
	for in, want := range cases {
		got, err := NormalizePhone(in)
		if err != nil || got != want {
			t.Errorf("NormalizePhone(%q) = %q, %v; want %q", in, got, err, want)
		}
	}
	if _, err := NormalizePhone("n/a"); err == nil {
		t.Errorf("expected error for recipient without digits")
	}
}

func TestSendPostsTextMessage(t *testing.T) {
	var auth string
	var body map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v20.0/12345/messages" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		auth = r.Header.Get("Authorization")
		_ = json.NewDecoder(r.Body).Decode(&body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"messages":[{"id":"wamid.1"}]}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "12345", BaseURL: srv.URL + "/", APIVersion: "v20.0"})
	id, err := c.Send(context.Background(), Message{To: "+63 917", Body: "expiring"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if id != "wamid.1" {
		t.Fatalf("id = %q", id)
	}
	if auth != "Bearer tok" {
		t.Fatalf("authorization = %q", auth)
	}
	if body["to"] != "63917" || body["type"] != "text" {
		t.Fatalf("unexpected payload %v", body)
	}
}

func TestSendSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"invalid recipient","code":131030}}`))
	}))
	defer srv.Close()

	c := NewClient(config.WhatsAppConfig{AccessToken: "tok", PhoneNumberID: "1", BaseURL: srv.URL, APIVersion: "v20.0"})
	if _, err := c.Send(context.Background(), Message{To: "1", Body: "x"}); err == nil {
		t.Fatalf("expected error on 400")
	}
}
