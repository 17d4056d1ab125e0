package cloudinary

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/mamadbah2/epharmacy/internal/config"
)

func TestSignSortsAndSkipsEmpty(t *testing.T) {
	params := map[string]string{
		"timestamp": "1315060510",
		"public_id": "sample_image",
		"folder":    "",
		"eager":     "w_400,h_300,c_pad",
	}
	sum := sha1.Sum([]byte("eager=w_400,h_300,c_pad&public_id=sample_image&timestamp=1315060510abcd"))
	want := hex.EncodeToString(sum[:])

	if got := Sign(params, "abcd"); got != want {
		t.Fatalf("Sign() = %s, want %s", got, want)
	}
}

func TestUploadPostsSignedMultipart(t *testing.T) {
	var form map[string]string
	var fileBody string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/demo/image/upload" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm() error = %v", err)
		}
		form = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			form[k] = v[0]
		}
		f, _, err := r.FormFile("file")
		if err == nil {
			b, _ := io.ReadAll(f)
			fileBody = string(b)
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"secure_url": "https://cdn.test/" + form["public_id"]})
	}))
	defer srv.Close()

	c := NewClient(config.StorageConfig{CloudName: "demo", APIKey: "key", APISecret: "secret", BaseURL: srv.URL})
	c.now = func() time.Time { return time.Unix(1700000000, 0) }

	url, err := c.Upload(context.Background(), "prescriptions", []byte("png-bytes"))
	if err != nil {
		t.Fatalf("Upload() error = %v", err)
	}
	if !strings.HasPrefix(url, "https://cdn.test/") || !strings.HasSuffix(url, form["public_id"]) {
		t.Fatalf("unexpected url %s", url)
	}
	if fileBody != "png-bytes" {
		t.Fatalf("file body = %q", fileBody)
	}
	if form["api_key"] != "key" || form["folder"] != "prescriptions" || form["timestamp"] != "1700000000" {
		t.Fatalf("unexpected form %+v", form)
	}
	wantSig := Sign(map[string]string{"folder": "prescriptions", "public_id": form["public_id"], "timestamp": "1700000000"}, "secret")
	if form["signature"] != wantSig {
		t.Fatalf("signature = %s, want %s", form["signature"], wantSig)
	}
}

func TestUploadSurfacesAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid Signature"}}`))
	}))
	defer srv.Close()

	c := NewClient(config.StorageConfig{CloudName: "demo", BaseURL: srv.URL})
	_, err := c.Upload(context.Background(), "prescriptions", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "Invalid Signature") {
		t.Fatalf("expected api error, got %v", err)
	}
}
