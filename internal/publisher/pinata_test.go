package publisher

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nft-go/internal/nft"
)

func writeTempFile(t *testing.T, name, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return p
}

func TestPinataPublisher_Publish(t *testing.T) {
	var gotKey, gotSecret, gotAuth, gotFile, gotName string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinFileToIPFS" {
			http.NotFound(w, r)
			return
		}
		gotKey = r.Header.Get("pinata_api_key")
		gotSecret = r.Header.Get("pinata_secret_api_key")
		gotAuth = r.Header.Get("Authorization")

		file, header, err := r.FormFile("file")
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		gotFile = string(data)
		gotName = header.Filename

		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, `{"IpfsHash":"QmTestHash","PinSize":5,"Timestamp":"2024-01-01T00:00:00Z"}`)
	}))
	defer srv.Close()

	path := writeTempFile(t, "image.png", "hello")

	t.Run("key and secret", func(t *testing.T) {
		p := NewPinataPublisher(srv.URL, "https://gw.example/ipfs/", PinataCredentials{APIKey: "k", APISecret: "s"}, srv.Client(), nil)
		cid, err := p.Publish(context.Background(), path)
		if err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if cid != "QmTestHash" {
			t.Errorf("Publish() = %q, want %q", cid, "QmTestHash")
		}
		if gotKey != "k" || gotSecret != "s" {
			t.Errorf("headers = (%q, %q), want (k, s)", gotKey, gotSecret)
		}
		if gotFile != "hello" {
			t.Errorf("uploaded content = %q, want %q", gotFile, "hello")
		}
		if gotName != "image.png" {
			t.Errorf("uploaded filename = %q, want %q", gotName, "image.png")
		}
	})

	t.Run("jwt", func(t *testing.T) {
		p := NewPinataPublisher(srv.URL, "https://gw.example/ipfs/", PinataCredentials{JWT: "tok"}, srv.Client(), nil)
		if _, err := p.Publish(context.Background(), path); err != nil {
			t.Fatalf("Publish() error = %v", err)
		}
		if gotAuth != "Bearer tok" {
			t.Errorf("Authorization = %q, want %q", gotAuth, "Bearer tok")
		}
	})
}

func TestPinataPublisher_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"Invalid authentication"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	creds := PinataCredentials{APIKey: "k", APISecret: "s"}
	path := writeTempFile(t, "image.png", "hello")

	t.Run("missing local path", func(t *testing.T) {
		p := NewPinataPublisher(srv.URL, "", creds, srv.Client(), nil)
		cid, err := p.Publish(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
		if !errors.Is(err, nft.ErrPublish) {
			t.Errorf("Publish() error = %v, want ErrPublish", err)
		}
		if cid != "" {
			t.Errorf("Publish() cid = %q, want empty", cid)
		}
	})

	t.Run("missing credentials", func(t *testing.T) {
		p := NewPinataPublisher(srv.URL, "", PinataCredentials{APIKey: "k"}, srv.Client(), nil)
		_, err := p.Publish(context.Background(), path)
		if !errors.Is(err, nft.ErrMissingCredential) {
			t.Errorf("Publish() error = %v, want ErrMissingCredential", err)
		}
	})

	t.Run("provider rejects upload", func(t *testing.T) {
		p := NewPinataPublisher(srv.URL, "", creds, srv.Client(), nil)
		_, err := p.Publish(context.Background(), path)
		if !errors.Is(err, nft.ErrPublish) {
			t.Fatalf("Publish() error = %v, want ErrPublish", err)
		}
		if got := err.Error(); !strings.Contains(got, "Invalid authentication") {
			t.Errorf("error %q does not carry provider message", got)
		}
	})
}

func TestGatewayURL(t *testing.T) {
	tests := []struct {
		prefix string
		want   string
	}{
		{"https://gateway.pinata.cloud/ipfs/", "https://gateway.pinata.cloud/ipfs/QmX"},
		{"https://ipfs.filebase.io/ipfs", "https://ipfs.filebase.io/ipfs/QmX"},
	}
	for _, tt := range tests {
		if got := gateway(tt.prefix).GatewayURL("QmX"); got != tt.want {
			t.Errorf("GatewayURL(%q) = %q, want %q", tt.prefix, got, tt.want)
		}
	}
}
