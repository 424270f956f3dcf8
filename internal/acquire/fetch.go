package acquire

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"nft-go/internal/nft"
)

// DefaultProbeTimeout bounds the HEAD request that checks a URL is an image.
const DefaultProbeTimeout = 5 * time.Second

// URLFetcher downloads images from http(s) URLs.
type URLFetcher struct {
	client       *http.Client
	probeTimeout time.Duration
	logger       nft.Logger
}

// NewURLFetcher creates a fetcher using client, or http.DefaultClient when nil.
func NewURLFetcher(client *http.Client, logger nft.Logger) *URLFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = nft.NewNopLogger()
	}
	return &URLFetcher{client: client, probeTimeout: DefaultProbeTimeout, logger: logger}
}

// FetchByURL probes rawURL with HEAD, then downloads it to destBase plus an
// extension taken from the content type. Nothing is written unless the probe
// reports an image.
func (f *URLFetcher) FetchByURL(ctx context.Context, rawURL string, destBase string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", fmt.Errorf("%w: %q", nft.ErrInvalidURL, rawURL)
	}

	if err := f.probe(ctx, rawURL); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nft.ErrDownload, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nft.ErrDownload, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: GET %s returned %s", nft.ErrDownload, rawURL, resp.Status)
	}

	ext, ok := imageExtension(resp.Header.Get("Content-Type"))
	if !ok {
		return "", fmt.Errorf("%w: MIME %q", nft.ErrNotAnImage, resp.Header.Get("Content-Type"))
	}

	dest := destBase + "." + ext
	if err := writeBody(dest, resp.Body); err != nil {
		return "", fmt.Errorf("%w: %v", nft.ErrDownload, err)
	}

	f.logger.Debug("downloaded image", "url", rawURL, "path", dest)
	return dest, nil
}

func (f *URLFetcher) probe(ctx context.Context, rawURL string) error {
	ctx, cancel := context.WithTimeout(ctx, f.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, rawURL, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", nft.ErrInvalidURL, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		// An unreachable URL cannot be shown to be an image.
		return fmt.Errorf("%w: probe failed: %v", nft.ErrNotAnImage, err)
	}
	resp.Body.Close()

	if _, ok := imageExtension(resp.Header.Get("Content-Type")); !ok {
		return fmt.Errorf("%w: MIME %q", nft.ErrNotAnImage, resp.Header.Get("Content-Type"))
	}
	return nil
}

// imageExtension maps an image/* content type to a file extension.
func imageExtension(contentType string) (string, bool) {
	if contentType == "" {
		return "", false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0]))
	}
	sub, ok := strings.CutPrefix(mediaType, "image/")
	if !ok || sub == "" {
		return "", false
	}
	if sub == "jpeg" {
		sub = "jpg"
	}
	return sub, true
}

// writeBody streams r into path, removing the file if anything fails.
func writeBody(path string, r io.Reader) error {
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	success := false
	defer func() {
		if !success {
			out.Close()
			os.Remove(path)
		}
	}()

	if _, err := io.Copy(out, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	success = true
	return nil
}

var _ nft.ImageFetcher = (*URLFetcher)(nil)
