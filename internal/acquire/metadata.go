package acquire

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"nft-go/internal/nft"
)

// HTTPMetadataFetcher retrieves token metadata documents over HTTP.
type HTTPMetadataFetcher struct {
	client *http.Client
}

func NewHTTPMetadataFetcher(client *http.Client) *HTTPMetadataFetcher {
	if client == nil {
		client = http.DefaultClient
	}
	return &HTTPMetadataFetcher{client: client}
}

// FetchMetadata GETs uri and decodes it as a JSON object.
func (f *HTTPMetadataFetcher) FetchMetadata(ctx context.Context, uri string) (map[string]any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid token uri %q: %w", uri, err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetching metadata: %s returned %s", uri, resp.Status)
	}

	var doc map[string]any
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&doc); err != nil {
		return nil, fmt.Errorf("decoding metadata from %s: %w", uri, err)
	}
	return doc, nil
}

var _ nft.MetadataFetcher = (*HTTPMetadataFetcher)(nil)
