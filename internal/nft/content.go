package nft

import "context"

// Publisher uploads local files to a content-addressed pinning service.
// Publishing the same file twice may return different ids; callers must not
// assume deduplication.
type Publisher interface {
	// Publish uploads the file at localPath and returns its content id.
	Publish(ctx context.Context, localPath string) (string, error)

	// GatewayURL returns an HTTP URL resolving cid through the provider's gateway.
	GatewayURL(cid string) string
}

// ImageFetcher downloads an image from a remote URL.
type ImageFetcher interface {
	// FetchByURL downloads url to destBase plus an extension derived from the
	// response content type and returns the written path.
	FetchByURL(ctx context.Context, url string, destBase string) (string, error)
}

// ImageGenerator produces an image from a text prompt.
type ImageGenerator interface {
	// Generate runs prompt through the generation service and writes the
	// result to destBase plus ".png", returning the written path.
	Generate(ctx context.Context, prompt string, destBase string) (string, error)
}

// MetadataFetcher retrieves a token's metadata document by URI.
type MetadataFetcher interface {
	FetchMetadata(ctx context.Context, uri string) (map[string]any, error)
}
