package publisher

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"nft-go/internal/config"
	"nft-go/internal/nft"
)

// NewPublisherFromConfig creates a Publisher implementation based on the publisher config type.
func NewPublisherFromConfig(ctx context.Context, cfg config.PublisherConfig, idgen nft.IDGenerator, logger nft.Logger) (nft.Publisher, error) {
	gatewayURL := cfg.GatewayURL
	if gatewayURL == "" {
		gatewayURL = config.DefaultGatewayURL
	}

	switch cfg.Type {
	case "memory":
		return NewMemoryPublisher(gatewayURL), nil
	case "pinata", "":
		endpoint := cfg.PinataEndpoint
		if endpoint == "" {
			endpoint = config.DefaultPinataEndpoint
		}
		creds := PinataCredentials{APIKey: cfg.PinataAPIKey, APISecret: cfg.PinataAPISecret, JWT: cfg.PinataJWT}
		if creds.empty() {
			return nil, fmt.Errorf("%w: set PINATA_API_KEY and PINATA_API_SECRET, or PINATA_JWT", nft.ErrMissingCredential)
		}
		client := &http.Client{Timeout: 2 * time.Minute}
		return NewPinataPublisher(endpoint, gatewayURL, creds, client, logger), nil
	case "filesystem":
		if cfg.LocalDir == "" {
			return nil, fmt.Errorf("filesystem publisher requires local_dir to be set")
		}
		// The public gateway cannot serve local files.
		local := cfg.GatewayURL
		if local == config.DefaultGatewayURL {
			local = ""
		}
		return NewFilesystemPublisher(cfg.LocalDir, local)
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 publisher requires s3_bucket to be set")
		}
		client, err := NewS3Client(ctx, S3Options{
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
		})
		if err != nil {
			return nil, err
		}
		return NewS3Publisher(client, cfg.S3Bucket, cfg.S3Prefix, gatewayURL, idgen, logger), nil
	default:
		return nil, fmt.Errorf("unknown publisher type: %s", cfg.Type)
	}
}
