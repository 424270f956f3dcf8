package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"nft-go/internal/nft"
)

const pinFilePath = "/pinning/pinFileToIPFS"

// PinataPublisher pins files through the Pinata HTTP API.
// It authenticates with either a key/secret pair or a JWT; the JWT wins when both are set.
type PinataPublisher struct {
	gateway
	endpoint  string
	apiKey    string
	apiSecret string
	jwt       string
	client    *http.Client
	logger    nft.Logger
}

// PinataCredentials holds the Pinata authentication material.
type PinataCredentials struct {
	APIKey    string
	APISecret string
	JWT       string
}

func (c PinataCredentials) empty() bool {
	return c.JWT == "" && (c.APIKey == "" || c.APISecret == "")
}

// NewPinataPublisher creates a publisher talking to endpoint (e.g. https://api.pinata.cloud).
func NewPinataPublisher(endpoint, gatewayURL string, creds PinataCredentials, client *http.Client, logger nft.Logger) *PinataPublisher {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = nft.NewNopLogger()
	}
	return &PinataPublisher{
		gateway:   gateway(gatewayURL),
		endpoint:  strings.TrimSuffix(endpoint, "/"),
		apiKey:    creds.APIKey,
		apiSecret: creds.APISecret,
		jwt:       creds.JWT,
		client:    client,
		logger:    logger,
	}
}

type pinResponse struct {
	IpfsHash  string `json:"IpfsHash"`
	PinSize   int64  `json:"PinSize"`
	Timestamp string `json:"Timestamp"`
}

// Publish uploads localPath as the multipart field "file" and returns the IPFS hash.
func (p *PinataPublisher) Publish(ctx context.Context, localPath string) (string, error) {
	creds := PinataCredentials{APIKey: p.apiKey, APISecret: p.apiSecret, JWT: p.jwt}
	if creds.empty() {
		return "", fmt.Errorf("%w: pinata api key/secret or jwt required", nft.ErrMissingCredential)
	}

	f, _, err := openLocal(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	// Stream the multipart body instead of buffering the whole image.
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", filepath.Base(localPath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint+pinFilePath, pr)
	if err != nil {
		pr.Close()
		return "", fmt.Errorf("%w: building request: %v", nft.ErrPublish, err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if p.jwt != "" {
		req.Header.Set("Authorization", "Bearer "+p.jwt)
	} else {
		req.Header.Set("pinata_api_key", p.apiKey)
		req.Header.Set("pinata_secret_api_key", p.apiSecret)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", nft.ErrPublish, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", nft.ErrPublish, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: pinata returned %s: %s", nft.ErrPublish, resp.Status, strings.TrimSpace(string(body)))
	}

	var out pinResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", nft.ErrPublish, err)
	}
	if out.IpfsHash == "" {
		return "", fmt.Errorf("%w: response has no IpfsHash", nft.ErrPublish)
	}

	p.logger.Debug("pinned file", "path", localPath, "cid", out.IpfsHash, "size", out.PinSize)
	return out.IpfsHash, nil
}

var _ nft.Publisher = (*PinataPublisher)(nil)
