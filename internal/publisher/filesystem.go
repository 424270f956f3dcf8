package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"nft-go/internal/nft"
)

// FilesystemPublisher stores published files in a local directory, named by
// the SHA-256 of their content:
//
//	<root>/
//	  content/
//	    <sha256>
//
// It stands in for a pinning service on a local development chain; any
// static file server over content/ acts as its gateway.
type FilesystemPublisher struct {
	gateway
	root       string
	contentDir string
}

// NewFilesystemPublisher creates a publisher rooted at root. An empty
// gatewayURL resolves ids to file:// URLs.
func NewFilesystemPublisher(root, gatewayURL string) (*FilesystemPublisher, error) {
	contentDir := filepath.Join(root, "content")
	if err := os.MkdirAll(contentDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create content directory: %w", err)
	}
	abs, err := filepath.Abs(contentDir)
	if err != nil {
		return nil, fmt.Errorf("resolving content directory: %w", err)
	}
	if gatewayURL == "" {
		gatewayURL = "file://" + filepath.ToSlash(abs) + "/"
	}
	return &FilesystemPublisher{
		gateway:    gateway(gatewayURL),
		root:       root,
		contentDir: abs,
	}, nil
}

// Publish copies localPath into the content directory. Publishing the same
// bytes twice is idempotent and returns the same id.
func (p *FilesystemPublisher) Publish(ctx context.Context, localPath string) (string, error) {
	src, info, err := openLocal(localPath)
	if err != nil {
		return "", err
	}
	defer src.Close()

	cid, err := p.writeContent(src, info.Size())
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", nft.ErrPublish, localPath, err)
	}
	return cid, nil
}

// Path returns where the content for cid is stored.
func (p *FilesystemPublisher) Path(cid string) string {
	return filepath.Join(p.contentDir, cid)
}

// writeContent hashes r into a temp file and renames it to its content id.
func (p *FilesystemPublisher) writeContent(r io.Reader, expectedSize int64) (string, error) {
	// Temp file in the same directory so the rename is atomic.
	tmpFile, err := os.CreateTemp(p.contentDir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	h := sha256.New()
	written, err := io.Copy(io.MultiWriter(tmpFile, h), r)
	if err != nil {
		tmpFile.Close()
		return "", fmt.Errorf("failed to write data: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return "", fmt.Errorf("failed to close temp file: %w", err)
	}
	if written != expectedSize {
		return "", fmt.Errorf("size mismatch: expected %d bytes, got %d", expectedSize, written)
	}

	cid := hex.EncodeToString(h.Sum(nil))
	dest := p.Path(cid)
	if _, err := os.Stat(dest); err == nil {
		// Already stored; the deferred cleanup drops the temp copy.
		return cid, nil
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		return "", fmt.Errorf("failed to rename temp file: %w", err)
	}
	success = true
	return cid, nil
}

var _ nft.Publisher = (*FilesystemPublisher)(nil)
