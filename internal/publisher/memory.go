package publisher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"sync"

	"nft-go/internal/nft"
)

// MemoryPublisher keeps published content in memory.
// Content ids are derived from a SHA-256 of the bytes, which makes it useful
// for tests and dry runs. This implementation is safe for concurrent use.
type MemoryPublisher struct {
	gateway
	content map[string][]byte
	mu      sync.RWMutex
}

// NewMemoryPublisher creates an empty in-memory publisher.
func NewMemoryPublisher(gatewayURL string) *MemoryPublisher {
	return &MemoryPublisher{
		gateway: gateway(gatewayURL),
		content: make(map[string][]byte),
	}
}

// Publish reads localPath and stores it under its derived id.
func (m *MemoryPublisher) Publish(ctx context.Context, localPath string) (string, error) {
	f, _, err := openLocal(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return "", fmt.Errorf("%w: reading %s: %v", nft.ErrPublish, localPath, err)
	}

	sum := sha256.Sum256(data)
	cid := "mem" + hex.EncodeToString(sum[:])[:40]

	m.mu.Lock()
	defer m.mu.Unlock()
	m.content[cid] = data
	return cid, nil
}

// Content returns the bytes stored under cid.
func (m *MemoryPublisher) Content(cid string) ([]byte, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	data, ok := m.content[cid]
	return data, ok
}

// Len returns the number of stored items.
func (m *MemoryPublisher) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.content)
}

var _ nft.Publisher = (*MemoryPublisher)(nil)
