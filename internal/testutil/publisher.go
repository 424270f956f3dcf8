package testutil

import (
	"nft-go/internal/publisher"
)

// TestGateway is the gateway prefix used by NewTestPublisher.
const TestGateway = "https://gateway.test/ipfs/"

// NewTestPublisher creates an in-memory publisher for testing.
func NewTestPublisher() *publisher.MemoryPublisher {
	return publisher.NewMemoryPublisher(TestGateway)
}
