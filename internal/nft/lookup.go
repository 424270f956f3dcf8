package nft

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"nft-go/internal/model"
)

// OnChainToken is what the contract and the token URI report for a token.
type OnChainToken struct {
	TokenID  uint64
	Owner    string
	TokenURI string
	Metadata map[string]any
}

// Lookup queries the local ledger. An empty query returns every record.
// No chain access is needed.
func (s *NFTService) Lookup(q Query) ([]*model.MetadataRecord, error) {
	if q.IsEmpty() {
		return s.ledger.All()
	}
	return s.ledger.Query(q)
}

// LookupOnChain reads owner and token URI from the contract and fetches the
// metadata document the URI points to.
func (s *NFTService) LookupOnChain(ctx context.Context, tokenID uint64) (*OnChainToken, error) {
	if s.contract == nil {
		return nil, fmt.Errorf("no contract configured")
	}

	owner, err := s.contract.OwnerOf(ctx, tokenID)
	if err != nil {
		return nil, err
	}
	uri, err := s.contract.TokenURI(ctx, tokenID)
	if err != nil {
		return nil, err
	}

	token := &OnChainToken{TokenID: tokenID, Owner: owner, TokenURI: uri}
	if s.metadata == nil || uri == "" {
		return token, nil
	}
	doc, err := s.metadata.FetchMetadata(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("token %d: %w", tokenID, err)
	}
	token.Metadata = doc
	return token, nil
}

// SelectRecord returns records[choice-1] for a 1-based choice typed by the user.
func SelectRecord(records []*model.MetadataRecord, choice string) (*model.MetadataRecord, error) {
	n, err := strconv.Atoi(strings.TrimSpace(choice))
	if err != nil {
		return nil, fmt.Errorf("%w: %q is not a number", ErrInvalidSelection, choice)
	}
	if n < 1 || n > len(records) {
		return nil, fmt.Errorf("%w: choose 1-%d, got %d", ErrInvalidSelection, len(records), n)
	}
	return records[n-1], nil
}
