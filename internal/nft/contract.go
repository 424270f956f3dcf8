package nft

import (
	"context"
	"math/big"
)

// EventKind tags a decoded contract event.
type EventKind string

const (
	EventTransfer EventKind = "Transfer"
	EventMinted   EventKind = "Minted"
	EventResold   EventKind = "Resold"
)

// Event is a contract log that decoded against the known ABI.
// Only the fields relevant to Kind are populated.
type Event struct {
	Kind    EventKind
	TokenID uint64

	// Transfer
	From string
	To   string

	// Minted
	Creator  string
	TokenURI string

	// Resold
	Seller  string
	Buyer   string
	Price   *big.Int
	Royalty *big.Int
}

// Transaction is a submitted, not yet confirmed, contract transaction.
type Transaction struct {
	Hash string
}

// Receipt is a confirmed transaction. Events holds only the logs emitted by
// the contract that decoded successfully, in log order.
type Receipt struct {
	TxHash      string
	BlockNumber uint64
	GasUsed     uint64
	Events      []Event
}

// FindEvent returns the first event whose kind is one of kinds.
func (r *Receipt) FindEvent(kinds ...EventKind) (*Event, bool) {
	for i := range r.Events {
		for _, k := range kinds {
			if r.Events[i].Kind == k {
				return &r.Events[i], true
			}
		}
	}
	return nil, false
}

// Signer is an externally supplied credential able to authorize transactions.
// The service only ever needs its address; contract implementations obtain
// the actual authorization through their own extension of this interface.
type Signer interface {
	Address() string
}

// Contract is the capability surface of the deployed NFT contract.
// Write methods submit a transaction and return immediately; use WaitMined to
// block until it is confirmed.
type Contract interface {
	// Address returns the contract address as 0x-prefixed hex.
	Address() string

	Paused(ctx context.Context) (bool, error)

	// NextTokenID returns the id the contract will assign to the next mint.
	NextTokenID(ctx context.Context) (uint64, error)

	// OwnerOf returns the owner address. Returns ErrTokenNotFound if the token does not exist.
	OwnerOf(ctx context.Context, tokenID uint64) (string, error)

	TokenURI(ctx context.Context, tokenID uint64) (string, error)

	// RoyaltyInfo reports the royalty receiver and amount due at salePrice.
	RoyaltyInfo(ctx context.Context, tokenID uint64, salePrice *big.Int) (string, *big.Int, error)

	Mint(ctx context.Context, signer Signer, uri string) (*Transaction, error)

	// Resale transfers tokenID to buyer, sending value as payment.
	Resale(ctx context.Context, signer Signer, tokenID uint64, buyer string, minPrice, value *big.Int) (*Transaction, error)

	SetNextTokenID(ctx context.Context, signer Signer, value uint64) (*Transaction, error)

	// WaitMined blocks until tx has one confirmation. A reverted transaction is an error.
	WaitMined(ctx context.Context, tx *Transaction) (*Receipt, error)
}
