package testutil

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"

	"nft-go/internal/nft"
)

const (
	TestContractAddress = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	TestSignerAddress   = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
	TestBuyerAddress    = "0x70997970C51812dc3A010C7d01b50e0d17dc79C8"
	TestRoyaltyReceiver = "0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC"
)

// StubSigner is a Signer with a fixed address.
type StubSigner string

func (s StubSigner) Address() string { return string(s) }

// FakeContract is an in-memory NFT contract. Transactions are mined
// immediately; WaitMined returns the receipt recorded when they were sent.
type FakeContract struct {
	mu sync.Mutex

	paused   bool
	nextID   uint64
	owners   map[uint64]string
	uris     map[uint64]string
	receipts map[string]*nft.Receipt
	txCount  int
	sent     []string

	// RoyaltyBps is the royalty in basis points reported by RoyaltyInfo.
	RoyaltyBps int64
	// EmitMintEvents controls whether mint receipts carry Transfer and Minted.
	EmitMintEvents bool
	// EmitResold controls whether resale receipts carry Resold.
	EmitResold bool
	// MintErr, when set, is returned by Mint.
	MintErr error
}

// NewFakeContract creates an unpaused contract with nextTokenId 0 that emits events.
func NewFakeContract() *FakeContract {
	return &FakeContract{
		owners:         make(map[uint64]string),
		uris:           make(map[uint64]string),
		receipts:       make(map[string]*nft.Receipt),
		RoyaltyBps:     500,
		EmitMintEvents: true,
		EmitResold:     true,
	}
}

func (c *FakeContract) Address() string { return TestContractAddress }

// SetPaused sets the paused flag.
func (c *FakeContract) SetPaused(paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.paused = paused
}

// SetNext sets nextTokenId directly, without a transaction.
func (c *FakeContract) SetNext(id uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID = id
}

// SetOwner assigns tokenID to owner directly, without a transaction.
func (c *FakeContract) SetOwner(tokenID uint64, owner string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[tokenID] = owner
}

// Sent returns the names of the write methods called, in order.
func (c *FakeContract) Sent() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.sent...)
}

// Next returns the current nextTokenId.
func (c *FakeContract) Next() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.nextID
}

func (c *FakeContract) Paused(ctx context.Context) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.paused, nil
}

func (c *FakeContract) NextTokenID(ctx context.Context) (uint64, error) {
	return c.Next(), nil
}

func (c *FakeContract) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[tokenID]
	if !ok {
		return "", fmt.Errorf("%w: token %d", nft.ErrTokenNotFound, tokenID)
	}
	return owner, nil
}

func (c *FakeContract) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.owners[tokenID]; !ok {
		return "", fmt.Errorf("%w: token %d", nft.ErrTokenNotFound, tokenID)
	}
	return c.uris[tokenID], nil
}

func (c *FakeContract) RoyaltyInfo(ctx context.Context, tokenID uint64, salePrice *big.Int) (string, *big.Int, error) {
	amount := new(big.Int).Mul(salePrice, big.NewInt(c.RoyaltyBps))
	amount.Div(amount, big.NewInt(10000))
	return TestRoyaltyReceiver, amount, nil
}

func (c *FakeContract) Mint(ctx context.Context, signer nft.Signer, uri string) (*nft.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.MintErr != nil {
		return nil, c.MintErr
	}
	if c.paused {
		return nil, fmt.Errorf("execution reverted: paused")
	}

	id := c.nextID
	c.nextID++
	c.owners[id] = signer.Address()
	c.uris[id] = uri

	var events []nft.Event
	if c.EmitMintEvents {
		events = []nft.Event{
			{Kind: nft.EventTransfer, TokenID: id, From: "0x0000000000000000000000000000000000000000", To: signer.Address()},
			{Kind: nft.EventMinted, TokenID: id, Creator: signer.Address(), TokenURI: uri},
		}
	}
	return c.send("mint", events), nil
}

func (c *FakeContract) Resale(ctx context.Context, signer nft.Signer, tokenID uint64, buyer string, minPrice, value *big.Int) (*nft.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	owner, ok := c.owners[tokenID]
	if !ok {
		return nil, fmt.Errorf("execution reverted: nonexistent token")
	}
	if !strings.EqualFold(owner, signer.Address()) {
		return nil, fmt.Errorf("execution reverted: caller is not owner")
	}
	if value.Cmp(minPrice) < 0 {
		return nil, fmt.Errorf("execution reverted: price below minimum")
	}
	c.owners[tokenID] = buyer

	var events []nft.Event
	if c.EmitResold {
		royalty := new(big.Int).Mul(value, big.NewInt(c.RoyaltyBps))
		royalty.Div(royalty, big.NewInt(10000))
		events = []nft.Event{{Kind: nft.EventResold, TokenID: tokenID, Seller: owner, Buyer: buyer, Price: value, Royalty: royalty}}
	}
	return c.send("resale", events), nil
}

func (c *FakeContract) SetNextTokenID(ctx context.Context, signer nft.Signer, value uint64) (*nft.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID = value
	return c.send("setNextTokenId", nil), nil
}

func (c *FakeContract) WaitMined(ctx context.Context, tx *nft.Transaction) (*nft.Receipt, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.receipts[tx.Hash]
	if !ok {
		return nil, fmt.Errorf("unknown transaction %s", tx.Hash)
	}
	return r, nil
}

// send records a mined transaction. c.mu must be held.
func (c *FakeContract) send(method string, events []nft.Event) *nft.Transaction {
	c.txCount++
	hash := fmt.Sprintf("0x%064x", c.txCount)
	c.sent = append(c.sent, method)
	c.receipts[hash] = &nft.Receipt{TxHash: hash, BlockNumber: uint64(c.txCount), Events: events}
	return &nft.Transaction{Hash: hash}
}

func itoa(v uint64) string {
	return strconv.FormatUint(v, 10)
}

var _ nft.Contract = (*FakeContract)(nil)
