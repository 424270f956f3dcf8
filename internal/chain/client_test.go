package chain

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"

	"nft-go/internal/nft"
)

const (
	testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"
	// Well-known development account #0.
	testKey     = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

func newTestClient(t *testing.T) (*Client, *fakeBackend) {
	t.Helper()
	backend := newFakeBackend()
	c, err := NewClient(context.Background(), backend, testContract, Options{})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	c.receiptPoll = time.Millisecond
	return c, backend
}

func newTestSigner(t *testing.T) *KeySigner {
	t.Helper()
	s, err := NewKeySigner(testKey)
	if err != nil {
		t.Fatalf("NewKeySigner() error = %v", err)
	}
	return s
}

func TestNewClient_InvalidAddress(t *testing.T) {
	if _, err := NewClient(context.Background(), newFakeBackend(), "not-an-address", Options{}); err == nil {
		t.Error("NewClient() expected error for invalid address")
	}
}

func TestClient_Reads(t *testing.T) {
	c, backend := newTestClient(t)
	owner := common.HexToAddress(testAddress)
	backend.results["paused"] = []any{true}
	backend.results["nextTokenId"] = []any{big.NewInt(7)}
	backend.results["ownerOf"] = []any{owner}
	backend.results["tokenURI"] = []any{"https://gw/ipfs/meta"}
	backend.results["royaltyInfo"] = []any{owner, big.NewInt(500)}
	backend.results["name"] = []any{ExpectedName}
	ctx := context.Background()

	paused, err := c.Paused(ctx)
	if err != nil || !paused {
		t.Errorf("Paused() = %v, %v; want true", paused, err)
	}

	next, err := c.NextTokenID(ctx)
	if err != nil || next != 7 {
		t.Errorf("NextTokenID() = %d, %v; want 7", next, err)
	}

	got, err := c.OwnerOf(ctx, 3)
	if err != nil || got != testAddress {
		t.Errorf("OwnerOf() = %q, %v; want %q", got, err, testAddress)
	}

	uri, err := c.TokenURI(ctx, 3)
	if err != nil || uri != "https://gw/ipfs/meta" {
		t.Errorf("TokenURI() = %q, %v", uri, err)
	}

	receiver, amount, err := c.RoyaltyInfo(ctx, 3, big.NewInt(10000))
	if err != nil {
		t.Fatalf("RoyaltyInfo() error = %v", err)
	}
	if receiver != testAddress || amount.Int64() != 500 {
		t.Errorf("RoyaltyInfo() = (%s, %s), want (%s, 500)", receiver, amount, testAddress)
	}

	if err := c.Verify(ctx); err != nil {
		t.Errorf("Verify() error = %v", err)
	}
}

func TestClient_VerifyWrongName(t *testing.T) {
	c, backend := newTestClient(t)
	backend.results["name"] = []any{"Some Other Token"}
	if err := c.Verify(context.Background()); err == nil {
		t.Error("Verify() expected error for wrong contract name")
	}
}

func TestClient_OwnerOfRevertIsTokenNotFound(t *testing.T) {
	c, backend := newTestClient(t)
	backend.callErr["ownerOf"] = errors.New("execution reverted: ERC721NonexistentToken(99)")

	_, err := c.OwnerOf(context.Background(), 99)
	if !errors.Is(err, nft.ErrTokenNotFound) {
		t.Errorf("OwnerOf() error = %v, want ErrTokenNotFound", err)
	}
}

func TestClient_MintUsesExplicitGasLimit(t *testing.T) {
	c, backend := newTestClient(t)

	tx, err := c.Mint(context.Background(), newTestSigner(t), "https://gw/ipfs/meta")
	if err != nil {
		t.Fatalf("Mint() error = %v", err)
	}

	sent := backend.lastSent()
	if sent == nil {
		t.Fatal("no transaction sent")
	}
	if tx.Hash != sent.Hash().Hex() {
		t.Errorf("tx.Hash = %s, want %s", tx.Hash, sent.Hash().Hex())
	}
	if sent.Gas() != DefaultGasLimit {
		t.Errorf("gas = %d, want %d", sent.Gas(), DefaultGasLimit)
	}
	if *sent.To() != common.HexToAddress(testContract) {
		t.Errorf("to = %s, want %s", sent.To().Hex(), testContract)
	}

	method, err := parsedABI.MethodById(sent.Data()[:4])
	if err != nil {
		t.Fatalf("MethodById() error = %v", err)
	}
	if method.Name != "mint" {
		t.Errorf("method = %s, want mint", method.Name)
	}
	args, err := method.Inputs.Unpack(sent.Data()[4:])
	if err != nil {
		t.Fatalf("Unpack() error = %v", err)
	}
	if args[0] != "https://gw/ipfs/meta" {
		t.Errorf("mint uri = %v", args[0])
	}
}

func TestClient_ResaleSendsValue(t *testing.T) {
	c, backend := newTestClient(t)
	signer := newTestSigner(t)

	price := big.NewInt(1e17)
	if _, err := c.Resale(context.Background(), signer, 4, "0x70997970C51812dc3A010C7d01b50e0d17dc79C8", price, price); err != nil {
		t.Fatalf("Resale() error = %v", err)
	}

	sent := backend.lastSent()
	if sent == nil {
		t.Fatal("no transaction sent")
	}
	if sent.Value().Cmp(price) != 0 {
		t.Errorf("value = %s, want %s", sent.Value(), price)
	}

	if _, err := c.Resale(context.Background(), signer, 4, "bogus", price, price); err == nil {
		t.Error("Resale() expected error for invalid buyer")
	}
}

func TestClient_WaitMined(t *testing.T) {
	contract := common.HexToAddress(testContract)

	t.Run("decodes events", func(t *testing.T) {
		c, backend := newTestClient(t)
		hash := common.HexToHash("0x01")
		backend.receipts[hash] = &types.Receipt{
			Status:      types.ReceiptStatusSuccessful,
			TxHash:      hash,
			BlockNumber: big.NewInt(12),
			GasUsed:     90000,
			Logs:        []*types.Log{transferLog(contract, common.Address{}, common.HexToAddress(testAddress), 5)},
		}

		r, err := c.WaitMined(context.Background(), &nft.Transaction{Hash: hash.Hex()})
		if err != nil {
			t.Fatalf("WaitMined() error = %v", err)
		}
		if r.BlockNumber != 12 {
			t.Errorf("BlockNumber = %d, want 12", r.BlockNumber)
		}
		ev, ok := r.FindEvent(nft.EventTransfer, nft.EventMinted)
		if !ok {
			t.Fatal("FindEvent() found nothing")
		}
		if ev.TokenID != 5 {
			t.Errorf("TokenID = %d, want 5", ev.TokenID)
		}
	})

	t.Run("reverted", func(t *testing.T) {
		c, backend := newTestClient(t)
		hash := common.HexToHash("0x02")
		backend.receipts[hash] = &types.Receipt{Status: types.ReceiptStatusFailed, TxHash: hash, BlockNumber: big.NewInt(3)}

		if _, err := c.WaitMined(context.Background(), &nft.Transaction{Hash: hash.Hex()}); err == nil {
			t.Error("WaitMined() expected error for reverted receipt")
		}
	})

	t.Run("context cancelled while pending", func(t *testing.T) {
		c, _ := newTestClient(t)
		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := c.WaitMined(ctx, &nft.Transaction{Hash: common.HexToHash("0x03").Hex()})
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("WaitMined() error = %v, want DeadlineExceeded", err)
		}
	})
}
