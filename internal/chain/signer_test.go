package chain

import (
	"math/big"
	"errors"
	"strings"
	"testing"

	"nft-go/internal/nft"
)

const nodeOutput = `Started HTTP and WebSocket JSON-RPC server at http://127.0.0.1:8545/

Accounts
========

WARNING: These accounts, and their private keys, are publicly known.

Account #0: 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266 (10000 ETH)
Private Key: 0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80

Account #1: 0x70997970C51812dc3A010C7d01b50e0d17dc79C8 (10000 ETH)
Private Key: 0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d

Account #2: 0x3C44CdDdB6a900fa2b585dd299e03d12FA4293BC (10000 ETH)
`

func TestParseAccounts(t *testing.T) {
	accounts, err := ParseAccounts(strings.NewReader(nodeOutput))
	if err != nil {
		t.Fatalf("ParseAccounts() error = %v", err)
	}
	// Account #2 has no key line and is skipped.
	if len(accounts) != 2 {
		t.Fatalf("ParseAccounts() len = %d, want 2", len(accounts))
	}
	if accounts[0].Address != "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266" {
		t.Errorf("accounts[0].Address = %q", accounts[0].Address)
	}
	if accounts[1].PrivateKey != "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d" {
		t.Errorf("accounts[1].PrivateKey = %q", accounts[1].PrivateKey)
	}
}

func TestSelectAccount(t *testing.T) {
	accounts, err := ParseAccounts(strings.NewReader(nodeOutput))
	if err != nil {
		t.Fatalf("ParseAccounts() error = %v", err)
	}

	s, err := SelectAccount(accounts, 1)
	if err != nil {
		t.Fatalf("SelectAccount(1) error = %v", err)
	}
	if s.Address() != "0x70997970C51812dc3A010C7d01b50e0d17dc79C8" {
		t.Errorf("Address() = %q", s.Address())
	}

	for _, idx := range []int{-1, 2, 10} {
		if _, err := SelectAccount(accounts, idx); !errors.Is(err, nft.ErrInvalidSelection) {
			t.Errorf("SelectAccount(%d) error = %v, want ErrInvalidSelection", idx, err)
		}
	}
}

func TestKeySigner(t *testing.T) {
	s, err := NewKeySigner(testKey)
	if err != nil {
		t.Fatalf("NewKeySigner() error = %v", err)
	}
	if s.Address() != testAddress {
		t.Errorf("Address() = %q, want %q", s.Address(), testAddress)
	}

	opts, err := s.TransactOpts(big.NewInt(31337))
	if err != nil {
		t.Fatalf("TransactOpts() error = %v", err)
	}
	if opts.From.Hex() != testAddress {
		t.Errorf("opts.From = %s, want %s", opts.From.Hex(), testAddress)
	}

	if _, err := NewKeySigner("0xnothex"); err == nil {
		t.Error("NewKeySigner() expected error for invalid key")
	}
}
