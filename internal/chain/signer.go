package chain

import (
	"bufio"
	"crypto/ecdsa"
	"fmt"
	"io"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"nft-go/internal/nft"
)

// KeySigner signs with an in-memory secp256k1 key.
type KeySigner struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewKeySigner parses a hex private key, with or without 0x prefix.
func NewKeySigner(hexKey string) (*KeySigner, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &KeySigner{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

func (s *KeySigner) Address() string {
	return s.address.Hex()
}

func (s *KeySigner) TransactOpts(chainID *big.Int) (*bind.TransactOpts, error) {
	return bind.NewKeyedTransactorWithChainID(s.key, chainID)
}

// Account is one funded development account from a node's startup output.
type Account struct {
	Address    string
	PrivateKey string
}

// ParseAccounts reads "Account #N: 0x... (10000 ETH)" lines each followed by
// a "Private Key: 0x..." line, as printed by a local development node.
func ParseAccounts(r io.Reader) ([]Account, error) {
	var accounts []Account
	var pending string

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		switch {
		case strings.HasPrefix(line, "Account #"):
			pending = ""
			_, rest, ok := strings.Cut(line, ":")
			if !ok {
				continue
			}
			fields := strings.Fields(rest)
			if len(fields) > 0 && common.IsHexAddress(fields[0]) {
				pending = common.HexToAddress(fields[0]).Hex()
			}
		case strings.HasPrefix(line, "Private Key:") && pending != "":
			key := strings.TrimSpace(strings.TrimPrefix(line, "Private Key:"))
			if _, after, ok := strings.Cut(key, "-"); ok {
				key = strings.TrimSpace(after)
			}
			if key != "" {
				accounts = append(accounts, Account{Address: pending, PrivateKey: key})
			}
			pending = ""
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading accounts: %w", err)
	}
	return accounts, nil
}

// LoadAccounts parses the accounts file at path.
func LoadAccounts(path string) ([]Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open accounts file: %w", err)
	}
	defer f.Close()
	return ParseAccounts(f)
}

// SelectAccount returns the signer for accounts[index].
func SelectAccount(accounts []Account, index int) (*KeySigner, error) {
	if index < 0 || index >= len(accounts) {
		return nil, fmt.Errorf("%w: account index %d (have %d accounts)", nft.ErrInvalidSelection, index, len(accounts))
	}
	s, err := NewKeySigner(accounts[index].PrivateKey)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(s.Address(), accounts[index].Address) {
		return nil, fmt.Errorf("account #%d: key does not match address %s", index, accounts[index].Address)
	}
	return s, nil
}

var _ TxSigner = (*KeySigner)(nil)
