package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"

	"nft-go/internal/nft"
)

// DefaultGasLimit is the explicit gas limit attached to every write.
const DefaultGasLimit = 300000

// Backend is the RPC surface the client needs. *ethclient.Client satisfies it.
type Backend interface {
	bind.ContractBackend
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	ChainID(ctx context.Context) (*big.Int, error)
}

// TxSigner is a signer able to authorize transactions for a chain.
type TxSigner interface {
	nft.Signer
	TransactOpts(chainID *big.Int) (*bind.TransactOpts, error)
}

// Client talks to the deployed NFT contract.
type Client struct {
	address  common.Address
	backend  Backend
	bound    *bind.BoundContract
	chainID  *big.Int
	gasLimit uint64
	logger   nft.Logger

	// receiptPoll is the interval between receipt lookups in WaitMined.
	receiptPoll time.Duration
}

// Options configures a Client.
type Options struct {
	ChainID  int64 // 0 queries the node
	GasLimit uint64
	Logger   nft.Logger
}

// Dial connects to rpcURL and binds the contract at address.
func Dial(ctx context.Context, rpcURL string, address string, opts Options) (*Client, error) {
	ec, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", rpcURL, err)
	}
	c, err := NewClient(ctx, ec, address, opts)
	if err != nil {
		ec.Close()
		return nil, err
	}
	return c, nil
}

// NewClient binds the contract at address on backend.
func NewClient(ctx context.Context, backend Backend, address string, opts Options) (*Client, error) {
	if !common.IsHexAddress(address) {
		return nil, fmt.Errorf("invalid contract address %q", address)
	}
	addr := common.HexToAddress(address)

	var chainID *big.Int
	if opts.ChainID != 0 {
		chainID = big.NewInt(opts.ChainID)
	} else {
		id, err := backend.ChainID(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to query chain id: %w", err)
		}
		chainID = id
	}

	gasLimit := opts.GasLimit
	if gasLimit == 0 {
		gasLimit = DefaultGasLimit
	}
	logger := opts.Logger
	if logger == nil {
		logger = nft.NewNopLogger()
	}

	return &Client{
		address:     addr,
		backend:     backend,
		bound:       bind.NewBoundContract(addr, parsedABI, backend, backend, backend),
		chainID:     chainID,
		gasLimit:    gasLimit,
		logger:      logger,
		receiptPoll: time.Second,
	}, nil
}

// Close releases the RPC connection if the backend holds one.
func (c *Client) Close() {
	if closer, ok := c.backend.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Address returns the contract address.
func (c *Client) Address() string {
	return c.address.Hex()
}

// Name returns the contract's name().
func (c *Client) Name(ctx context.Context) (string, error) {
	out, err := c.call(ctx, "name")
	if err != nil {
		return "", err
	}
	return out[0].(string), nil
}

// Verify checks that code is deployed at the address and that it reports the expected name.
func (c *Client) Verify(ctx context.Context) error {
	code, err := c.backend.CodeAt(ctx, c.address, nil)
	if err != nil {
		return fmt.Errorf("failed to read contract code: %w", err)
	}
	if len(code) == 0 {
		return fmt.Errorf("no contract deployed at %s", c.address.Hex())
	}
	name, err := c.Name(ctx)
	if err != nil {
		return err
	}
	if name != ExpectedName {
		return fmt.Errorf("contract at %s is %q, not %q", c.address.Hex(), name, ExpectedName)
	}
	return nil
}

func (c *Client) Paused(ctx context.Context) (bool, error) {
	out, err := c.call(ctx, "paused")
	if err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

func (c *Client) NextTokenID(ctx context.Context) (uint64, error) {
	out, err := c.call(ctx, "nextTokenId")
	if err != nil {
		return 0, err
	}
	return toUint64(out[0].(*big.Int))
}

// OwnerOf returns the owner of tokenID, or nft.ErrTokenNotFound when the call reverts.
func (c *Client) OwnerOf(ctx context.Context, tokenID uint64) (string, error) {
	out, err := c.call(ctx, "ownerOf", new(big.Int).SetUint64(tokenID))
	if err != nil {
		if isRevert(err) {
			return "", fmt.Errorf("%w: token %d", nft.ErrTokenNotFound, tokenID)
		}
		return "", err
	}
	return out[0].(common.Address).Hex(), nil
}

func (c *Client) TokenURI(ctx context.Context, tokenID uint64) (string, error) {
	out, err := c.call(ctx, "tokenURI", new(big.Int).SetUint64(tokenID))
	if err != nil {
		if isRevert(err) {
			return "", fmt.Errorf("%w: token %d", nft.ErrTokenNotFound, tokenID)
		}
		return "", err
	}
	return out[0].(string), nil
}

func (c *Client) RoyaltyInfo(ctx context.Context, tokenID uint64, salePrice *big.Int) (string, *big.Int, error) {
	out, err := c.call(ctx, "royaltyInfo", new(big.Int).SetUint64(tokenID), salePrice)
	if err != nil {
		return "", nil, err
	}
	return out[0].(common.Address).Hex(), out[1].(*big.Int), nil
}

func (c *Client) Mint(ctx context.Context, signer nft.Signer, uri string) (*nft.Transaction, error) {
	return c.transact(ctx, signer, nil, "mint", uri)
}

func (c *Client) Resale(ctx context.Context, signer nft.Signer, tokenID uint64, buyer string, minPrice, value *big.Int) (*nft.Transaction, error) {
	if !common.IsHexAddress(buyer) {
		return nil, fmt.Errorf("invalid buyer address %q", buyer)
	}
	return c.transact(ctx, signer, value, "resale", new(big.Int).SetUint64(tokenID), common.HexToAddress(buyer), minPrice)
}

func (c *Client) SetNextTokenID(ctx context.Context, signer nft.Signer, value uint64) (*nft.Transaction, error) {
	return c.transact(ctx, signer, nil, "setNextTokenId", new(big.Int).SetUint64(value))
}

// WaitMined polls for the receipt of tx until it is included or ctx ends.
func (c *Client) WaitMined(ctx context.Context, tx *nft.Transaction) (*nft.Receipt, error) {
	hash := common.HexToHash(tx.Hash)
	ticker := time.NewTicker(c.receiptPoll)
	defer ticker.Stop()

	for {
		receipt, err := c.backend.TransactionReceipt(ctx, hash)
		switch {
		case err == nil && receipt != nil:
			if receipt.Status != types.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("transaction %s reverted in block %s", tx.Hash, receipt.BlockNumber)
			}
			return decodeReceipt(c.address, receipt), nil
		case err != nil && !errors.Is(err, ethereum.NotFound):
			c.logger.Debug("receipt lookup failed", "tx", tx.Hash, "error", err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for %s: %w", tx.Hash, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) call(ctx context.Context, method string, params ...any) ([]any, error) {
	var out []any
	if err := c.bound.Call(&bind.CallOpts{Context: ctx}, &out, method, params...); err != nil {
		return nil, fmt.Errorf("%s(): %w", method, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%s(): empty result", method)
	}
	return out, nil
}

func (c *Client) transact(ctx context.Context, signer nft.Signer, value *big.Int, method string, params ...any) (*nft.Transaction, error) {
	ts, ok := signer.(TxSigner)
	if !ok {
		return nil, fmt.Errorf("signer %s cannot authorize transactions", signer.Address())
	}
	opts, err := ts.TransactOpts(c.chainID)
	if err != nil {
		return nil, fmt.Errorf("failed to build transactor: %w", err)
	}
	opts.Context = ctx
	opts.GasLimit = c.gasLimit
	opts.Value = value

	tx, err := c.bound.Transact(opts, method, params...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	c.logger.Info("transaction sent", "method", method, "tx", tx.Hash().Hex())
	return &nft.Transaction{Hash: tx.Hash().Hex()}, nil
}

func isRevert(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "revert") || strings.Contains(msg, "nonexistent token")
}

func toUint64(v *big.Int) (uint64, error) {
	if v == nil || v.Sign() < 0 || !v.IsUint64() {
		return 0, fmt.Errorf("value %v does not fit in uint64", v)
	}
	return v.Uint64(), nil
}

var _ nft.Contract = (*Client)(nil)
