package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/big"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"nft-go/internal/acquire"
	"nft-go/internal/chain"
	"nft-go/internal/config"
	"nft-go/internal/database"
	"nft-go/internal/ledger"
	"nft-go/internal/model"
	"nft-go/internal/nft"
	"nft-go/internal/prompt"
	"nft-go/internal/publisher"
)

// Needs selects which collaborators NewNFTApp wires. The ledger and the
// journal are always opened; everything else is only built when a command
// uses it, so that local lookups work without credentials or a node.
type Needs uint8

const (
	NeedChain Needs = 1 << iota
	NeedSigner
	NeedPublisher
	NeedContent // image fetcher and generator

	NeedMint = NeedChain | NeedSigner | NeedPublisher | NeedContent
)

// Options configures NewNFTApp.
type Options struct {
	// Operation identifies the CLI command being run (e.g. "MintFromURL", "Reconcile").
	Operation  string
	Parameters string
	Needs      Needs

	// Asker supplies the keystore passphrase. Required for keystore signers.
	Asker prompt.Asker

	// Reconcile runs a ledger/chain reconciliation before the command.
	Reconcile bool

	// LogEcho receives a copy of every log line; nil means stderr.
	LogEcho io.Writer
}

// NFTApp is the application layer between the CLI and NFTService.
// It constructs all dependencies from config and manages their lifecycle on Close.
type NFTApp struct {
	cfg     *config.Config
	journal *database.SQLiteJournal
	ledger  nft.Ledger
	client  *chain.Client
	signer  chain.TxSigner
	service *nft.NFTService
	logger  nft.Logger
	op      *Operation
	logFile io.Closer
}

// NewNFTApp creates a wired NFTApp from the given config.
// The caller must call Close when done.
func NewNFTApp(ctx context.Context, cfg *config.Config, opts Options) (_ *NFTApp, err error) {
	echo := opts.LogEcho
	if echo == nil {
		echo = os.Stderr
	}
	opID := time.Now().UTC().Format("20060102T150405Z")
	sl, logFile, err := newLogger(cfg.LogDir, opID, slog.LevelInfo, echo)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logger := &slogAdapter{l: sl}

	a := &NFTApp{
		cfg:     cfg,
		logger:  logger,
		op:      NewOperation(opts.Operation, opts.Parameters),
		logFile: logFile,
	}
	defer func() {
		if err != nil {
			a.closeResources()
		}
	}()

	a.journal, err = database.NewJournalFromConfig(cfg.Journal, nft.RealClock{})
	if err != nil {
		return nil, fmt.Errorf("creating journal: %w", err)
	}
	if err := a.journal.CheckMigrations(); err != nil {
		return nil, fmt.Errorf("journal schema out of date: %w", err)
	}

	a.ledger, err = ledger.NewLedgerFromConfig(cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("creating ledger: %w", err)
	}

	httpClient := &http.Client{Timeout: 2 * time.Minute}
	deps := nft.Dependencies{
		Ledger:     a.ledger,
		Journal:    a.journal,
		Metadata:   acquire.NewHTTPMetadataFetcher(httpClient),
		Logger:     logger,
		Clock:      nft.RealClock{},
		IDGen:      nft.UUIDGenerator{},
		ScratchDir: filepath.Join(cfg.BaseDir, "tmp"),
	}

	if opts.Needs&NeedPublisher != 0 {
		deps.Publisher, err = publisher.NewPublisherFromConfig(ctx, cfg.Publisher, deps.IDGen, logger)
		if err != nil {
			return nil, fmt.Errorf("creating publisher: %w", err)
		}
	}

	if opts.Needs&NeedContent != 0 {
		deps.Fetcher = acquire.NewURLFetcher(httpClient, logger)
		deps.Generator = acquire.NewGenerator(acquire.GeneratorOptions{
			Endpoint:     cfg.Generator.Endpoint,
			APIToken:     cfg.Generator.APIToken,
			ModelVersion: cfg.Generator.ModelVersion,
			PollInterval: cfg.Generator.PollInterval.Duration,
			MaxAttempts:  cfg.Generator.MaxAttempts,
		}, httpClient, logger)
	}

	if opts.Needs&NeedChain != 0 {
		a.client, err = dialContract(ctx, cfg.Chain, logger)
		if err != nil {
			return nil, err
		}
		deps.Contract = a.client
	}

	if opts.Needs&NeedSigner != 0 {
		a.signer, err = loadSigner(cfg.Signer, opts.Asker)
		if err != nil {
			return nil, fmt.Errorf("loading signer: %w", err)
		}
		deps.Signer = a.signer
		logger.Info("signer loaded", "address", a.signer.Address())
	}

	a.service, err = nft.NewNFTService(deps)
	if err != nil {
		return nil, fmt.Errorf("creating service: %w", err)
	}

	if opts.Reconcile {
		if _, err := a.Reconcile(ctx); err != nil {
			return nil, fmt.Errorf("startup reconcile: %w", err)
		}
	}

	return a, nil
}

func dialContract(ctx context.Context, cfg config.ChainConfig, logger nft.Logger) (*chain.Client, error) {
	address, err := chain.ReadAddressFile(cfg.ContractAddressFile)
	if err != nil {
		return nil, fmt.Errorf("contract address not set (run 'nft contract set-address'): %w", err)
	}
	client, err := chain.Dial(ctx, cfg.RPCURL, address, chain.Options{
		ChainID:  cfg.ChainID,
		GasLimit: cfg.GasLimit,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Verify(ctx); err != nil {
		client.Close()
		return nil, err
	}
	logger.Info("contract bound", "address", client.Address(), "rpc", cfg.RPCURL)
	return client, nil
}

// Service returns the underlying NFTService.
func (a *NFTApp) Service() *nft.NFTService {
	return a.service
}

// Logger returns the operation logger.
func (a *NFTApp) Logger() nft.Logger {
	return a.logger
}

// persistOperation saves the operation to the journal, giving it an auto-increment ID.
// This should only be called for mutating commands.
func (a *NFTApp) persistOperation() error {
	if a.op.Persisted() {
		return nil
	}
	dbOp, err := a.journal.CreateOperation(a.op.Operation, a.op.Parameters)
	if err != nil {
		return fmt.Errorf("persisting operation: %w", err)
	}
	a.op.ID = dbOp.ID
	return nil
}

// track persists the operation and marks it failed if fn fails.
func (a *NFTApp) track(fn func() error) error {
	if err := a.persistOperation(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		a.op.Fail()
		return err
	}
	return nil
}

// MintFromURL downloads rawURL and mints it.
func (a *NFTApp) MintFromURL(ctx context.Context, rawURL string, details nft.MintDetails) (*nft.PipelineResult, error) {
	var result *nft.PipelineResult
	err := a.track(func() error {
		var err error
		result, err = a.service.MintFromURL(ctx, rawURL, details)
		return err
	})
	return result, err
}

// MintFromPrompt generates an image from prompt and mints it.
func (a *NFTApp) MintFromPrompt(ctx context.Context, prompt string, details nft.MintDetails) (*nft.PipelineResult, error) {
	var result *nft.PipelineResult
	err := a.track(func() error {
		var err error
		result, err = a.service.MintFromPrompt(ctx, prompt, details)
		return err
	})
	return result, err
}

// Reconcile brings the contract's token counter up to the ledger.
func (a *NFTApp) Reconcile(ctx context.Context) (*nft.ReconcileResult, error) {
	var result *nft.ReconcileResult
	err := a.track(func() error {
		var err error
		result, err = a.service.Reconcile(ctx)
		return err
	})
	return result, err
}

// Resale sells tokenID to buyer at price wei.
func (a *NFTApp) Resale(ctx context.Context, tokenID uint64, buyer string, price *big.Int) (*nft.ResaleResult, error) {
	var result *nft.ResaleResult
	err := a.track(func() error {
		var err error
		result, err = a.service.Resale(ctx, nft.ResaleRequest{TokenID: tokenID, Buyer: buyer, SalePrice: price})
		return err
	})
	return result, err
}

// Track runs fn as this app's persisted operation. Long-running commands
// such as serve use it to appear in history.
func (a *NFTApp) Track(fn func() error) error {
	return a.track(fn)
}

// Lookup queries the local ledger.
func (a *NFTApp) Lookup(q nft.Query) ([]*model.MetadataRecord, error) {
	return a.service.Lookup(q)
}

// LookupOnChain reads a token from the contract.
func (a *NFTApp) LookupOnChain(ctx context.Context, tokenID uint64) (*nft.OnChainToken, error) {
	return a.service.LookupOnChain(ctx, tokenID)
}

// GetHistory returns the most recent operations.
func (a *NFTApp) GetHistory(limit int) ([]*model.Operation, error) {
	return a.journal.ListOperations(limit)
}

// Close finalizes the operation and closes all resources.
func (a *NFTApp) Close() error {
	var firstErr error
	if a.op.Persisted() {
		if err := a.journal.FinishOperation(a.op.ID, a.op.Status); err != nil {
			firstErr = fmt.Errorf("finishing operation: %w", err)
		}
	}
	if err := a.closeResources(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func (a *NFTApp) closeResources() error {
	var firstErr error
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			firstErr = fmt.Errorf("closing journal: %w", err)
		}
	}
	if a.client != nil {
		a.client.Close()
	}
	if a.logFile != nil {
		a.logFile.Close()
	}
	return firstErr
}
