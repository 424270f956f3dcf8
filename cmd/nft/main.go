package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"nft-go/internal/app"
	"nft-go/internal/chain"
	"nft-go/internal/config"
	"nft-go/internal/httpapi"
	"nft-go/internal/keystore"
	"nft-go/internal/model"
	"nft-go/internal/nft"
	"nft-go/internal/prompt"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// asker answers every interactive question of this process.
var asker prompt.Asker = prompt.NewTerminalAsker()

// loadConfig reads the config file and applies environment overrides.
func loadConfig() (*config.Config, error) {
	paths, err := app.DefaultPaths()
	if err != nil {
		return nil, fmt.Errorf("getting defaults: %w", err)
	}

	cfg, err := config.ReadFromFile(paths.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	cfg.ApplyEnv()

	if account, _ := rootCmd.PersistentFlags().GetInt("account"); account >= 0 {
		cfg.Signer.Type = "accounts_file"
		cfg.Signer.AccountIndex = account
	}
	return cfg, nil
}

// newApp reads the config and creates an NFTApp. The caller must defer app.Close().
func newApp(ctx context.Context, opts app.Options) (*app.NFTApp, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	opts.Asker = asker
	a, err := app.NewNFTApp(ctx, cfg, opts)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
}

// askIfEmpty returns value, or asks question when value is empty.
func askIfEmpty(value, question, def string) (string, error) {
	if value != "" {
		return value, nil
	}
	return asker.Ask(question, def)
}

var rootCmd = &cobra.Command{
	Use:          "nft",
	Short:        "Mint images as NFTs",
	SilenceUsage: true,
}

// config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}

		cfg := config.NewConfig(paths.BaseDir)
		if err := config.Init(paths.ConfigPath, cfg); err != nil {
			return fmt.Errorf("failed to initialize config: %w", err)
		}

		fmt.Printf("Configuration initialized at %s\n", paths.ConfigPath)
		fmt.Printf("Base Dir: %s\n", paths.BaseDir)
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "View configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := app.DefaultPaths()
		if err != nil {
			return fmt.Errorf("failed to get defaults: %w", err)
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		set := func(v string) string {
			if v == "" {
				return "(unset)"
			}
			return "(set)"
		}

		fmt.Printf("Configuration from %s:\n\n", paths.ConfigPath)
		fmt.Printf("Base Dir:       %s\n", cfg.BaseDir)
		fmt.Printf("Log Dir:        %s\n", cfg.LogDir)
		fmt.Printf("RPC URL:        %s\n", cfg.Chain.RPCURL)
		fmt.Printf("Chain ID:       %d\n", cfg.Chain.ChainID)
		fmt.Printf("Address File:   %s\n", cfg.Chain.ContractAddressFile)
		fmt.Printf("Signer:         %s\n", cfg.Signer.Type)
		fmt.Printf("Publisher:      %s (%s)\n", cfg.Publisher.Type, cfg.Publisher.GatewayURL)
		fmt.Printf("Pinata Key:     %s\n", set(cfg.Publisher.PinataAPIKey))
		fmt.Printf("Pinata JWT:     %s\n", set(cfg.Publisher.PinataJWT))
		fmt.Printf("Replicate:      %s\n", set(cfg.Generator.APIToken))
		fmt.Printf("Ledger:         %s %s\n", cfg.Ledger.Type, cfg.Ledger.Path)
		fmt.Printf("Journal:        %s %s\n", cfg.Journal.Type, cfg.Journal.DataDir)
		fmt.Printf("Listen:         %s\n", cfg.Server.Listen)
		return nil
	},
}

// keystore command
var keystoreCmd = &cobra.Command{
	Use:   "keystore",
	Short: "Manage the encrypted signer key",
}

var keystoreImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Encrypt a private key into the keystore",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		key, err := asker.Secret("Private key (hex)")
		if err != nil {
			return err
		}
		pass, err := asker.Secret("New passphrase")
		if err != nil {
			return err
		}
		confirm, err := asker.Secret("Repeat passphrase")
		if err != nil {
			return err
		}
		if pass != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		addr, err := keystore.New(cfg.Signer.KeystorePath).Import(key, pass)
		if err != nil {
			return fmt.Errorf("importing key: %w", err)
		}
		fmt.Printf("Imported signer %s into %s\n", addr, cfg.Signer.KeystorePath)
		return nil
	},
}

// contract command
var contractCmd = &cobra.Command{
	Use:   "contract",
	Short: "Manage the deployed contract address",
}

var contractSetAddressCmd = &cobra.Command{
	Use:   "set-address ADDRESS",
	Short: "Record the deployed contract address",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if err := chain.WriteAddressFile(cfg.Chain.ContractAddressFile, args[0]); err != nil {
			return err
		}
		fmt.Printf("Contract address written to %s\n", cfg.Chain.ContractAddressFile)
		return nil
	},
}

var contractShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the contract address and its state",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx, app.Options{Operation: "ContractShow", Needs: app.NeedChain})
		if err != nil {
			return err
		}
		defer a.Close()

		contract := a.Service().Contract()
		paused, err := contract.Paused(ctx)
		if err != nil {
			return err
		}
		next, err := contract.NextTokenID(ctx)
		if err != nil {
			return err
		}
		state := "active"
		if paused {
			state = "paused"
		}
		fmt.Printf("Address:     %s\n", contract.Address())
		fmt.Printf("State:       %s\n", state)
		fmt.Printf("nextTokenId: %d\n", next)
		return nil
	},
}

// accounts command
var accountsCmd = &cobra.Command{
	Use:   "accounts",
	Short: "List accounts from the local node accounts file",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		path, _ := cmd.Flags().GetString("file")
		if path == "" {
			path = cfg.Signer.AccountsFile
		}
		if path == "" {
			return fmt.Errorf("no accounts file configured (use --file or signer.accounts_file)")
		}

		accounts, err := chain.LoadAccounts(path)
		if err != nil {
			return err
		}
		if len(accounts) == 0 {
			fmt.Println("No accounts found.")
			return nil
		}
		for i, acc := range accounts {
			fmt.Printf("%d. %s\n", i, acc.Address)
		}
		fmt.Println("\nSelect one with --account N.")
		return nil
	},
}

// reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Replay unrecorded mints and sync the contract token counter with the ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx, app.Options{Operation: "Reconcile", Needs: app.NeedChain | app.NeedSigner})
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.Reconcile(ctx)
		if err != nil {
			return err
		}
		if result.Replayed > 0 {
			fmt.Printf("Replayed %d journaled mint(s) into the ledger\n", result.Replayed)
		}
		if result.Corrected {
			fmt.Printf("nextTokenId updated from %d to %d (tx %s)\n", result.ChainNext, result.LedgerNext, result.TxHash)
		} else {
			fmt.Printf("In sync: ledger next %d, contract next %d\n", result.LedgerNext, result.ChainNext)
		}
		return nil
	},
}

// mint command
var mintCmd = &cobra.Command{
	Use:   "mint",
	Short: "Mint a new NFT",
}

var mintURLCmd = &cobra.Command{
	Use:   "url [URL]",
	Short: "Mint an image downloaded from a URL",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		var rawURL string
		if len(args) > 0 {
			rawURL = args[0]
		}
		rawURL, err := askIfEmpty(rawURL, "Image URL (jpg, png, gif)", "")
		if err != nil {
			return err
		}

		details, err := mintDetails(cmd, nft.DefaultURLName, nft.DefaultURLDescription, "Original AI prompt (skip if none)", "")
		if err != nil {
			return err
		}

		a, err := newApp(ctx, app.Options{Operation: "MintFromURL", Parameters: rawURL, Needs: app.NeedMint, Reconcile: true})
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.MintFromURL(ctx, rawURL, details)
		if err != nil {
			return err
		}
		printPipelineResult(result)
		return nil
	},
}

var mintPromptCmd = &cobra.Command{
	Use:   "prompt [PROMPT]",
	Short: "Mint an image generated from a text prompt",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		var text string
		if len(args) > 0 {
			text = args[0]
		}
		text, err := askIfEmpty(text, "AI image prompt", "")
		if err != nil {
			return err
		}
		if strings.TrimSpace(text) == "" {
			return nft.ErrEmptyPrompt
		}

		details, err := mintDetails(cmd, nft.DefaultAIName, nft.DefaultAIDescription, "Confirm AI prompt", text)
		if err != nil {
			return err
		}

		a, err := newApp(ctx, app.Options{Operation: "MintFromPrompt", Parameters: text, Needs: app.NeedMint, Reconcile: true})
		if err != nil {
			return err
		}
		defer a.Close()

		result, err := a.MintFromPrompt(ctx, text, details)
		if err != nil {
			return err
		}
		printPipelineResult(result)
		return nil
	},
}

// mintDetails collects name, description and prompt from flags, asking for
// the ones not given.
func mintDetails(cmd *cobra.Command, defName, defDescription, promptQuestion, defPrompt string) (nft.MintDetails, error) {
	name, _ := cmd.Flags().GetString("name")
	description, _ := cmd.Flags().GetString("description")
	promptText, _ := cmd.Flags().GetString("prompt")

	var err error
	if name, err = askIfEmpty(name, "NFT name", defName); err != nil {
		return nft.MintDetails{}, err
	}
	if description, err = askIfEmpty(description, "NFT description", defDescription); err != nil {
		return nft.MintDetails{}, err
	}
	if promptText, err = askIfEmpty(promptText, promptQuestion, defPrompt); err != nil {
		return nft.MintDetails{}, err
	}
	return nft.MintDetails{Name: name, Description: description, Prompt: promptText}, nil
}

func printPipelineResult(result *nft.PipelineResult) {
	estimated := ""
	if result.Mint.Estimated {
		estimated = " (estimated)"
	}
	fmt.Printf("Minted token %d%s\n", result.Mint.TokenID, estimated)
	fmt.Printf("  tx:        %s\n", result.Mint.TxHash)
	fmt.Printf("  image:     %s\n", result.Record.Image)
	fmt.Printf("  token uri: %s\n", result.Record.TokenURI)
}

// lookup command
var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Search the local metadata ledger",
	RunE: func(cmd *cobra.Command, args []string) error {
		q := nft.Query{}
		q.TokenID, _ = cmd.Flags().GetString("token-id")
		q.UserID, _ = cmd.Flags().GetString("user")
		q.Name, _ = cmd.Flags().GetString("name")
		q.MintTxHash, _ = cmd.Flags().GetString("tx")

		a, err := newApp(cmd.Context(), app.Options{Operation: "Lookup"})
		if err != nil {
			return err
		}
		defer a.Close()

		records, err := a.Lookup(q)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Println("No matching NFTs found.")
			return nil
		}
		for i, r := range records {
			printRecord(i+1, r)
		}
		return nil
	},
}

var lookupChainCmd = &cobra.Command{
	Use:   "chain TOKEN_ID",
	Short: "Read a token from the contract",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		tokenID, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid token id %q", args[0])
		}

		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx, app.Options{Operation: "LookupOnChain", Needs: app.NeedChain})
		if err != nil {
			return err
		}
		defer a.Close()

		token, err := a.LookupOnChain(ctx, tokenID)
		if err != nil {
			return err
		}
		fmt.Printf("Token %d\n", token.TokenID)
		fmt.Printf("  owner:     %s\n", token.Owner)
		fmt.Printf("  token uri: %s\n", token.TokenURI)

		keys := make([]string, 0, len(token.Metadata))
		for k := range token.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Printf("  %s: %v\n", k, token.Metadata[k])
		}
		return nil
	},
}

func printRecord(n int, r *model.MetadataRecord) {
	fmt.Printf("NFT #%d (tokenId: %s)\n", n, r.TokenIDString())
	fmt.Printf("  name:        %s\n", r.Name)
	fmt.Printf("  description: %s\n", r.Description)
	fmt.Printf("  image:       %s\n", r.Image)
	if r.Prompt != "" {
		fmt.Printf("  prompt:      %s\n", r.Prompt)
	}
	fmt.Printf("  user:        %s\n", r.UserID)
	fmt.Printf("  created:     %s\n", r.CreatedAt.Format(time.RFC3339))
	if r.MintTxHash != "" {
		fmt.Printf("  tx:          %s\n", r.MintTxHash)
	}
}

// resale command
var resaleCmd = &cobra.Command{
	Use:   "resale [TOKEN_ID]",
	Short: "Sell a token owned by the signer to a buyer",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		a, err := newApp(ctx, app.Options{Operation: "Resale", Needs: app.NeedChain | app.NeedSigner})
		if err != nil {
			return err
		}
		defer a.Close()

		var tokenID uint64
		if len(args) > 0 {
			if tokenID, err = strconv.ParseUint(args[0], 10, 64); err != nil {
				return fmt.Errorf("invalid token id %q", args[0])
			}
		} else {
			if tokenID, err = chooseToken(a); err != nil {
				return err
			}
		}

		buyer, _ := cmd.Flags().GetString("buyer")
		if buyer, err = askIfEmpty(buyer, "Buyer address", ""); err != nil {
			return err
		}
		priceText, _ := cmd.Flags().GetString("price")
		if priceText, err = askIfEmpty(priceText, "Sale price (ETH)", "1"); err != nil {
			return err
		}
		price, err := chain.ParseEther(priceText)
		if err != nil {
			return err
		}

		result, err := a.Resale(ctx, tokenID, buyer, price)
		if err != nil {
			return err
		}

		fmt.Printf("Resold token %d for %s ETH\n", tokenID, chain.FormatEther(price))
		fmt.Printf("  tx:        %s\n", result.TxHash)
		fmt.Printf("  from:      %s\n", result.PreviousOwner)
		fmt.Printf("  to:        %s\n", result.NewOwner)
		if result.RoyaltyAmount != nil {
			fmt.Printf("  royalty:   %s ETH to %s\n", chain.FormatEther(result.RoyaltyAmount), result.RoyaltyReceiver)
		}
		if result.Resold != nil {
			fmt.Printf("  event:     price %s ETH, royalty %s ETH\n",
				chain.FormatEther(result.Resold.Price), chain.FormatEther(result.Resold.Royalty))
		}
		return nil
	},
}

// chooseToken lists ledger records with token ids and asks for one.
func chooseToken(a *app.NFTApp) (uint64, error) {
	all, err := a.Lookup(nft.Query{})
	if err != nil {
		return 0, err
	}
	var minted []*model.MetadataRecord
	for _, r := range all {
		if r.HasTokenID() {
			minted = append(minted, r)
		}
	}
	if len(minted) == 0 {
		return 0, fmt.Errorf("no minted NFTs in the ledger")
	}

	fmt.Println("Available NFTs:")
	for i, r := range minted {
		fmt.Printf("%d. Token ID: %s  %s  %s\n", i+1, r.TokenIDString(), r.Name, r.Description)
	}
	choice, err := asker.Ask("NFT index", "")
	if err != nil {
		return 0, err
	}
	r, err := nft.SelectRecord(minted, choice)
	if err != nil {
		return 0, err
	}
	return *r.TokenID, nil
}

// serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP mint front door",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext(cmd)
		defer cancel()

		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		listen, _ := cmd.Flags().GetString("listen")
		if listen == "" {
			listen = cfg.Server.Listen
		}

		a, err := app.NewNFTApp(ctx, cfg, app.Options{
			Operation:  "Serve",
			Parameters: listen,
			Needs:      app.NeedChain | app.NeedSigner | app.NeedPublisher,
			Asker:      asker,
			Reconcile:  true,
		})
		if err != nil {
			return fmt.Errorf("initializing app: %w", err)
		}
		defer a.Close()

		srv := httpapi.NewServer(a.Service(), httpapi.Options{
			UploadDir: cfg.Server.UploadDir,
			Logger:    a.Logger(),
		})
		fmt.Printf("API ready on http://localhost%s\n", listen)
		return a.Track(func() error {
			return srv.ListenAndServe(ctx, listen)
		})
	},
}

// history command
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "View operation history",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		a, err := newApp(cmd.Context(), app.Options{Operation: "GetHistory"})
		if err != nil {
			return err
		}
		defer a.Close()

		ops, err := a.GetHistory(limit)
		if err != nil {
			return err
		}

		if len(ops) == 0 {
			fmt.Println("No operations recorded.")
			return nil
		}

		for _, op := range ops {
			duration := ""
			if op.FinishedAt != nil {
				d := op.FinishedAt.Sub(op.StartedAt)
				duration = d.Truncate(time.Millisecond).String()
			}
			fmt.Printf("#%d  %-15s  %s  %-8s  %-10s  %s\n",
				op.ID,
				op.Operation,
				op.StartedAt.Format("2006-01-02 15:04:05"),
				op.Status,
				duration,
				op.Parameters,
			)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().Int("account", -1, "Use account N from the accounts file as signer")

	// config subcommands
	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configListCmd)

	// keystore subcommands
	keystoreCmd.AddCommand(keystoreImportCmd)

	// contract subcommands
	contractCmd.AddCommand(contractSetAddressCmd)
	contractCmd.AddCommand(contractShowCmd)

	// mint subcommands
	mintCmd.AddCommand(mintURLCmd)
	mintCmd.AddCommand(mintPromptCmd)
	for _, c := range []*cobra.Command{mintURLCmd, mintPromptCmd} {
		c.Flags().String("name", "", "NFT name")
		c.Flags().String("description", "", "NFT description")
		c.Flags().String("prompt", "", "Prompt stored in the metadata")
	}

	// lookup subcommands
	lookupCmd.AddCommand(lookupChainCmd)
	lookupCmd.Flags().String("token-id", "", "Match token id")
	lookupCmd.Flags().String("user", "", "Match user id (signer address)")
	lookupCmd.Flags().String("name", "", "Match name")
	lookupCmd.Flags().String("tx", "", "Match mint transaction hash")

	// root commands
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(keystoreCmd)
	rootCmd.AddCommand(contractCmd)
	rootCmd.AddCommand(accountsCmd)
	accountsCmd.Flags().String("file", "", "Accounts file (default: signer.accounts_file)")
	rootCmd.AddCommand(reconcileCmd)
	rootCmd.AddCommand(mintCmd)
	rootCmd.AddCommand(lookupCmd)
	rootCmd.AddCommand(resaleCmd)
	resaleCmd.Flags().String("buyer", "", "Buyer address")
	resaleCmd.Flags().String("price", "", "Sale price in ETH")
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("listen", "", "Listen address (default: server.listen)")
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntP("limit", "n", 50, "Maximum number of operations to show")
}

