package app

import (
	"fmt"

	"nft-go/internal/chain"
	"nft-go/internal/config"
	"nft-go/internal/keystore"
	"nft-go/internal/nft"
	"nft-go/internal/prompt"
)

// loadSigner builds the transaction signer selected by cfg.Type.
func loadSigner(cfg config.SignerConfig, asker prompt.Asker) (chain.TxSigner, error) {
	switch cfg.Type {
	case "key":
		if cfg.PrivateKey == "" {
			return nil, fmt.Errorf("%w: private key (set PRIVATE_KEY)", nft.ErrMissingCredential)
		}
		return chain.NewKeySigner(cfg.PrivateKey)

	case "keystore", "":
		ks := keystore.New(cfg.KeystorePath)
		if !ks.IsConfigured() {
			return nil, fmt.Errorf("%w: no key at %s (run 'nft keystore import' or set PRIVATE_KEY)",
				nft.ErrMissingCredential, cfg.KeystorePath)
		}
		if asker == nil {
			return nil, fmt.Errorf("keystore is locked and no passphrase source is available")
		}
		passphrase, err := asker.Secret("Keystore passphrase")
		if err != nil {
			return nil, err
		}
		return ks.Unlock(passphrase)

	case "accounts_file":
		accounts, err := chain.LoadAccounts(cfg.AccountsFile)
		if err != nil {
			return nil, err
		}
		return chain.SelectAccount(accounts, cfg.AccountIndex)

	default:
		return nil, fmt.Errorf("unknown signer type: %s", cfg.Type)
	}
}
