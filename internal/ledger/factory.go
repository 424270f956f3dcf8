package ledger

import (
	"fmt"

	"nft-go/internal/config"
	"nft-go/internal/nft"
)

// NewLedgerFromConfig creates a Ledger implementation based on the ledger config type.
func NewLedgerFromConfig(cfg config.LedgerConfig) (nft.Ledger, error) {
	switch cfg.Type {
	case "file", "":
		if cfg.Path == "" {
			return nil, fmt.Errorf("file ledger requires path to be set")
		}
		return NewFileLedger(cfg.Path)
	case "memory":
		return NewMemoryLedger(), nil
	default:
		return nil, fmt.Errorf("unknown ledger type: %s", cfg.Type)
	}
}
