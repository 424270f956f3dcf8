package database

import (
	"fmt"
	"path/filepath"

	"nft-go/internal/config"
	"nft-go/internal/nft"
)

// NewJournalFromConfig creates a SQLiteJournal based on the journal config type.
func NewJournalFromConfig(cfg config.JournalConfig, clock nft.Clock) (*SQLiteJournal, error) {
	switch cfg.Type {
	case "sqlite", "":
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite journal")
		}
		return NewSQLiteJournal(filepath.Join(cfg.DataDir, "nft.db"), clock)
	case "memory":
		return NewSQLiteJournal(":memory:", clock)
	default:
		return nil, fmt.Errorf("unknown journal type: %s", cfg.Type)
	}
}
