package nft

import "nft-go/internal/model"

// Journal durably records confirmed mints ahead of the ledger write, so a
// mint whose ledger append failed can be replayed later.
type Journal interface {
	// RecordMint stores a confirmed mint with Recorded=false.
	RecordMint(entry *model.MintJournalEntry) error

	// MarkMintRecorded flags the mint with txHash as present in the ledger.
	MarkMintRecorded(txHash string) error

	// PendingMints returns confirmed mints not yet marked recorded, oldest first.
	PendingMints() ([]*model.MintJournalEntry, error)
}
