package nft

import (
	"context"
	"fmt"
)

// ReconcileResult reports what Reconcile observed and did.
type ReconcileResult struct {
	LedgerNext uint64
	ChainNext  uint64
	Corrected  bool
	TxHash     string
	// Replayed counts journaled mints appended to the ledger by this run.
	Replayed int
}

// Reconcile brings the ledger and the contract's token counter into
// agreement. It first replays journaled mints missing from the ledger, then
// raises the contract's nextTokenId to the ledger's next id if the contract
// is behind. The chain counter is never lowered and existing ledger records
// are never rewritten.
func (s *NFTService) Reconcile(ctx context.Context) (*ReconcileResult, error) {
	if err := s.requireChain(); err != nil {
		return nil, err
	}

	replayed, err := s.replayJournal()
	if err != nil {
		return nil, err
	}

	ledgerNext, err := s.ledger.NextID()
	if err != nil {
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	chainNext, err := s.contract.NextTokenID(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading nextTokenId: %w", err)
	}

	result := &ReconcileResult{LedgerNext: ledgerNext, ChainNext: chainNext, Replayed: replayed}
	if chainNext >= ledgerNext {
		s.logger.Debug("token counter in sync", "ledger_next", ledgerNext, "chain_next", chainNext)
		return result, nil
	}

	s.logger.Info("raising contract nextTokenId", "from", chainNext, "to", ledgerNext)
	tx, err := s.contract.SetNextTokenID(ctx, s.signer, ledgerNext)
	if err != nil {
		return nil, fmt.Errorf("submitting setNextTokenId(%d): %w", ledgerNext, err)
	}
	if _, err := s.contract.WaitMined(ctx, tx); err != nil {
		return nil, fmt.Errorf("waiting for setNextTokenId %s: %w", tx.Hash, err)
	}

	result.Corrected = true
	result.TxHash = tx.Hash
	s.logger.Info("nextTokenId updated", "value", ledgerNext, "tx", tx.Hash)
	return result, nil
}

// replayJournal appends pending journaled mints that are not yet in the ledger.
func (s *NFTService) replayJournal() (int, error) {
	if s.journal == nil {
		return 0, nil
	}
	pending, err := s.journal.PendingMints()
	if err != nil {
		return 0, fmt.Errorf("reading mint journal: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	records, err := s.ledger.All()
	if err != nil {
		return 0, fmt.Errorf("reading ledger: %w", err)
	}
	inLedger := make(map[string]bool, len(records))
	for _, r := range records {
		if r.MintTxHash != "" {
			inLedger[r.MintTxHash] = true
		}
	}

	replayed := 0
	for _, entry := range pending {
		if !inLedger[entry.TxHash] {
			record := entry.Record
			if !record.HasTokenID() {
				record.SetTokenID(entry.TokenID)
			}
			if err := s.ledger.Append(&record); err != nil {
				return replayed, fmt.Errorf("replaying mint %s: %w", entry.TxHash, err)
			}
			inLedger[entry.TxHash] = true
			replayed++
			s.logger.Info("replayed journaled mint", "tx", entry.TxHash, "token_id", entry.TokenID)
		}
		if err := s.journal.MarkMintRecorded(entry.TxHash); err != nil {
			return replayed, fmt.Errorf("marking mint %s recorded: %w", entry.TxHash, err)
		}
	}
	return replayed, nil
}
