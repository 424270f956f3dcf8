package testutil

import (
	"errors"

	"nft-go/internal/ledger"
	"nft-go/internal/model"
	"nft-go/internal/nft"
)

// ErrInjected is returned by fakes configured to fail.
var ErrInjected = errors.New("injected failure")

// FlakyLedger wraps a MemoryLedger and fails the next FailAppends appends.
type FlakyLedger struct {
	*ledger.MemoryLedger
	FailAppends int
}

func NewFlakyLedger() *FlakyLedger {
	return &FlakyLedger{MemoryLedger: ledger.NewMemoryLedger()}
}

func (l *FlakyLedger) Append(record *model.MetadataRecord) error {
	if l.FailAppends > 0 {
		l.FailAppends--
		return ErrInjected
	}
	return l.MemoryLedger.Append(record)
}

// SeedLedger appends one record per token id, named "nft-<id>".
func SeedLedger(l nft.Ledger, tokenIDs ...uint64) error {
	for _, id := range tokenIDs {
		r := &model.MetadataRecord{Name: "nft-" + itoa(id), UserID: TestSignerAddress, MintTxHash: "0xseed" + itoa(id)}
		r.SetTokenID(id)
		if err := l.Append(r); err != nil {
			return err
		}
	}
	return nil
}

var _ nft.Ledger = (*FlakyLedger)(nil)
