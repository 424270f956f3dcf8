package model

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MetadataRecord describes one minted NFT. The JSON field names are the
// on-disk ledger format and must not change.
type MetadataRecord struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`     // gateway URL of the pinned image
	Prompt      string    `json:"prompt"`    // empty if not AI-generated
	UserID      string    `json:"user_id"`   // signer address
	CreatedAt   time.Time `json:"created_at"`
	TokenURI    string    `json:"token_uri,omitempty"`
	IPFSHash    string    `json:"ipfs_hash,omitempty"` // CID of the metadata document
	MintTxHash  string    `json:"mint_tx_hash,omitempty"`
	TokenID     *uint64   `json:"token_id,omitempty"` // nil until a mint is confirmed
}

// HasTokenID reports whether a token id has been assigned.
func (r *MetadataRecord) HasTokenID() bool {
	return r.TokenID != nil
}

// TokenIDString returns the token id in decimal, or "?" if unassigned.
func (r *MetadataRecord) TokenIDString() string {
	if r.TokenID == nil {
		return "?"
	}
	return strconv.FormatUint(*r.TokenID, 10)
}

// SetTokenID assigns the token id.
func (r *MetadataRecord) SetTokenID(id uint64) {
	r.TokenID = &id
}

// UnmarshalJSON accepts token_id as either a JSON number or a decimal string,
// since older ledgers were written with string ids.
func (r *MetadataRecord) UnmarshalJSON(data []byte) error {
	type plain MetadataRecord
	aux := struct {
		*plain
		TokenID json.RawMessage `json:"token_id,omitempty"`
	}{plain: (*plain)(r)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.TokenID = nil
	raw := strings.TrimSpace(string(aux.TokenID))
	if raw == "" || raw == "null" || raw == `""` {
		return nil
	}
	raw = strings.Trim(raw, `"`)
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid token_id %q: %w", raw, err)
	}
	r.TokenID = &id
	return nil
}

// MintJournalEntry is a confirmed mint recorded before the ledger write.
// Recorded flips to true once the record is safely in the ledger.
type MintJournalEntry struct {
	TxHash      string
	TokenID     uint64
	MetadataCID string
	Record      MetadataRecord
	Recorded    bool
	CreatedAt   time.Time
}

// Operation tracks a CLI or HTTP operation that may mutate chain or ledger state.
type Operation struct {
	ID         int64
	Operation  string
	Parameters string
	Status     string // "success" or "error"
	StartedAt  time.Time
	FinishedAt *time.Time
}
