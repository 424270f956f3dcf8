package nft

import (
	"strings"

	"nft-go/internal/model"
)

// Ledger is the append-only local store of minted NFT metadata.
type Ledger interface {
	// Append adds record to the end of the ledger. Records are never
	// modified or removed once appended.
	Append(record *model.MetadataRecord) error

	// All returns every record in ledger order.
	All() ([]*model.MetadataRecord, error)

	// Query returns all records matching q. An empty result is not an error.
	Query(q Query) ([]*model.MetadataRecord, error)

	// NextID returns max(token_id)+1 over records with a token id, or 0.
	NextID() (uint64, error)
}

// Query selects ledger records. Every non-empty field must be a
// case-insensitive substring of the corresponding record field.
type Query struct {
	TokenID    string
	UserID     string
	Name       string
	MintTxHash string
}

// IsEmpty reports whether no field is set.
func (q Query) IsEmpty() bool {
	return q.TokenID == "" && q.UserID == "" && q.Name == "" && q.MintTxHash == ""
}

// Matches reports whether r satisfies every set field of q.
// A record that lacks a queried field never matches.
func (q Query) Matches(r *model.MetadataRecord) bool {
	if q.TokenID != "" {
		if !r.HasTokenID() || !containsFold(r.TokenIDString(), q.TokenID) {
			return false
		}
	}
	if q.UserID != "" && !containsFold(r.UserID, q.UserID) {
		return false
	}
	if q.Name != "" && !containsFold(r.Name, q.Name) {
		return false
	}
	if q.MintTxHash != "" && !containsFold(r.MintTxHash, q.MintTxHash) {
		return false
	}
	return true
}

func containsFold(field, value string) bool {
	if field == "" {
		return false
	}
	return strings.Contains(strings.ToLower(field), strings.ToLower(value))
}

// NextIDFrom computes the token id counter from a sequence of records.
func NextIDFrom(records []*model.MetadataRecord) uint64 {
	var next uint64
	for _, r := range records {
		if r.TokenID != nil && *r.TokenID+1 > next {
			next = *r.TokenID + 1
		}
	}
	return next
}
