package ledger

import (
	"sync"

	"nft-go/internal/model"
	"nft-go/internal/nft"
)

// MemoryLedger is an in-memory implementation of the Ledger interface.
// Records are copied on the way in and out so callers cannot mutate history.
// This implementation is safe for concurrent use.
type MemoryLedger struct {
	records []model.MetadataRecord
	mu      sync.RWMutex
}

// NewMemoryLedger creates an empty in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{}
}

func (m *MemoryLedger) Append(record *model.MetadataRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, copyRecord(record))
	return nil
}

func (m *MemoryLedger) All() ([]*model.MetadataRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*model.MetadataRecord, len(m.records))
	for i := range m.records {
		r := copyRecord(&m.records[i])
		out[i] = &r
	}
	return out, nil
}

func (m *MemoryLedger) Query(q nft.Query) ([]*model.MetadataRecord, error) {
	records, err := m.All()
	if err != nil {
		return nil, err
	}
	return filter(records, q), nil
}

func (m *MemoryLedger) NextID() (uint64, error) {
	records, err := m.All()
	if err != nil {
		return 0, err
	}
	return nft.NextIDFrom(records), nil
}

func copyRecord(r *model.MetadataRecord) model.MetadataRecord {
	c := *r
	if r.TokenID != nil {
		id := *r.TokenID
		c.TokenID = &id
	}
	return c
}

var _ nft.Ledger = (*MemoryLedger)(nil)
