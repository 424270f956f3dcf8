package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"nft-go/internal/model"
	"nft-go/internal/nft"
)

// FileLedger stores the ledger as a single JSON array on disk.
//
// Every Append reads the whole document, appends in memory and rewrites it
// in one atomic step (temp file + rename), so readers never see a partially
// written file. Appends within a process are serialized by mu; concurrent
// writer processes are not supported and the later flush wins.
type FileLedger struct {
	path string
	mu   sync.Mutex
}

// NewFileLedger creates a ledger backed by path. The file is created on the
// first Append; a missing file reads as an empty ledger.
func NewFileLedger(path string) (*FileLedger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}
	return &FileLedger{path: path}, nil
}

// Path returns the ledger file location.
func (l *FileLedger) Path() string {
	return l.path
}

// Append adds record to the end of the ledger.
func (l *FileLedger) Append(record *model.MetadataRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	records, err := l.read()
	if err != nil {
		return err
	}
	records = append(records, record)
	return l.write(records)
}

// All returns every record in ledger order.
func (l *FileLedger) All() ([]*model.MetadataRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.read()
}

// Query returns all records matching q.
func (l *FileLedger) Query(q nft.Query) ([]*model.MetadataRecord, error) {
	records, err := l.All()
	if err != nil {
		return nil, err
	}
	return filter(records, q), nil
}

// NextID returns max(token_id)+1, or 0 for an empty ledger.
func (l *FileLedger) NextID() (uint64, error) {
	records, err := l.All()
	if err != nil {
		return 0, err
	}
	return nft.NextIDFrom(records), nil
}

// read loads the full document. Callers must hold mu.
func (l *FileLedger) read() ([]*model.MetadataRecord, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading ledger: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}

	var records []*model.MetadataRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", nft.ErrLedgerCorrupt, l.path, err)
	}
	return records, nil
}

// write replaces the document with records using temp file + rename.
// Callers must hold mu.
func (l *FileLedger) write(records []*model.MetadataRecord) error {
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding ledger: %w", err)
	}

	// Create temp file in the same directory to ensure atomic rename works
	tmpFile, err := os.CreateTemp(filepath.Dir(l.path), ".ledger-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return fmt.Errorf("failed to write ledger: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, l.path); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	success = true
	return nil
}

func filter(records []*model.MetadataRecord, q nft.Query) []*model.MetadataRecord {
	var out []*model.MetadataRecord
	for _, r := range records {
		if q.Matches(r) {
			out = append(out, r)
		}
	}
	return out
}

// Compile-time check that FileLedger implements nft.Ledger interface
var _ nft.Ledger = (*FileLedger)(nil)
