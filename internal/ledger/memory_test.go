package ledger

import (
	"testing"

	"nft-go/internal/nft"
)

func TestMemoryLedger_AppendAndQuery(t *testing.T) {
	l := NewMemoryLedger()
	l.Append(newRecord("alpha", 0))
	l.Append(newRecord("beta", 2))

	next, err := l.NextID()
	if err != nil {
		t.Fatalf("NextID() error = %v", err)
	}
	if next != 3 {
		t.Errorf("NextID() = %d, want 3", next)
	}

	got, err := l.Query(nft.Query{Name: "ALP"})
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(got) != 1 || got[0].Name != "alpha" {
		t.Errorf("Query() = %v, want [alpha]", got)
	}
}

func TestMemoryLedger_RecordsAreImmutable(t *testing.T) {
	l := NewMemoryLedger()
	r := newRecord("alpha", 5)
	l.Append(r)

	// Mutating the caller's copy must not change history.
	r.Name = "changed"
	r.SetTokenID(99)

	records, _ := l.All()
	if records[0].Name != "alpha" {
		t.Errorf("Name = %q, want %q", records[0].Name, "alpha")
	}
	if records[0].TokenIDString() != "5" {
		t.Errorf("TokenID = %s, want 5", records[0].TokenIDString())
	}

	// Nor does mutating a returned record.
	records[0].Name = "changed again"
	again, _ := l.All()
	if again[0].Name != "alpha" {
		t.Errorf("Name after mutating result = %q, want %q", again[0].Name, "alpha")
	}
}
