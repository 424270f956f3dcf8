package chain

import (
	"os"
	"path/filepath"
	"testing"
)

func TestAddressFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contract-address.json")

	if err := WriteAddressFile(path, "0x5fbdb2315678afecb367f032d93f642f64180aa3"); err != nil {
		t.Fatalf("WriteAddressFile() error = %v", err)
	}

	got, err := ReadAddressFile(path)
	if err != nil {
		t.Fatalf("ReadAddressFile() error = %v", err)
	}
	if got != testContract {
		t.Errorf("ReadAddressFile() = %q, want checksummed %q", got, testContract)
	}

	if err := WriteAddressFile(path, "0x1234"); err == nil {
		t.Error("WriteAddressFile() expected error for short address")
	}
}

func TestReadAddressFile_Invalid(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name    string
		content string
	}{
		{"bad-json.json", `{"address":`},
		{"bad-addr.json", `{"address":"0xnope"}`},
		{"empty.json", `{}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(dir, tt.name)
			if err := os.WriteFile(path, []byte(tt.content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := ReadAddressFile(path); err == nil {
				t.Errorf("ReadAddressFile(%s) expected error", tt.name)
			}
		})
	}

	if _, err := ReadAddressFile(filepath.Join(dir, "missing.json")); err == nil {
		t.Error("ReadAddressFile() expected error for missing file")
	}
}
