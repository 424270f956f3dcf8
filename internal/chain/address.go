package chain

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ethereum/go-ethereum/common"
)

type addressFile struct {
	Address string `json:"address"`
}

// ReadAddressFile loads and validates the contract address document.
func ReadAddressFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read contract address file: %w", err)
	}
	var doc addressFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", fmt.Errorf("invalid contract address file %s: %w", path, err)
	}
	if !common.IsHexAddress(doc.Address) {
		return "", fmt.Errorf("invalid contract address %q in %s", doc.Address, path)
	}
	return common.HexToAddress(doc.Address).Hex(), nil
}

// WriteAddressFile stores address in the contract address document.
func WriteAddressFile(path, address string) error {
	if !common.IsHexAddress(address) {
		return fmt.Errorf("invalid contract address %q", address)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	data, err := json.MarshalIndent(addressFile{Address: common.HexToAddress(address).Hex()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode contract address: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0644); err != nil {
		return fmt.Errorf("failed to write contract address file: %w", err)
	}
	return nil
}
