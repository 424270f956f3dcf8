package app

import (
	"fmt"
	"os"
	"path/filepath"
)

// Paths are the locations nft uses before a config file has been read.
type Paths struct {
	ConfigPath string
	BaseDir    string
}

// LogDir is where the rotated nft.log lives unless the config says otherwise.
func (p Paths) LogDir() string {
	return filepath.Join(p.BaseDir, "log")
}

// DefaultPaths resolves the config file and data directory. Lookup order:
//
//	config: $NFT_CONFIG_PATH, $XDG_CONFIG_HOME/nft.toml, ~/.config/nft.toml
//	data:   $NFT_HOME, $XDG_DATA_HOME/nft, ~/.local/share/nft
func DefaultPaths() (Paths, error) {
	configPath, err := resolvePath("NFT_CONFIG_PATH", "XDG_CONFIG_HOME", "nft.toml", ".config")
	if err != nil {
		return Paths{}, err
	}
	baseDir, err := resolvePath("NFT_HOME", "XDG_DATA_HOME", "nft", ".local", "share")
	if err != nil {
		return Paths{}, err
	}
	return Paths{ConfigPath: configPath, BaseDir: baseDir}, nil
}

// resolvePath returns $override, or name under $xdg, or name under the
// home-relative fallback dirs.
func resolvePath(override, xdg, name string, fallback ...string) (string, error) {
	if p := os.Getenv(override); p != "" {
		return p, nil
	}
	if dir := os.Getenv(xdg); dir != "" {
		return filepath.Join(dir, name), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	parts := append([]string{home}, fallback...)
	return filepath.Join(append(parts, name)...), nil
}
