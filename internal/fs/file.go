package fs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// OpenRegular opens rawPath for reading after checking it is a regular file.
// Directories, symlinks, devices, pipes and sockets are rejected.
func OpenRegular(rawPath string) (*os.File, fs.FileInfo, error) {
	absPath, err := filepath.Abs(rawPath)
	if err != nil {
		return nil, nil, fmt.Errorf("resolving absolute path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		return nil, nil, fmt.Errorf("stat path: %w", err)
	}

	mode := info.Mode()
	switch {
	case mode.IsDir():
		return nil, nil, fmt.Errorf("path is a directory: %s", absPath)
	case mode&os.ModeSymlink != 0:
		return nil, nil, fmt.Errorf("symlinks not supported: %s", absPath)
	case mode&os.ModeDevice != 0:
		return nil, nil, fmt.Errorf("device files not supported: %s", absPath)
	case mode&os.ModeNamedPipe != 0:
		return nil, nil, fmt.Errorf("named pipes not supported: %s", absPath)
	case mode&os.ModeSocket != 0:
		return nil, nil, fmt.Errorf("sockets not supported: %s", absPath)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening file: %w", err)
	}
	return f, info, nil
}
