package fs

import (
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestOpenRegular(t *testing.T) {
	dir := t.TempDir()
	regular := filepath.Join(dir, "image.png")
	if err := os.WriteFile(regular, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	link := filepath.Join(dir, "link.png")
	if err := os.Symlink(regular, link); err != nil {
		t.Fatal(err)
	}

	t.Run("regular file", func(t *testing.T) {
		f, info, err := OpenRegular(regular)
		if err != nil {
			t.Fatalf("OpenRegular() error = %v", err)
		}
		defer f.Close()
		if info.Size() != 3 {
			t.Errorf("Size() = %d, want 3", info.Size())
		}
		data, err := io.ReadAll(f)
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "png" {
			t.Errorf("content = %q, want %q", data, "png")
		}
	})

	tests := []struct {
		name string
		path string
	}{
		{"directory", dir},
		{"symlink", link},
		{"missing", filepath.Join(dir, "missing.png")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, _, err := OpenRegular(tt.path)
			if err == nil {
				f.Close()
				t.Errorf("OpenRegular(%q) expected error", tt.path)
			}
		})
	}
}
