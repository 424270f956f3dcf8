package fs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestScope_WriteFileAndCleanup(t *testing.T) {
	dir := t.TempDir()
	s, err := NewScope(filepath.Join(dir, "scratch"), "op1")
	if err != nil {
		t.Fatalf("NewScope() error = %v", err)
	}

	path, err := s.WriteFile("metadata.json", []byte(`{"name":"x"}`))
	if err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	if !strings.HasPrefix(filepath.Base(path), "op1-") {
		t.Errorf("WriteFile() path = %q, want op1- prefix", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("file not written: %v", err)
	}

	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("file still exists after Cleanup(): %v", err)
	}
}

func TestScope_TrackExternalPath(t *testing.T) {
	dir := t.TempDir()
	s, err := NewScope(dir, "op2")
	if err != nil {
		t.Fatalf("NewScope() error = %v", err)
	}

	// Producers write Base()+ext themselves and hand the path back.
	path := s.Base("image") + ".jpg"
	if err := os.WriteFile(path, []byte("jpg"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	s.Track(path)

	if err := s.Cleanup(); err != nil {
		t.Fatalf("Cleanup() error = %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("tracked file still exists after Cleanup()")
	}
}

func TestScope_CleanupIgnoresMissingFiles(t *testing.T) {
	s, err := NewScope(t.TempDir(), "op3")
	if err != nil {
		t.Fatalf("NewScope() error = %v", err)
	}
	s.Track(s.Base("never-written"))

	if err := s.Cleanup(); err != nil {
		t.Errorf("Cleanup() error = %v, want nil", err)
	}
	// Second call is a no-op.
	if err := s.Cleanup(); err != nil {
		t.Errorf("second Cleanup() error = %v, want nil", err)
	}
}

func TestScope_OpenRegular(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "a.png")
	if err := os.WriteFile(file, []byte("png"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	t.Run("opens regular file", func(t *testing.T) {
		f, info, err := OpenRegular(file)
		if err != nil {
			t.Fatalf("OpenRegular() error = %v", err)
		}
		defer f.Close()
		if info.Size() != 3 {
			t.Errorf("Size() = %d, want 3", info.Size())
		}
	})

	t.Run("rejects directory", func(t *testing.T) {
		if _, _, err := OpenRegular(dir); err == nil {
			t.Error("OpenRegular() expected error for directory")
		}
	})

	t.Run("rejects missing file", func(t *testing.T) {
		if _, _, err := OpenRegular(filepath.Join(dir, "missing.png")); err == nil {
			t.Error("OpenRegular() expected error for missing file")
		}
	})

	t.Run("rejects symlink", func(t *testing.T) {
		link := filepath.Join(dir, "link.png")
		if err := os.Symlink(file, link); err != nil {
			t.Skipf("symlinks unavailable: %v", err)
		}
		if _, _, err := OpenRegular(link); err == nil {
			t.Error("OpenRegular() expected error for symlink")
		}
	})
}
