package storage

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestAtomicWriteFile(t *testing.T) {
	t.Run("successful write", func(t *testing.T) {
		tempDir := t.TempDir()
		filename := filepath.Join(tempDir, "nested", "test.json")
		data := []byte(`{"values":{}}`)

		if err := AtomicWriteFile(filename, data, 0600); err != nil {
			t.Fatalf("AtomicWriteFile failed: %v", err)
		}

		readData, err := os.ReadFile(filename)
		if err != nil {
			t.Fatalf("Failed to read back file: %v", err)
		}
		if string(readData) != string(data) {
			t.Errorf("File content mismatch: got %q, want %q", string(readData), string(data))
		}
	})

	t.Run("overwrite replaces content", func(t *testing.T) {
		filename := filepath.Join(t.TempDir(), "f")
		if err := AtomicWriteFile(filename, []byte("old content"), 0600); err != nil {
			t.Fatal(err)
		}
		if err := AtomicWriteFile(filename, []byte("new"), 0600); err != nil {
			t.Fatal(err)
		}
		got, _ := os.ReadFile(filename)
		if string(got) != "new" {
			t.Errorf("got %q, want %q", got, "new")
		}
	})

	t.Run("directory creation failure", func(t *testing.T) {
		if runtime.GOOS == "windows" {
			t.Skip("Skipping directory-permission failure test on Windows")
		}
		tempDir := t.TempDir()
		blocker := filepath.Join(tempDir, "parent")
		if err := os.WriteFile(blocker, []byte("file, not dir"), 0600); err != nil {
			t.Fatal(err)
		}
		if err := AtomicWriteFile(filepath.Join(blocker, "child", "f"), []byte("x"), 0600); err == nil {
			t.Fatal("expected error when parent is a regular file")
		}
	})

	t.Run("crash before rename leaves original intact", func(t *testing.T) {
		tempDir := t.TempDir()
		filename := filepath.Join(tempDir, "state.json")
		if err := AtomicWriteFile(filename, []byte("original"), 0600); err != nil {
			t.Fatal(err)
		}

		testHookBeforeRename = func() { panic("simulated crash") }
		defer func() { testHookBeforeRename = nil }()

		func() {
			defer func() {
				if r := recover(); r == nil {
					t.Fatal("expected panic from hook")
				}
			}()
			_ = AtomicWriteFile(filename, []byte("partial"), 0600)
		}()

		got, err := os.ReadFile(filename)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != "original" {
			t.Errorf("original content lost: got %q", got)
		}

		entries, err := os.ReadDir(tempDir)
		if err != nil {
			t.Fatal(err)
		}
		for _, e := range entries {
			if e.Name() != "state.json" {
				t.Errorf("temporary file left behind: %s", e.Name())
			}
		}
	})
}
