package util

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	if err := WriteFile(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Fatalf("data = %q", data)
	}
}

func TestTruncateRunes(t *testing.T) {
	if got := TruncateRunes("hello", 10); got != "hello" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateRunes("hello world", 5); got != "hello…" {
		t.Fatalf("got %q", got)
	}
	if got := TruncateRunes("héllo", 2); got != "hé…" {
		t.Fatalf("got %q", got)
	}
}
