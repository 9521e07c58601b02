package repl

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestNewHistory(t *testing.T) {
	h := NewHistory("", 0)
	if h.maxSize != DefaultHistorySize {
		t.Errorf("maxSize = %d, want %d", h.maxSize, DefaultHistorySize)
	}
	if len(h.Entries()) != 0 {
		t.Error("new history should be empty")
	}
}

func TestHistory_Add(t *testing.T) {
	h := NewHistory("", 10)
	h.Add("status")
	h.Add("status")
	h.Add("login")
	h.Add("status")

	want := []string{"status", "login", "status"}
	if !reflect.DeepEqual(h.Entries(), want) {
		t.Errorf("entries = %v, want %v", h.Entries(), want)
	}
}

func TestHistory_Add_MaxSize(t *testing.T) {
	h := NewHistory("", 3)
	for _, cmd := range []string{"cmd1", "cmd2", "cmd3", "cmd4"} {
		h.Add(cmd)
	}

	want := []string{"cmd2", "cmd3", "cmd4"}
	if !reflect.DeepEqual(h.Entries(), want) {
		t.Errorf("entries = %v, want %v", h.Entries(), want)
	}
}

func TestHistory_Get(t *testing.T) {
	h := NewHistory("", 10)
	h.Add("cmd1")
	h.Add("cmd2")

	tests := []struct {
		index int
		want  string
	}{
		{0, "cmd2"},
		{1, "cmd1"},
		{2, ""},
		{-1, ""},
	}
	for _, tt := range tests {
		if got := h.Get(tt.index); got != tt.want {
			t.Errorf("Get(%d) = %q, want %q", tt.index, got, tt.want)
		}
	}
}

func TestHistory_SaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "history")

	h := NewHistory(path, 10)
	h.Add("login -u alice.test")
	h.Add("publish a.json")
	if err := h.Save(); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("history mode = %o, want 600", perm)
	}

	loaded := NewHistory(path, 10)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !reflect.DeepEqual(loaded.Entries(), h.Entries()) {
		t.Errorf("loaded = %v, want %v", loaded.Entries(), h.Entries())
	}
}

func TestHistory_LoadMissingFile(t *testing.T) {
	h := NewHistory(filepath.Join(t.TempDir(), "missing"), 10)
	if err := h.Load(); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}

func TestHistory_InMemory(t *testing.T) {
	h := NewHistory("", 10)
	h.Add("status")
	if err := h.Save(); err != nil {
		t.Errorf("Save() error = %v", err)
	}
	if err := h.Load(); err != nil {
		t.Errorf("Load() error = %v", err)
	}
}
