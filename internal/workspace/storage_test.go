package workspace

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestValidateName(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"desk", false},
		{"two-monitors_v2", false},
		{"", true},
		{"   ", true},
		{"..", true},
		{"a..b", true},
		{"nested/name", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateName(tt.name)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateName(%q) error = %v, wantErr %v", tt.name, err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidName) {
				t.Fatalf("expected ErrInvalidName, got %v", err)
			}
		})
	}
}

func TestStore_WriteReadListDelete(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "workspaces")
	store := NewStore(dir)

	names, err := store.List()
	if err != nil {
		t.Fatalf("list on missing dir: %v", err)
	}
	if len(names) != 0 {
		t.Fatalf("expected no workspaces, got %v", names)
	}

	ws := sampleWorkspace()
	ws.Meta = nil
	if err := store.Write("beta", ws); err != nil {
		t.Fatalf("write beta: %v", err)
	}
	if err := store.Write("alpha", sampleWorkspace()); err != nil {
		t.Fatalf("write alpha: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	names, err = store.List()
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if !reflect.DeepEqual(names, []string{"alpha", "beta"}) {
		t.Fatalf("unexpected names %v", names)
	}

	got, err := store.Read("beta")
	if err != nil {
		t.Fatalf("read beta: %v", err)
	}
	if got.Meta == nil || got.Meta.Name != "beta" {
		t.Fatalf("expected meta named beta, got %+v", got.Meta)
	}
	if len(got.Windows) != 2 {
		t.Fatalf("expected 2 windows, got %d", len(got.Windows))
	}

	if err := store.Delete("beta"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Read("beta"); err == nil {
		t.Fatalf("expected read of deleted workspace to fail")
	}
}

func TestStore_RejectsBadNames(t *testing.T) {
	store := NewStore(t.TempDir())
	if err := store.Write("../escape", sampleWorkspace()); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
	if _, err := store.Read(""); !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestWriteFile_CreatesParents(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "snap.json")
	if err := WriteFile(path, sampleWorkspace()); err != nil {
		t.Fatalf("write: %v", err)
	}
	ws, err := ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if ws.Meta == nil || ws.Meta.Name != "desk" {
		t.Fatalf("unexpected meta %+v", ws.Meta)
	}
}
